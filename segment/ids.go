package segment

import (
	"strconv"

	"github.com/use-agent/sift/models"
)

// AssignIDs numbers sections "{type}-{n}" in order, counting from 0
// separately for each type. It must run once over the final, merged
// section list so ordinals never repeat across pages.
func AssignIDs(sections []models.Section) {
	next := make(map[models.SectionType]int)
	for i := range sections {
		typ := sections[i].Type
		sections[i].ID = string(typ) + "-" + strconv.Itoa(next[typ])
		next[typ]++
	}
}
