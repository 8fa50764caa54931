package segment

import "github.com/use-agent/sift/models"

var roleTypes = map[string]models.SectionType{
	"banner":      models.SectionHero,
	"navigation":  models.SectionNav,
	"main":        models.SectionArticle,
	"contentinfo": models.SectionFooter,
	"tablist":     models.SectionNav,
}

var tagTypes = map[string]models.SectionType{
	"header":  models.SectionHero,
	"nav":     models.SectionNav,
	"main":    models.SectionArticle,
	"article": models.SectionArticle,
	"footer":  models.SectionFooter,
	"form":    models.SectionForm,
}

// classify assigns a type to every draft. Semantic roots map directly;
// everything else goes through the content heuristics in order.
func (s *segmenter) classify(drafts []*draft) {
	var heroSeen, articleSeen bool
	for k, d := range drafts {
		d.typ = s.classifyOne(d, k, len(drafts), heroSeen, articleSeen)
		switch d.typ {
		case models.SectionHero:
			heroSeen = true
		case models.SectionArticle:
			articleSeen = true
		}
	}
}

func (s *segmenter) classifyOne(d *draft, index, total int, heroSeen, articleSeen bool) models.SectionType {
	if d.forced {
		return models.SectionOther
	}
	if typ, ok := s.semanticType(d); ok {
		return typ
	}

	cfg := s.cfg
	// A block that is mostly a tab strip or mostly links is navigation.
	if d.tablistText > 0 && float64(d.tablistText) >= cfg.NavLinkRatio*float64(d.textLen) {
		return models.SectionNav
	}
	if len(d.content.Links) >= cfg.NavMinLinks && float64(d.linkTextLen) >= cfg.NavLinkRatio*float64(d.textLen) {
		return models.SectionNav
	}

	if d.images > 0 {
		ratio := float64(d.images) / (float64(d.images) + float64(d.textLen)/100)
		if ratio >= cfg.HeroImageRatio {
			if !heroSeen && index <= cfg.HeroMaxIndex {
				return models.SectionHero
			}
			if d.images >= cfg.GalleryMinImages {
				return models.SectionGallery
			}
		}
	}

	if d.inputs >= cfg.FormMinInputs && d.textLen < d.inputs*100 {
		return models.SectionForm
	}

	if (d.listItems >= cfg.ListMinItems || d.tables > 0) &&
		float64(d.listTextLen) >= cfg.ListDominance*float64(d.textLen) {
		return models.SectionList
	}

	switch {
	case !articleSeen:
		return models.SectionArticle
	case len(d.content.Headings) > 0:
		return models.SectionArticle
	case index == total-1 && total >= 2 && d.textLen <= cfg.FooterMaxText:
		return models.SectionFooter
	}
	return models.SectionOther
}

// semanticType maps a block made of a single landmark element.
func (s *segmenter) semanticType(d *draft) (models.SectionType, bool) {
	if len(d.roots) != 1 || !s.t.IsElement(d.roots[0]) {
		return "", false
	}
	r := d.roots[0]
	if typ, ok := roleTypes[s.t.Attr(r, "role")]; ok {
		return typ, true
	}
	typ, ok := tagTypes[s.t.Node(r).Tag]
	return typ, ok
}
