package segment

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/use-agent/sift/models"
)

var listTags = map[string]bool{"ul": true, "ol": true, "dl": true}

var inputTags = map[string]bool{"input": true, "select": true, "textarea": true}

// imageSrcAttrs are tried in order; lazy loaders park the real URL in a
// data attribute and leave a placeholder in src.
var imageSrcAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

// draft accumulates everything classification and output need for a block.
type draft struct {
	roots  []int
	forced bool
	typ    models.SectionType

	text        string
	textLen     int
	linkTextLen int
	listTextLen int
	listItems   int
	tables      int
	images      int
	inputs      int
	tablistText int

	content models.SectionContent
}

func (s *segmenter) measure(g group) *draft {
	d := &draft{roots: g.roots, forced: g.forced, content: models.NewSectionContent()}

	var parts []string
	for _, r := range g.roots {
		if txt := s.t.Text(r); txt != "" {
			parts = append(parts, txt)
		}
		s.collect(d, r)
		s.listText(d, r)
	}
	d.text = strings.Join(parts, " ")
	d.textLen = utf8.RuneCountInString(d.text)
	return d
}

func (s *segmenter) collect(d *draft, root int) {
	seen := make(map[models.Link]bool)
	s.t.Walk(root, func(i int) bool {
		if !s.t.IsElement(i) {
			return true
		}
		tag := s.t.Node(i).Tag
		if invisibleTags[tag] {
			return false
		}
		if s.t.Attr(i, "role") == "tablist" {
			d.tablistText += utf8.RuneCountInString(s.t.Text(i))
		}

		switch {
		case headingLevel(tag) > 0:
			if h := s.t.Text(i); h != "" {
				d.content.Headings = append(d.content.Headings, h)
			}
		case tag == "a":
			txt := s.t.Text(i)
			d.linkTextLen += utf8.RuneCountInString(txt)
			href := s.resolve(s.t.Attr(i, "href"))
			if href == "" {
				break
			}
			if txt == "" {
				txt = firstNonEmpty(s.t.Attr(i, "aria-label"), s.t.Attr(i, "title"))
			}
			l := models.Link{Text: txt, Href: href}
			if !seen[l] {
				seen[l] = true
				d.content.Links = append(d.content.Links, l)
			}
		case tag == "img":
			for _, attr := range imageSrcAttrs {
				if src := s.resolve(s.t.Attr(i, attr)); src != "" {
					d.images++
					d.content.Images = append(d.content.Images, models.Image{Src: src, Alt: strings.TrimSpace(s.t.Attr(i, "alt"))})
					break
				}
			}
		case inputTags[tag]:
			switch strings.ToLower(s.t.Attr(i, "type")) {
			case "hidden", "submit", "button", "reset", "image":
			default:
				d.inputs++
			}
		case tag == "ul" || tag == "ol":
			var items []string
			for _, c := range s.t.Children(i) {
				if s.t.IsElement(c) && s.t.Node(c).Tag == "li" {
					if txt := s.t.Text(c); txt != "" {
						items = append(items, txt)
					}
				}
			}
			if len(items) > 0 {
				d.listItems += len(items)
				d.content.Lists = append(d.content.Lists, items)
			}
		case tag == "table":
			if rows := s.tableRows(i); len(rows) > 0 {
				d.tables++
				d.listItems += len(rows)
				d.content.Tables = append(d.content.Tables, rows)
			}
		}
		return true
	})
}

// listText adds the text held by outermost lists and tables under root.
func (s *segmenter) listText(d *draft, root int) {
	s.t.Walk(root, func(i int) bool {
		if !s.t.IsElement(i) {
			return true
		}
		tag := s.t.Node(i).Tag
		if listTags[tag] || tag == "table" {
			d.listTextLen += utf8.RuneCountInString(s.t.Text(i))
			return false
		}
		return !invisibleTags[tag]
	})
}

// tableRows returns the cell text of rows belonging to table, leaving
// nested tables to be reported on their own.
func (s *segmenter) tableRows(table int) [][]string {
	var rows [][]string
	s.t.Walk(table, func(i int) bool {
		if !s.t.IsElement(i) {
			return true
		}
		switch s.t.Node(i).Tag {
		case "table":
			return i == table
		case "tr":
			var cells []string
			for _, c := range s.t.Children(i) {
				if s.t.IsElement(c) && (s.t.Node(c).Tag == "td" || s.t.Node(c).Tag == "th") {
					cells = append(cells, s.t.Text(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		}
		return true
	})
	return rows
}

// resolve makes ref absolute against the page URL. Fragment-only,
// javascript:, mailto:, tel: and data: references resolve to "".
func (s *segmenter) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if s.base != nil {
		u = s.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func (s *segmenter) build(d *draft) Block {
	content := d.content
	var truncated bool
	content.Text, truncated = truncateRunes(d.text, s.cfg.MaxTextLength)

	raw, rawCut := truncateRunes(s.t.RenderAll(d.roots), s.cfg.MaxRawHTMLLength)
	anchor := s.anchorOf(d)

	return Block{
		Section: models.Section{
			Type:      d.typ,
			Label:     s.label(d),
			Content:   content,
			RawHTML:   raw,
			Truncated: truncated || rawCut,
		},
		Anchor: s.t.ChildPath(anchor),
		Key:    s.t.Path(anchor),
	}
}

// anchorOf returns the first element root of d, or the parent of a
// leading text root.
func (s *segmenter) anchorOf(d *draft) int {
	for _, r := range d.roots {
		if s.t.IsElement(r) {
			return r
		}
	}
	return s.t.Node(d.roots[0]).Parent
}

// label picks the first heading, then an aria-label on the block root,
// then the opening words of the text.
func (s *segmenter) label(d *draft) string {
	if len(d.content.Headings) > 0 {
		l, _ := truncateRunes(d.content.Headings[0], s.cfg.LabelMaxLength)
		return l
	}
	for _, r := range d.roots {
		if s.t.IsElement(r) {
			if l := strings.TrimSpace(s.t.Attr(r, "aria-label")); l != "" {
				l, _ = truncateRunes(l, s.cfg.LabelMaxLength)
				return l
			}
		}
	}
	words := strings.Fields(d.text)
	if len(words) > 8 {
		words = words[:8]
	}
	l, _ := truncateRunes(strings.Join(words, " "), s.cfg.LabelMaxLength)
	return l
}

// truncateRunes cuts s to at most n runes. n <= 0 disables the cap.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	k := 0
	for i := range s {
		if k == n {
			return s[:i], true
		}
		k++
	}
	return s, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
