// Package segment partitions a cleaned document into an ordered sequence
// of classified sections.
//
// Boundaries are top-level landmark elements (header, nav, main, section,
// article, footer and their ARIA role equivalents). Landmarks that contain
// further landmarks are descended into; content between landmarks, and
// documents without any, are split at h1-h3 headings. A block runs from
// its boundary to the next boundary of equal or higher priority.
package segment

import (
	"net/url"
	"strings"

	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/dom"
	"github.com/use-agent/sift/models"
	"golang.org/x/net/html"
)

// Block is a section before it has been numbered and attributed to a page.
type Block struct {
	models.Section

	// Anchor is the document position of the block's first root, used to
	// keep blocks from successive snapshots of one page in order.
	Anchor []int

	// Key is a selector path for the first root. Snapshots of the same
	// page yield the same key for the same region.
	Key string
}

// Result is the outcome of segmenting one document.
type Result struct {
	Blocks   []Block
	Warnings []string
}

var landmarkTags = map[string]bool{
	"header": true, "nav": true, "main": true,
	"section": true, "article": true, "footer": true,
}

var landmarkRoles = map[string]bool{
	"banner": true, "navigation": true, "main": true, "contentinfo": true,
}

// atomicTags never contain further blocks even when landmarks are nested inside.
var atomicTags = map[string]bool{
	"header": true, "nav": true, "article": true, "footer": true,
}

var atomicRoles = map[string]bool{
	"banner": true, "navigation": true, "contentinfo": true,
}

var mediaTags = map[string]bool{
	"img": true, "picture": true, "video": true, "input": true,
	"select": true, "textarea": true,
}

var invisibleTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

type group struct {
	roots  []int
	forced bool // whole-body fallback, always typed other
}

type segmenter struct {
	t          *dom.Tree
	cfg        config.SegmentConfig
	base       *url.URL
	nested     []int // live landmark descendants per node
	groups     []group
	boundaries int
}

// Segment converts a cleaned tree into blocks. baseURL resolves relative
// links and images. An empty document yields no blocks; a document
// without any boundary yields a single "other" block spanning the body.
func Segment(t *dom.Tree, baseURL string, cfg config.SegmentConfig) Result {
	var res Result
	body := t.Body()
	if body < 0 {
		res.Warnings = append(res.Warnings, "document has no body element")
		return res
	}

	base, _ := url.Parse(baseURL)
	s := &segmenter{t: t, cfg: cfg, base: base}
	s.countLandmarks()
	s.container(body)

	switch {
	case len(s.groups) == 0:
		res.Warnings = append(res.Warnings, "document body has no extractable content")
		return res
	case s.boundaries == 0:
		res.Warnings = append(res.Warnings, "no section boundaries found; treating the whole body as one section")
		s.groups = []group{{roots: s.contentChildren(body), forced: true}}
	}

	drafts := make([]*draft, 0, len(s.groups))
	for _, g := range s.groups {
		drafts = append(drafts, s.measure(g))
	}
	s.classify(drafts)

	for _, d := range drafts {
		res.Blocks = append(res.Blocks, s.build(d))
	}
	return res
}

// Sections attributes blocks to sourceURL. IDs are left for AssignIDs.
func Sections(blocks []Block, sourceURL string) []models.Section {
	out := make([]models.Section, 0, len(blocks))
	for _, b := range blocks {
		sec := b.Section
		sec.SourceURL = sourceURL
		out = append(out, sec)
	}
	return out
}

func (s *segmenter) countLandmarks() {
	s.nested = make([]int, s.t.Len())
	for i := s.t.Len() - 1; i > 0; i-- {
		p := s.t.Node(i).Parent
		if p < 0 || !s.t.Alive(i) {
			continue
		}
		s.nested[p] += s.nested[i]
		if s.isLandmark(i) {
			s.nested[p]++
		}
	}
}

func (s *segmenter) isLandmark(i int) bool {
	if !s.t.IsElement(i) {
		return false
	}
	return landmarkTags[s.t.Node(i).Tag] || landmarkRoles[s.t.Attr(i, "role")]
}

func (s *segmenter) isAtomic(i int) bool {
	return atomicTags[s.t.Node(i).Tag] || atomicRoles[s.t.Attr(i, "role")] || s.nested[i] == 0
}

// container walks the children of parent, emitting atomic landmarks as
// blocks, descending into landmark-bearing wrappers and collecting loose
// content into runs.
func (s *segmenter) container(parent int) {
	var run []int
	for _, c := range s.t.Children(parent) {
		switch {
		case s.isLandmark(c) && s.isAtomic(c):
			s.flush(run)
			run = nil
			s.boundaries++
			s.emit([]int{c})
		case s.t.IsElement(c) && s.nested[c] > 0:
			s.flush(run)
			run = nil
			if s.isLandmark(c) {
				s.boundaries++
			}
			s.container(c)
		default:
			run = append(run, c)
		}
	}
	s.flush(run)
}

// flush splits a run of loose siblings at headings.
func (s *segmenter) flush(run []int) {
	run = s.descend(run)
	if !s.hasContent(run) {
		return
	}

	levels := make([]int, len(run))
	var count [4]int
	for k, m := range run {
		levels[k] = s.leadingHeading(m, 0)
		count[levels[k]]++
	}

	// Split at the highest-priority level that repeats; a lone h1 title
	// then stays with its intro rather than swallowing every h2 section.
	split := 0
	for l := 1; l <= 3 && split == 0; l++ {
		if count[l] >= 2 {
			split = l
		}
	}
	for l := 1; l <= 3 && split == 0; l++ {
		if count[l] > 0 {
			split = l
		}
	}
	if split == 0 {
		s.emit(run)
		return
	}

	var cur []int
	for k, m := range run {
		if levels[k] > 0 && levels[k] <= split {
			if s.hasContent(cur) {
				s.emit(cur)
			}
			cur = nil
			s.boundaries++
		}
		cur = append(cur, m)
	}
	if s.hasContent(cur) {
		s.emit(cur)
	}
}

// descend unwraps a run consisting of a single wrapper element whose
// children are led by headings.
func (s *segmenter) descend(run []int) []int {
	for {
		only, n := -1, 0
		for _, m := range run {
			if s.contentful(m) {
				only = m
				n++
			}
		}
		if n != 1 || !s.t.IsElement(only) || headingLevel(s.t.Node(only).Tag) > 0 {
			return run
		}
		children := s.t.Children(only)
		led := false
		for _, c := range children {
			if s.leadingHeading(c, 0) > 0 {
				led = true
				break
			}
		}
		if !led {
			return run
		}
		run = children
	}
}

// leadingHeading returns the level of the h1-h3 heading that opens node i,
// looking through at most two wrapper levels, or 0.
func (s *segmenter) leadingHeading(i, depth int) int {
	if !s.t.IsElement(i) {
		return 0
	}
	tag := s.t.Node(i).Tag
	if l := headingLevel(tag); l > 0 {
		if l > 3 {
			return 0
		}
		return l
	}
	if depth >= 2 || listTags[tag] || tag == "table" {
		return 0
	}
	for _, c := range s.t.Children(i) {
		if !s.contentful(c) {
			continue
		}
		return s.leadingHeading(c, depth+1)
	}
	return 0
}

// emit records a block, trimming blank roots from either end.
func (s *segmenter) emit(roots []int) {
	for len(roots) > 0 && !s.contentful(roots[0]) {
		roots = roots[1:]
	}
	for len(roots) > 0 && !s.contentful(roots[len(roots)-1]) {
		roots = roots[:len(roots)-1]
	}
	if len(roots) > 0 {
		s.groups = append(s.groups, group{roots: roots})
	}
}

func (s *segmenter) hasContent(roots []int) bool {
	for _, r := range roots {
		if s.contentful(r) {
			return true
		}
	}
	return false
}

// contentful reports whether node i holds visible text or media.
func (s *segmenter) contentful(i int) bool {
	found := false
	s.t.Walk(i, func(j int) bool {
		if found {
			return false
		}
		n := s.t.Node(j)
		switch n.Type {
		case html.ElementNode:
			if mediaTags[n.Tag] {
				found = true
				return false
			}
			return !invisibleTags[n.Tag]
		case html.TextNode:
			found = strings.TrimSpace(n.Data) != ""
		}
		return true
	})
	return found
}

func (s *segmenter) contentChildren(i int) []int {
	var out []int
	for _, c := range s.t.Children(i) {
		if s.contentful(c) {
			out = append(out, c)
		}
	}
	return out
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}
