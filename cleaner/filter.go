// Package cleaner removes non-content subtrees (consent banners, modal
// overlays, popups, hidden elements) from a parsed document.
package cleaner

import (
	"log/slog"
	"strings"

	"github.com/use-agent/sift/dom"
	"github.com/use-agent/sift/rules"
)

// dominantShare keeps a noise match that holds at least this share of the
// page's original text. Modal libraries mark the whole application root
// aria-hidden while a dialog is open, and site wrappers can carry classes
// like "popup-host".
const dominantShare = 0.5

// Filter returns a copy of tree with noise subtrees removed and the number
// of nodes removed. The input tree is left untouched so the caller can
// re-run extraction later. Heuristics are evaluated top-down; once an
// element is removed its descendants are not inspected.
//
// Filter never fails: if anything goes wrong the unfiltered copy is
// returned.
func Filter(tree *dom.Tree, rs *rules.Set) (out *dom.Tree, removed int) {
	if rs == nil {
		rs = rules.Default()
	}
	out = tree.Clone()

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("cleaner: noise filter aborted, keeping document unfiltered", "panic", r)
			out, removed = tree.Clone(), 0
		}
	}()

	pageText := 0
	if body := out.First("body"); body >= 0 {
		pageText = out.SourceTextLen(body)
	}

	out.Walk(0, func(i int) bool {
		if !out.IsElement(i) {
			return true
		}
		if isNoise(out, i, rs, pageText) {
			removed += out.Remove(i)
			return false
		}
		return true
	})
	return out, removed
}

func isNoise(t *dom.Tree, i int, rs *rules.Set, pageText int) bool {
	tag := t.Node(i).Tag
	switch {
	case rs.ProtectedTags[tag]:
		return false
	case rs.StripTags[tag]:
		return true
	case rs.Noise.Match(t.Source(i)), matchesClass(t, i, rs.NoiseClasses), isHidden(t, i, rs):
		return !keep(t, i, rs, pageText)
	}
	return false
}

// keep overrides a noise match on an element that wraps the page: one
// containing a protected element, or holding the dominant share of the
// original text.
func keep(t *dom.Tree, i int, rs *rules.Set, pageText int) bool {
	if wrapsProtected(t, i, rs) {
		slog.Debug("cleaner: keeping noise match around protected content", "path", t.Path(i))
		return true
	}
	if pageText > 0 && float64(t.SourceTextLen(i)) >= dominantShare*float64(pageText) {
		slog.Debug("cleaner: keeping dominant noise match", "path", t.Path(i))
		return true
	}
	return false
}

// wrapsProtected reports whether the subtree below i, as parsed, contains
// a protected element.
func wrapsProtected(t *dom.Tree, i int, rs *rules.Set) bool {
	for j := i + 1; j < t.Node(i).End; j++ {
		if rs.ProtectedTags[t.Node(j).Tag] {
			return true
		}
	}
	return false
}

func isHidden(t *dom.Tree, i int, rs *rules.Set) bool {
	if rs.Hidden.Match(t.Source(i)) {
		return true
	}
	if style := t.Attr(i, "style"); style != "" {
		for _, re := range rs.HiddenStyle {
			if re.MatchString(style) {
				return true
			}
		}
	}
	return false
}

func matchesClass(t *dom.Tree, i int, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	ident := strings.ToLower(t.Attr(i, "class") + " " + t.Attr(i, "id"))
	if strings.TrimSpace(ident) == "" {
		return false
	}
	for _, pat := range patterns {
		if strings.Contains(ident, pat) {
			return true
		}
	}
	return false
}
