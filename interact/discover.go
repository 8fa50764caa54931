package interact

import (
	"net/url"
	"slices"
	"strings"

	"github.com/use-agent/sift/dom"
	"github.com/use-agent/sift/rules"
)

// find returns the live elements matching p's selectors together with
// candidates whose label matches p's text patterns, in document order.
func find(t *dom.Tree, p rules.Pattern) []int {
	out := t.Find(p.Selectors)
	if len(p.Text) > 0 {
		for _, i := range t.Find(p.Candidates) {
			if p.MatchText(label(t, i)) {
				out = append(out, i)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// label is the visible text of a control, falling back to the attributes
// that name icon-only buttons.
func label(t *dom.Tree, i int) string {
	if txt := t.Text(i); txt != "" {
		return txt
	}
	for _, attr := range []string{"aria-label", "value", "title"} {
		if v := strings.TrimSpace(t.Attr(i, attr)); v != "" {
			return v
		}
	}
	return ""
}

func disabled(t *dom.Tree, i int) bool {
	return t.HasAttr(i, "disabled") || t.Attr(i, "aria-disabled") == "true"
}

func firstEnabled(t *dom.Tree, candidates []int) int {
	for _, i := range candidates {
		if !disabled(t, i) {
			return i
		}
	}
	return -1
}

// onPage keeps the candidates whose activation stays in the current
// document. Links to another document are dropped; fragment, script and
// empty hrefs stay.
func onPage(t *dom.Tree, base string, candidates []int) []int {
	baseURL, err := url.Parse(base)
	if err != nil {
		return candidates
	}
	current := canonical(baseURL)

	out := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if t.Node(i).Tag == "a" {
			if u := linkTarget(baseURL, t.Attr(i, "href")); u != nil && canonical(u) != current {
				continue
			}
		}
		out = append(out, i)
	}
	return out
}

// linkTarget resolves href against base, returning nil for hrefs that do
// not load a document: empty, fragment-only and non-http schemes.
func linkTarget(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	u, err := base.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	return u
}

// sameDocument reports whether two URLs name the same document.
func sameDocument(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return a == b
	}
	ub, err := url.Parse(b)
	if err != nil {
		return a == b
	}
	return canonical(ua) == canonical(ub)
}

// nextLink returns the target of the first pagination control with a
// usable href, resolved against base. Controls without an href are
// ignored; script-driven pagers are covered by "load more".
func nextLink(t *dom.Tree, base string, p rules.Pattern) *url.URL {
	if t == nil {
		return nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	current := canonical(baseURL)

	for _, i := range find(t, p) {
		u := linkTarget(baseURL, t.Attr(i, "href"))
		if u == nil {
			continue
		}
		u.Fragment = ""
		if canonical(u) == current {
			continue
		}
		return u
	}
	return nil
}

// sameOrigin compares scheme, host and effective port.
func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

// canonical is the visited-set key for u: fragment dropped, host lowercased.
func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Host = strings.ToLower(c.Host)
	return c.String()
}
