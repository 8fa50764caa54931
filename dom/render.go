package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

var rawTextElements = map[string]bool{
	"script": true, "style": true, "xmp": true, "iframe": true,
	"noembed": true, "noframes": true, "plaintext": true, "noscript": true,
}

// Render serializes the live subtree rooted at i. Comments are dropped.
func (t *Tree) Render(i int) string {
	var b strings.Builder
	t.render(&b, i)
	return b.String()
}

// RenderAll serializes several subtrees back to back.
func (t *Tree) RenderAll(roots []int) string {
	var b strings.Builder
	for _, r := range roots {
		t.render(&b, r)
	}
	return b.String()
}

func (t *Tree) render(b *strings.Builder, i int) {
	if t.dead[i] {
		return
	}
	n := &t.nodes[i]
	switch n.Type {
	case html.DocumentNode:
		for _, c := range n.Children {
			t.render(b, c)
		}
	case html.DoctypeNode:
		b.WriteString("<!DOCTYPE ")
		b.WriteString(n.Data)
		b.WriteString(">")
	case html.TextNode:
		if p := n.Parent; p >= 0 && rawTextElements[t.nodes[p].Tag] {
			b.WriteString(n.Data)
		} else {
			b.WriteString(html.EscapeString(n.Data))
		}
	case html.ElementNode:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		for _, a := range n.Attr {
			b.WriteByte(' ')
			if a.Namespace != "" {
				b.WriteString(a.Namespace)
				b.WriteByte(':')
			}
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(a.Val))
			b.WriteByte('"')
		}
		b.WriteByte('>')
		if voidElements[n.Tag] {
			return
		}
		for _, c := range n.Children {
			t.render(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}

// ChildPath returns the 1-based element-sibling positions from <html> down
// to i. Comparing two paths with slices.Compare orders nodes by document
// position.
func (t *Tree) ChildPath(i int) []int {
	var path []int
	for n := i; n >= 0 && t.nodes[n].Type == html.ElementNode; n = t.nodes[n].Parent {
		path = append(path, t.position(n))
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// Path returns a CSS selector addressing exactly element i, such as
// "html > body > main:nth-child(2) > button:nth-child(1)". Positions count
// every element sibling, dead or alive, so the selector still resolves in
// the live page the tree was extracted from.
func (t *Tree) Path(i int) string {
	var parts []string
	for n := i; n >= 0 && t.nodes[n].Type == html.ElementNode; n = t.nodes[n].Parent {
		switch tag := t.nodes[n].Tag; tag {
		case "html", "head", "body":
			parts = append(parts, tag)
		default:
			parts = append(parts, tag+":nth-child("+strconv.Itoa(t.position(n))+")")
		}
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, " > ")
}

func (t *Tree) position(i int) int {
	p := t.nodes[i].Parent
	if p < 0 {
		return 1
	}
	pos := 0
	for _, c := range t.nodes[p].Children {
		if t.nodes[c].Type == html.ElementNode {
			pos++
		}
		if c == i {
			break
		}
	}
	return pos
}
