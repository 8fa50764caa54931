// Package dom holds parsed HTML as an arena of nodes addressed by preorder
// index. Subtrees occupy contiguous index ranges, so deleting one is a
// matter of marking the range dead; the parsed nodes themselves are never
// mutated and may be shared between clones.
package dom

import (
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Node is one arena entry. Nodes are read-only once the tree is built.
type Node struct {
	Type     html.NodeType
	Tag      string // element name, empty for non-elements
	Data     string // text or comment payload
	Attr     []html.Attribute
	Parent   int   // -1 for the document node
	Children []int // direct children in document order
	End      int   // one past the last index of this node's subtree

	src *html.Node
}

// Matcher is satisfied by cascadia.Sel and cascadia.SelectorGroup.
type Matcher interface {
	Match(n *html.Node) bool
}

// Tree is a parsed document. The zero value is not usable; build one with
// Parse, ParseString or FromNode.
type Tree struct {
	nodes []Node
	dead  []bool
}

// Parse reads an HTML document into a Tree.
func Parse(r io.Reader) (*Tree, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return FromNode(root), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Tree, error) {
	return Parse(strings.NewReader(s))
}

// FromNode flattens an already parsed document into an arena.
func FromNode(root *html.Node) *Tree {
	t := &Tree{}
	t.add(root, -1)
	t.dead = make([]bool, len(t.nodes))
	return t
}

func (t *Tree) add(n *html.Node, parent int) int {
	i := len(t.nodes)
	node := Node{Type: n.Type, Attr: n.Attr, Parent: parent, src: n}
	switch n.Type {
	case html.ElementNode:
		node.Tag = n.Data
	case html.TextNode, html.CommentNode, html.DoctypeNode:
		node.Data = n.Data
	}
	t.nodes = append(t.nodes, node)

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		ci := t.add(c, i)
		t.nodes[i].Children = append(t.nodes[i].Children, ci)
	}
	t.nodes[i].End = len(t.nodes)
	return i
}

// Len returns the number of nodes, dead or alive.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node at index i. Callers must not modify it.
func (t *Tree) Node(i int) *Node { return &t.nodes[i] }

// Source returns the parsed html.Node backing index i.
func (t *Tree) Source(i int) *html.Node { return t.nodes[i].src }

// Alive reports whether node i survives all removals so far.
func (t *Tree) Alive(i int) bool { return !t.dead[i] }

// IsElement reports whether node i is an element.
func (t *Tree) IsElement(i int) bool { return t.nodes[i].Type == html.ElementNode }

// Remove marks the subtree rooted at i dead and returns how many nodes
// were newly removed.
func (t *Tree) Remove(i int) int {
	removed := 0
	for j := i; j < t.nodes[i].End; j++ {
		if !t.dead[j] {
			t.dead[j] = true
			removed++
		}
	}
	return removed
}

// Clone returns a tree sharing the parsed nodes but with its own liveness
// state, so removals on the clone leave the receiver untouched.
func (t *Tree) Clone() *Tree {
	return &Tree{nodes: t.nodes, dead: slices.Clone(t.dead)}
}

// Find returns the live elements matching m, in document order.
func (t *Tree) Find(m Matcher) []int {
	return t.FindIn(0, m)
}

// FindIn is Find restricted to the subtree rooted at root.
func (t *Tree) FindIn(root int, m Matcher) []int {
	var out []int
	if len(t.nodes) == 0 {
		return out
	}
	for i := root; i < t.nodes[root].End; {
		if t.dead[i] {
			i = t.nodes[i].End
			continue
		}
		if t.nodes[i].Type == html.ElementNode && m.Match(t.nodes[i].src) {
			out = append(out, i)
		}
		i++
	}
	return out
}

// Walk visits live nodes of the subtree rooted at root in document order.
// Returning false from fn skips the node's descendants.
func (t *Tree) Walk(root int, fn func(i int) bool) {
	for i := root; i < t.nodes[root].End; {
		if t.dead[i] || !fn(i) {
			i = t.nodes[i].End
			continue
		}
		i++
	}
}

// First returns the first live element with the given tag, or -1.
func (t *Tree) First(tag string) int {
	for i := range t.nodes {
		if !t.dead[i] && t.nodes[i].Type == html.ElementNode && t.nodes[i].Tag == tag {
			return i
		}
	}
	return -1
}

// Body returns the index of <body>, or -1 when it was removed or absent.
func (t *Tree) Body() int { return t.First("body") }

// Children returns the live direct children of i.
func (t *Tree) Children(i int) []int {
	out := make([]int, 0, len(t.nodes[i].Children))
	for _, c := range t.nodes[i].Children {
		if !t.dead[c] {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the value of attribute key on node i.
func (t *Tree) Attr(i int, key string) string {
	for _, a := range t.nodes[i].Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether node i carries attribute key.
func (t *Tree) HasAttr(i int, key string) bool {
	for _, a := range t.nodes[i].Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

// skipText lists elements whose character data is never visible text.
var skipText = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "title": true,
}

// Text returns the visible text of the live subtree rooted at i with
// whitespace collapsed to single spaces.
func (t *Tree) Text(i int) string {
	var parts []string
	t.Walk(i, func(j int) bool {
		n := &t.nodes[j]
		switch n.Type {
		case html.ElementNode:
			return !skipText[n.Tag]
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		return true
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// SourceTextLen returns the visible text length of the subtree rooted at i
// as originally parsed, ignoring removals. It is stable across Clone and
// Remove, which makes it safe to base removal decisions on.
func (t *Tree) SourceTextLen(i int) int {
	n := 0
	for j := i; j < t.nodes[i].End; {
		node := &t.nodes[j]
		if node.Type == html.ElementNode && skipText[node.Tag] {
			j = node.End
			continue
		}
		if node.Type == html.TextNode {
			n += len(strings.TrimSpace(node.Data))
		}
		j++
	}
	return n
}
