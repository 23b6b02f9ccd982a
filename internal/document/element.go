package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a handle to one node of a parsed tree.
//
// A handle is only meaningful while its tree is live: once the tree is
// released, Valid reports false and every accessor returns a zero value.
type Element interface {
	Tag() string
	Attr(name string) (string, bool)
	Attrs() map[string]string
	Text() string
	Children() []Element
	OuterHTML() string
	Valid() bool
}

type node struct {
	tree *Tree
	sel  *goquery.Selection
}

func newElements(t *Tree, sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &node{tree: t, sel: s})
	})
	return out
}

func (n *node) Valid() bool {
	return n.tree != nil && !n.tree.Released()
}

func (n *node) Tag() string {
	if !n.Valid() {
		return ""
	}
	return goquery.NodeName(n.sel)
}

func (n *node) Attr(name string) (string, bool) {
	if !n.Valid() {
		return "", false
	}
	return n.sel.Attr(name)
}

func (n *node) Attrs() map[string]string {
	if !n.Valid() || len(n.sel.Nodes) == 0 {
		return map[string]string{}
	}
	attrs := make(map[string]string, len(n.sel.Nodes[0].Attr))
	for _, a := range n.sel.Nodes[0].Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

// Text returns the element's text with runs of whitespace collapsed
func (n *node) Text() string {
	if !n.Valid() {
		return ""
	}
	return strings.Join(strings.Fields(n.sel.Text()), " ")
}

func (n *node) Children() []Element {
	if !n.Valid() {
		return nil
	}
	return newElements(n.tree, n.sel.Children())
}

func (n *node) OuterHTML() string {
	if !n.Valid() {
		return ""
	}
	html, err := goquery.OuterHtml(n.sel)
	if err != nil {
		return ""
	}
	return html
}
