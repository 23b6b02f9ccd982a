package document

import (
	"strings"

	"golang.org/x/net/html"
)

// Text inside these elements is never shown to a reader
var invisibleElements = map[string]bool{
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// TextLines returns every visible text node, trimmed, in document order
func (t *Tree) TextLines() []string {
	if t.Released() {
		return nil
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				lines = append(lines, s)
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			if invisibleElements[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range t.doc.Nodes {
		walk(n)
	}
	return lines
}

// PrettyLines renders the tree one node per line, indented one space per level
func (t *Tree) PrettyLines() []string {
	if t.Released() {
		return nil
	}

	var lines []string
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		indent := strings.Repeat(" ", depth)
		switch n.Type {
		case html.DocumentNode:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, depth)
			}
		case html.DoctypeNode:
			lines = append(lines, indent+"<!DOCTYPE "+n.Data+">")
		case html.CommentNode:
			lines = append(lines, indent+"<!--"+n.Data+"-->")
		case html.TextNode:
			raw := n.Parent != nil && invisibleElements[n.Parent.Data]
			for _, part := range strings.Split(n.Data, "\n") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if !raw {
					part = html.EscapeString(part)
				}
				lines = append(lines, indent+part)
			}
		case html.ElementNode:
			lines = append(lines, indent+openTag(n))
			if voidElements[n.Data] {
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, depth+1)
			}
			lines = append(lines, indent+"</"+n.Data+">")
		}
	}
	for _, n := range t.doc.Nodes {
		walk(n, 0)
	}
	return lines
}

func openTag(n *html.Node) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteString(" ")
		if a.Namespace != "" {
			b.WriteString(a.Namespace + ":")
		}
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	return b.String()
}
