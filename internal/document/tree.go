package document

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Tree is a read-only parsed view of a Document
type Tree struct {
	doc      *goquery.Document
	released atomic.Bool
}

// Parse builds a Tree from a Document
func Parse(d *Document) (*Tree, error) {
	if d == nil {
		return nil, fmt.Errorf("nil document")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(d.Content()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Tree{doc: doc}, nil
}

// Release invalidates the tree and every Element handle obtained from it
func (t *Tree) Release() {
	t.released.Store(true)
}

// Released reports whether Release has been called
func (t *Tree) Released() bool {
	return t.released.Load()
}

// FindByTag returns all elements with the given tag name
func (t *Tree) FindByTag(name string) []Element {
	if t.Released() {
		return nil
	}
	name = strings.ToLower(strings.TrimSpace(name))
	sel := t.doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return goquery.NodeName(s) == name
	})
	return newElements(t, sel)
}

// FindByClass returns all elements carrying every whitespace-separated class in name
func (t *Tree) FindByClass(name string) []Element {
	if t.Released() {
		return nil
	}
	classes := strings.Fields(name)
	if len(classes) == 0 {
		return []Element{}
	}
	sel := t.doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		for _, c := range classes {
			if !s.HasClass(c) {
				return false
			}
		}
		return true
	})
	return newElements(t, sel)
}

// FindByID returns the first element whose id attribute equals id
func (t *Tree) FindByID(id string) (Element, bool) {
	if t.Released() {
		return nil, false
	}
	sel := t.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return &node{tree: t, sel: sel}, true
}

// Select returns all elements matching a CSS selector
func (t *Tree) Select(selector string) ([]Element, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	if t.Released() {
		return nil, nil
	}
	return newElements(t, t.doc.FindMatcher(m)), nil
}

// Count returns the number of elements with the given tag name
func (t *Tree) Count(tag string) int {
	if t.Released() {
		return 0
	}
	m, err := cascadia.Compile(tag)
	if err != nil {
		return len(t.FindByTag(tag))
	}
	return t.doc.FindMatcher(m).Length()
}

// Title returns the trimmed text of the first title element
func (t *Tree) Title() (string, bool) {
	if t.Released() {
		return "", false
	}
	sel := t.doc.Find("title").First()
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.Text()), true
}

// MetaContent returns the content attribute of the first meta element with the given name
func (t *Tree) MetaContent(name string) string {
	if t.Released() {
		return ""
	}
	sel := t.doc.Find("meta[name]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("name")
		return strings.EqualFold(strings.TrimSpace(v), name)
	}).First()
	content, _ := sel.Attr("content")
	return content
}

// HTML renders the tree back to markup
func (t *Tree) HTML() string {
	if t.Released() {
		return ""
	}
	html, err := t.doc.Html()
	if err != nil {
		return ""
	}
	return html
}
