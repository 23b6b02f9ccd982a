package engine

import (
	"strings"
	"time"

	"sjsage522/pagescope/helpers"
	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/pkg/errors"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Engine answers queries against a parsed document. It holds no document
// state; every call reads the tree it is given.
type Engine struct {
	log      *logger.Logger
	markdown *converter.Converter
	now      func() time.Time
}

// New creates an Engine
func New(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		log: log.ForComponent("engine"),
		markdown: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		now: time.Now,
	}
}

// PageInfo returns title, description, keywords and length of the document
func (e *Engine) PageInfo(doc *document.Document, tree *document.Tree) PageInfo {
	title, ok := tree.Title()
	if !ok || title == "" {
		title = NoTitle
	}
	return PageInfo{
		Source:        doc.Source(),
		Title:         title,
		Description:   tree.MetaContent("description"),
		Keywords:      tree.MetaContent("keywords"),
		ContentLength: doc.ContentLength(),
	}
}

// Census counts every vocabulary tag, zeros included
func (e *Engine) Census(tree *document.Tree) Census {
	c := make(Census, len(document.CensusTags))
	for _, tag := range document.CensusTags {
		c[tag] = tree.Count(tag)
	}
	return c
}

// FindByClass returns elements carrying the class
func (e *Engine) FindByClass(tree *document.Tree, name string) []document.Element {
	return tree.FindByClass(name)
}

// FindByTag returns elements with the tag name
func (e *Engine) FindByTag(tree *document.Tree, name string) []document.Element {
	return tree.FindByTag(name)
}

// FindByID returns the first element with the id
func (e *Engine) FindByID(tree *document.Tree, id string) (document.Element, bool) {
	return tree.FindByID(id)
}

// FindBySelector returns elements matching a CSS selector
func (e *Engine) FindBySelector(tree *document.Tree, selector string) ([]document.Element, error) {
	els, err := tree.Select(selector)
	if err != nil {
		return nil, errors.NewQuery(errors.KindSelectorInvalid, "find_by_selector", selector, "invalid selector", err)
	}
	return els, nil
}

// ExtractLinks reports every anchor and details the first limit that carry an href
func (e *Engine) ExtractLinks(doc *document.Document, tree *document.Tree, limit int) LinkReport {
	if limit <= 0 {
		limit = DefaultLimit
	}
	anchors := tree.FindByTag("a")
	report := LinkReport{Total: len(anchors), Records: []LinkRecord{}}
	for _, a := range anchors {
		if len(report.Records) >= limit {
			break
		}
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			continue
		}
		text := a.Text()
		if text == "" {
			text = NoText
		}
		report.Records = append(report.Records, LinkRecord{
			ResolvedURL:       document.Resolve(doc.Source(), href),
			OriginalReference: href,
			Text:              text,
		})
	}
	return report
}

// ExtractImages reports every image and details the first limit that carry a src
func (e *Engine) ExtractImages(doc *document.Document, tree *document.Tree, limit int) ImageReport {
	if limit <= 0 {
		limit = DefaultLimit
	}
	images := tree.FindByTag("img")
	report := ImageReport{Total: len(images), Records: []ImageRecord{}}
	for _, img := range images {
		if len(report.Records) >= limit {
			break
		}
		src, ok := img.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			continue
		}
		alt, _ := img.Attr("alt")
		if strings.TrimSpace(alt) == "" {
			alt = NoAlt
		}
		report.Records = append(report.Records, ImageRecord{
			ResolvedURL:       document.Resolve(doc.Source(), src),
			OriginalReference: src,
			Alt:               alt,
		})
	}
	return report
}

// ExtractText returns the visible text, one trimmed node per line
func (e *Engine) ExtractText(tree *document.Tree) string {
	return strings.Join(tree.TextLines(), "\n")
}

// PrettyPrint renders the tree indented and keeps at most maxLines lines
func (e *Engine) PrettyPrint(tree *document.Tree, maxLines int) Pretty {
	if maxLines <= 0 {
		maxLines = DefaultPrettyLines
	}
	lines := tree.PrettyLines()
	p := Pretty{Lines: lines, Total: len(lines)}
	if len(lines) > maxLines {
		p.Lines = lines[:maxLines]
		p.Omitted = len(lines) - maxLines
	}
	return p
}

// Markdown converts the document to Markdown. Relative links are made
// absolute for http(s) sources.
func (e *Engine) Markdown(doc *document.Document, tree *document.Tree) (string, error) {
	var (
		md  string
		err error
	)
	if helpers.IsHTTPURL(doc.Source()) {
		md, err = e.markdown.ConvertString(tree.HTML(), converter.WithDomain(doc.Source()))
	} else {
		md, err = e.markdown.ConvertString(tree.HTML())
	}
	if err != nil {
		e.log.Warn().Err(err).Str("target", doc.Source()).Msg("Markdown conversion failed")
		return "", errors.NewQuery(errors.KindConversionFailure, "markdown", doc.Source(), "conversion failed", err)
	}
	return md, nil
}

// BuildReport runs the standard analysis
func (e *Engine) BuildReport(doc *document.Document, tree *document.Tree, limit int) Report {
	return Report{
		PageInfo:    e.PageInfo(doc, tree),
		Census:      e.Census(tree),
		Links:       e.ExtractLinks(doc, tree, limit),
		Images:      e.ExtractImages(doc, tree, limit),
		RetrievedAt: doc.RetrievedAt(),
		GeneratedAt: e.now(),
	}
}
