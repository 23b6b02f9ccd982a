package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"sjsage522/pagescope/helpers"
	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/internal/engine"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	// previewCount is how many matches a search prints
	previewCount = 5
	// previewText is the rune budget for an element's text in a preview
	previewText = 50
)

type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(p.w)
	return t
}

func (p *printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *printer) section(title string) {
	fmt.Fprintf(p.w, "\n=== %s ===\n", title)
}

func (p *printer) report(r engine.Report) {
	p.pageInfo(r.PageInfo)
	p.census(r.Census)
	p.links(r.Links)
	p.images(r.Images)
}

func (p *printer) pageInfo(info engine.PageInfo) {
	p.section("Page")
	t := p.newTable()
	t.AppendRow(table.Row{"Source", info.Source})
	t.AppendRow(table.Row{"Title", info.Title})
	t.AppendRow(table.Row{"Description", info.Description})
	t.AppendRow(table.Row{"Keywords", info.Keywords})
	t.AppendRow(table.Row{"Length", fmt.Sprintf("%d characters", info.ContentLength)})
	t.Render()
}

func (p *printer) census(c engine.Census) {
	p.section("Structure")
	present := c.Present()
	if len(present) == 0 {
		p.line("No common tags found")
		return
	}
	t := p.newTable()
	t.AppendHeader(table.Row{"Tag", "Count"})
	for _, tc := range present {
		t.AppendRow(table.Row{"<" + tc.Tag + ">", tc.Count})
	}
	t.Render()
}

func (p *printer) links(r engine.LinkReport) {
	p.section(fmt.Sprintf("Links (%d)", r.Total))
	if len(r.Records) == 0 {
		return
	}
	t := p.newTable()
	t.AppendHeader(table.Row{"#", "Text", "URL"})
	for i, l := range r.Records {
		t.AppendRow(table.Row{i + 1, helpers.Truncate(l.Text, previewText), l.ResolvedURL})
	}
	if len(r.Records) < r.Total {
		t.SetCaption("showing %d of %d", len(r.Records), r.Total)
	}
	t.Render()
}

func (p *printer) images(r engine.ImageReport) {
	p.section(fmt.Sprintf("Images (%d)", r.Total))
	if len(r.Records) == 0 {
		return
	}
	t := p.newTable()
	t.AppendHeader(table.Row{"#", "Alt", "URL"})
	for i, img := range r.Records {
		t.AppendRow(table.Row{i + 1, helpers.Truncate(img.Alt, previewText), img.ResolvedURL})
	}
	if len(r.Records) < r.Total {
		t.SetCaption("showing %d of %d", len(r.Records), r.Total)
	}
	t.Render()
}

// elements prints the match count and a preview of the first matches
func (p *printer) elements(query string, els []document.Element) {
	p.line(fmt.Sprintf("%s: %d element(s) found", query, len(els)))
	if len(els) == 0 {
		return
	}
	t := p.newTable()
	t.AppendHeader(table.Row{"#", "Tag", "Attributes", "Text"})
	for i, el := range els {
		if i >= previewCount {
			break
		}
		t.AppendRow(table.Row{i + 1, el.Tag(), formatAttrs(el.Attrs()), helpers.Truncate(el.Text(), previewText)})
	}
	if len(els) > previewCount {
		t.SetCaption("showing %d of %d", previewCount, len(els))
	}
	t.Render()
}

func (p *printer) saved(label, path string, err error) {
	if err != nil {
		p.line(fmt.Sprintf("%s not saved: %v", label, err))
		return
	}
	p.line(fmt.Sprintf("%s saved to %s", label, path))
}

func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, helpers.Truncate(attrs[k], 30)))
	}
	return strings.Join(parts, " ")
}
