package engine

import (
	"fmt"
	"strings"
	"time"

	"sjsage522/pagescope/internal/document"
)

const (
	// DefaultLimit caps link and image records when no limit is given
	DefaultLimit = 10
	// DefaultPrettyLines caps pretty-printed output when no limit is given
	DefaultPrettyLines = 50

	NoTitle = "(no title)"
	NoText  = "(no text)"
	NoAlt   = "(no alt)"
)

// PageInfo summarizes a document
type PageInfo struct {
	Source        string `json:"source"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Keywords      string `json:"keywords"`
	ContentLength int    `json:"content_length"`
}

// Census counts elements per tag over document.CensusTags
type Census map[string]int

// TagCount is one census entry
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Present returns the non-zero entries in vocabulary order
func (c Census) Present() []TagCount {
	var out []TagCount
	for _, tag := range document.CensusTags {
		if n := c[tag]; n > 0 {
			out = append(out, TagCount{Tag: tag, Count: n})
		}
	}
	return out
}

// LinkRecord is one extracted anchor
type LinkRecord struct {
	ResolvedURL       string `json:"resolved_url"`
	OriginalReference string `json:"original_reference"`
	Text              string `json:"text"`
}

// ImageRecord is one extracted image
type ImageRecord struct {
	ResolvedURL       string `json:"resolved_url"`
	OriginalReference string `json:"original_reference"`
	Alt               string `json:"alt"`
}

// LinkReport holds the total anchor count and the first records
type LinkReport struct {
	Total   int          `json:"total"`
	Records []LinkRecord `json:"records"`
}

// ImageReport holds the total image count and the first records
type ImageReport struct {
	Total   int           `json:"total"`
	Records []ImageRecord `json:"records"`
}

// Pretty is a truncated indented rendering
type Pretty struct {
	Lines   []string
	Total   int
	Omitted int
}

// String joins the lines and notes how many were left out
func (p Pretty) String() string {
	s := strings.Join(p.Lines, "\n")
	if p.Omitted > 0 {
		s += fmt.Sprintf("\n... %d more lines", p.Omitted)
	}
	return s
}

// Report aggregates the standard analysis of one document
type Report struct {
	PageInfo    PageInfo    `json:"page_info"`
	Census      Census      `json:"census"`
	Links       LinkReport  `json:"links"`
	Images      ImageReport `json:"images"`
	RetrievedAt time.Time   `json:"retrieved_at"`
	GeneratedAt time.Time   `json:"generated_at"`
}
