package document

import (
	"net/url"
	"path/filepath"
	"time"
	"unicode/utf8"
)

// Document is an acquired page. It is immutable once constructed.
type Document struct {
	source      string
	content     string
	encoding    string
	retrievedAt time.Time
}

// New creates a Document
func New(source, content, encoding string, retrievedAt time.Time) *Document {
	return &Document{
		source:      source,
		content:     content,
		encoding:    encoding,
		retrievedAt: retrievedAt,
	}
}

// Source returns the URL the content came from, or the file:// URL of a local path
func (d *Document) Source() string { return d.source }

// Content returns the decoded markup
func (d *Document) Content() string { return d.content }

// Encoding returns the resolved character encoding name
func (d *Document) Encoding() string { return d.encoding }

// RetrievedAt returns the acquisition time
func (d *Document) RetrievedAt() time.Time { return d.retrievedAt }

// ContentLength returns the content length in characters
func (d *Document) ContentLength() int { return utf8.RuneCountInString(d.content) }

// FileSource returns the file:// identifier for a local path
func FileSource(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// Resolve resolves ref against base. An empty base, an absolute ref or an
// unparsable value returns ref unchanged.
func Resolve(base, ref string) string {
	if base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
