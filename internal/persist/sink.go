package persist

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/internal/engine"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/pkg/errors"
)

const (
	rawPrefix      = "saved_html_"
	snapshotPrefix = "screenshot_"
	reportPrefix   = "report_"

	timestampLayout = "20060102_150405"

	// maxSuffix bounds the search for a free file name within one second
	maxSuffix = 1000
)

// Sink writes artifacts to disk. Failures are returned, never escalated.
type Sink struct {
	dir string
	now func() time.Time
	log *logger.Logger
}

// Option configures a Sink
type Option func(*Sink)

// WithClock overrides the time source used for generated names
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// NewSink creates a Sink writing into dir
func NewSink(dir string, log *logger.Logger, opts ...Option) *Sink {
	if dir == "" {
		dir = "."
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Sink{
		dir: dir,
		now: time.Now,
		log: log.ForComponent("persist"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveRaw writes the document content and returns the written path
func (s *Sink) SaveRaw(doc *document.Document, filename string) (string, error) {
	return s.write("save_raw", filename, rawPrefix, ".html", []byte(doc.Content()))
}

// SaveSnapshot writes PNG bytes and returns the written path
func (s *Sink) SaveSnapshot(png []byte, filename string) (string, error) {
	return s.write("save_snapshot", filename, snapshotPrefix, ".png", png)
}

// SaveReport writes a report as indented JSON and returns the written path
func (s *Sink) SaveReport(report engine.Report, filename string) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.NewPersistence(errors.KindWriteFailure, "save_report", filename, "failed to encode report", err)
	}
	return s.write("save_report", filename, reportPrefix, ".json", data)
}

func (s *Sink) write(op, filename, prefix, ext string, data []byte) (string, error) {
	var (
		path string
		f    *os.File
		err  error
	)
	if filename == "" {
		path, f, err = s.createUnique(prefix, ext)
	} else {
		path = filename
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	}
	if err != nil {
		return "", s.fail(op, path, "failed to create file", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", s.fail(op, path, "failed to write file", err)
	}
	if err := f.Close(); err != nil {
		return "", s.fail(op, path, "failed to close file", err)
	}

	s.log.Info().
		Str("op", op).
		Str("target", path).
		Int("bytes", len(data)).
		Msg("Saved")
	return path, nil
}

// createUnique creates <prefix><timestamp><ext> in the output directory,
// adding _1, _2, ... when the name is taken.
func (s *Sink) createUnique(prefix, ext string) (string, *os.File, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return s.dir, nil, err
	}
	base := prefix + s.now().Format(timestampLayout)
	for i := 0; i < maxSuffix; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		path := filepath.Join(s.dir, name+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return path, f, nil
		}
		if !stderrors.Is(err, fs.ErrExist) {
			return path, nil, err
		}
	}
	return filepath.Join(s.dir, base+ext), nil, fmt.Errorf("no free file name for %s", base)
}

func (s *Sink) fail(op, target, msg string, err error) error {
	s.log.Error().
		Err(err).
		Str("op", op).
		Str("target", target).
		Msg(msg)
	return errors.NewPersistence(errors.KindWriteFailure, op, target, msg, err)
}
