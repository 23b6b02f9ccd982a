package session

import (
	"context"

	"sjsage522/pagescope/internal/backend"
	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/internal/engine"
	"sjsage522/pagescope/pkg/errors"
)

// PageInfo summarizes the current document
func (s *Session) PageInfo() (engine.PageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("page_info"); err != nil {
		return engine.PageInfo{}, err
	}
	return s.engine.PageInfo(s.doc, s.tree), nil
}

// Census counts the vocabulary tags of the current document
func (s *Session) Census() (engine.Census, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("census"); err != nil {
		return nil, err
	}
	return s.engine.Census(s.tree), nil
}

// FindByClass returns elements carrying the class
func (s *Session) FindByClass(name string) ([]document.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("find_by_class"); err != nil {
		return nil, err
	}
	els := s.engine.FindByClass(s.tree, name)
	s.logFind("find_by_class", name, len(els))
	return els, nil
}

// FindByTag returns elements with the tag name
func (s *Session) FindByTag(name string) ([]document.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("find_by_tag"); err != nil {
		return nil, err
	}
	els := s.engine.FindByTag(s.tree, name)
	s.logFind("find_by_tag", name, len(els))
	return els, nil
}

// FindByID returns the first element with the id; ok is false when none matches
func (s *Session) FindByID(id string) (el document.Element, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("find_by_id"); err != nil {
		return nil, false, err
	}
	el, ok = s.engine.FindByID(s.tree, id)
	n := 0
	if ok {
		n = 1
	}
	s.logFind("find_by_id", id, n)
	return el, ok, nil
}

// FindBySelector returns elements matching a CSS selector
func (s *Session) FindBySelector(selector string) ([]document.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("find_by_selector"); err != nil {
		return nil, err
	}
	els, err := s.engine.FindBySelector(s.tree, selector)
	if err != nil {
		s.log.Warn().Err(err).Str("op", "find_by_selector").Str("target", selector).Str("reason", "invalid selector").Msg("Query failed")
		return nil, err
	}
	s.logFind("find_by_selector", selector, len(els))
	return els, nil
}

// ExtractLinks reports the anchors of the current document; limit <= 0 uses the session default
func (s *Session) ExtractLinks(limit int) (engine.LinkReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("extract_links"); err != nil {
		return engine.LinkReport{}, err
	}
	return s.engine.ExtractLinks(s.doc, s.tree, s.limit(limit)), nil
}

// ExtractImages reports the images of the current document; limit <= 0 uses the session default
func (s *Session) ExtractImages(limit int) (engine.ImageReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("extract_images"); err != nil {
		return engine.ImageReport{}, err
	}
	return s.engine.ExtractImages(s.doc, s.tree, s.limit(limit)), nil
}

// ExtractText returns the visible text of the current document
func (s *Session) ExtractText() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("extract_text"); err != nil {
		return "", err
	}
	return s.engine.ExtractText(s.tree), nil
}

// PrettyPrint renders the current document; maxLines <= 0 uses the session default
func (s *Session) PrettyPrint(maxLines int) (engine.Pretty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("pretty_print"); err != nil {
		return engine.Pretty{}, err
	}
	if maxLines <= 0 {
		maxLines = s.opts.PrettyMaxLines
	}
	return s.engine.PrettyPrint(s.tree, maxLines), nil
}

// Markdown converts the current document to Markdown
func (s *Session) Markdown() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("markdown"); err != nil {
		return "", err
	}
	return s.engine.Markdown(s.doc, s.tree)
}

// Report runs the standard analysis of the current document
func (s *Session) Report() (engine.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("report"); err != nil {
		return engine.Report{}, err
	}
	return s.engine.BuildReport(s.doc, s.tree, s.opts.LinkLimit), nil
}

// SaveRaw writes the current document's markup; an empty filename generates one
func (s *Session) SaveRaw(filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("save_raw"); err != nil {
		return "", err
	}
	if s.sink == nil {
		return "", errors.NewPersistence(errors.KindUnsupported, "save_raw", filename, "no output sink configured", nil)
	}
	return s.sink.SaveRaw(s.doc, filename)
}

// SaveSnapshot captures the rendered page and writes it as PNG
func (s *Session) SaveSnapshot(ctx context.Context, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ready {
		return "", s.refuse("save_snapshot")
	}
	snap, ok := s.backend.(backend.Snapshotter)
	if !ok || s.sink == nil {
		err := errors.NewPersistence(errors.KindUnsupported, "save_snapshot", filename, s.backend.Name()+" backend cannot capture snapshots", nil)
		s.log.Warn().Str("op", "save_snapshot").Str("reason", err.Message).Msg("Snapshot refused")
		return "", err
	}

	png, err := snap.Snapshot(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("op", "save_snapshot").Msg("Snapshot failed")
		return "", errors.NewPersistence(errors.KindWriteFailure, "save_snapshot", filename, "failed to capture snapshot", err)
	}
	return s.sink.SaveSnapshot(png, filename)
}

// SaveReport writes the standard analysis as JSON
func (s *Session) SaveReport(filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadedLocked("save_report"); err != nil {
		return "", err
	}
	if s.sink == nil {
		return "", errors.NewPersistence(errors.KindUnsupported, "save_report", filename, "no output sink configured", nil)
	}
	return s.sink.SaveReport(s.engine.BuildReport(s.doc, s.tree, s.opts.LinkLimit), filename)
}

func (s *Session) limit(n int) int {
	if n <= 0 {
		return s.opts.LinkLimit
	}
	return n
}

func (s *Session) logFind(op, target string, n int) {
	s.log.Debug().Str("op", op).Str("target", target).Int("matches", n).Msg("Query")
}
