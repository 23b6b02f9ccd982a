package session

import (
	"context"
	"fmt"
	"sync"

	"sjsage522/pagescope/internal/backend"
	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/internal/engine"
	"sjsage522/pagescope/internal/persist"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/pkg/errors"
)

// State is the lifecycle state of a Session
type State int

const (
	Unstarted State = iota
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options tunes query defaults
type Options struct {
	LinkLimit      int
	PrettyMaxLines int
}

// Session owns one backend and the document it last acquired. All methods
// are serialized; a Session has a single logical owner.
type Session struct {
	mu      sync.Mutex
	state   State
	backend backend.Backend
	engine  *engine.Engine
	sink    *persist.Sink
	log     *logger.Logger
	opts    Options

	doc  *document.Document
	tree *document.Tree
}

// New creates an unstarted Session
func New(b backend.Backend, e *engine.Engine, sink *persist.Sink, log *logger.Logger, opts Options) *Session {
	if log == nil {
		log = logger.Nop()
	}
	if e == nil {
		e = engine.New(log)
	}
	if opts.LinkLimit <= 0 {
		opts.LinkLimit = engine.DefaultLimit
	}
	if opts.PrettyMaxLines <= 0 {
		opts.PrettyMaxLines = engine.DefaultPrettyLines
	}
	return &Session{
		backend: b,
		engine:  e,
		sink:    sink,
		log:     log.ForComponent("session").WithField("backend", b.Name()),
		opts:    opts,
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves the session from Unstarted to Ready
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Ready:
		return nil
	case Closed:
		return s.refuse("start")
	}

	if err := s.backend.Start(ctx); err != nil {
		s.log.Error().Err(err).Str("op", "start").Msg("Backend startup failed")
		if errors.KindOf(err) == "" {
			err = errors.NewAcquisition(errors.KindBackendStartup, "start", s.backend.Name(), "failed to start backend", err)
		}
		return err
	}
	s.state = Ready
	s.log.Info().Str("op", "start").Msg("Session ready")
	return nil
}

// Close releases the document and the backend. It is safe in any state.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return nil
	}
	s.state = Closed
	s.releaseLocked()

	if err := s.backend.Close(); err != nil {
		s.log.Warn().Err(err).Str("op", "close").Msg("Backend close failed")
		return err
	}
	s.log.Info().Str("op", "close").Msg("Session closed")
	return nil
}

func (s *Session) releaseLocked() {
	if s.tree != nil {
		s.tree.Release()
	}
	s.tree = nil
	s.doc = nil
}

func (s *Session) refuse(op string) error {
	err := errors.NotReady(op, s.state.String())
	s.log.Warn().Str("op", op).Str("reason", err.Message).Msg("Operation refused")
	return err
}

// Fetch acquires source and makes it the current document. On failure the
// previous document stays loaded.
func (s *Session) Fetch(ctx context.Context, source string) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ready {
		return nil, s.refuse("fetch")
	}

	s.log.Info().Str("op", "fetch").Str("target", source).Msg("Fetching")
	doc, err := s.backend.Acquire(ctx, source)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("op", "fetch").
			Str("target", source).
			Str("reason", string(errors.KindOf(err))).
			Msg("Fetch failed")
		return nil, err
	}

	tree, err := document.Parse(doc)
	if err != nil {
		s.log.Error().Err(err).Str("op", "fetch").Str("target", source).Msg("Parse failed")
		return nil, errors.NewAcquisition(errors.KindDecodeFailure, "fetch", source, "failed to parse document", err)
	}

	s.releaseLocked()
	s.doc = doc
	s.tree = tree

	s.log.Info().
		Str("op", "fetch").
		Str("target", source).
		Str("source", doc.Source()).
		Str("encoding", doc.Encoding()).
		Int("content_length", doc.ContentLength()).
		Msg("Fetched")
	return doc, nil
}

// loadedLocked checks that the session is Ready and holds a document
func (s *Session) loadedLocked(op string) error {
	if s.state != Ready {
		return s.refuse(op)
	}
	if s.tree == nil {
		err := errors.NotLoaded(op)
		s.log.Warn().Str("op", op).Str("reason", err.Message).Msg("Operation refused")
		return err
	}
	return nil
}
