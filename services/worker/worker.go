package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sjsage522/pagescope/internal/engine"
	"sjsage522/pagescope/internal/session"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/services/publisher"
)

// ReportKey is the stream field reports are published under
const ReportKey = "report"

// Message is the payload published for each analyzed source
type Message struct {
	Source string        `json:"source"`
	Report engine.Report `json:"report"`
}

// Worker periodically analyzes a list of sources and publishes the reports.
// Sources are processed one at a time through a single session.
type Worker struct {
	ctx       context.Context
	session   *session.Session
	sources   []string
	publisher publisher.Publisher
	logger    *logger.Logger
	interval  time.Duration
}

// NewWorker creates a new worker; pub may be nil to only log reports
func NewWorker(
	ctx context.Context,
	sess *session.Session,
	sources []string,
	pub publisher.Publisher,
	log *logger.Logger,
	interval time.Duration,
) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		ctx:       ctx,
		session:   sess,
		sources:   sources,
		publisher: pub,
		logger:    log.ForComponent("worker"),
		interval:  interval,
	}
}

// Start runs passes until the context is cancelled
func (w *Worker) Start() error {
	if w.interval <= 0 {
		return fmt.Errorf("worker interval must be positive, got %s", w.interval)
	}
	for {
		start := time.Now()
		failed := w.RunOnce()
		w.logger.Info().
			Dur("elapsed", time.Since(start)).
			Int("sources", len(w.sources)).
			Int("failed", len(failed)).
			Msg("Pass completed")

		timer := time.NewTimer(w.interval)
		select {
		case <-w.ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce analyzes every source once and returns the failures by source
func (w *Worker) RunOnce() map[string]error {
	failed := make(map[string]error)
	for _, source := range w.sources {
		if w.ctx.Err() != nil {
			break
		}
		if err := w.analyzeAndPublish(source); err != nil {
			w.logger.Error().Err(err).Str("target", source).Msg("Analysis failed")
			failed[source] = err
		}
	}

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			w.logger.Error().Err(err).Msg("Stream trimming failed")
		}
	}
	return failed
}

// analyzeAndPublish fetches a source, builds its report and publishes it
func (w *Worker) analyzeAndPublish(source string) error {
	if _, err := w.session.Fetch(w.ctx, source); err != nil {
		return err
	}

	report, err := w.session.Report()
	if err != nil {
		return err
	}

	data, err := json.Marshal(Message{Source: source, Report: report})
	if err != nil {
		return err
	}

	w.logger.Debug().
		Str("target", source).
		Str("title", report.PageInfo.Title).
		Int("links", report.Links.Total).
		Int("images", report.Images.Total).
		Msg("Report built")

	if w.publisher == nil {
		return nil
	}
	return w.publisher.Publish(ReportKey, data)
}
