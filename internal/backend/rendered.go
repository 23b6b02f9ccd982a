package backend

import (
	"context"
	stderrors "errors"
	"time"

	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/pkg/errors"
)

// DefaultSettleDelay is how long a rendered page is left to run scripts after navigation
const DefaultSettleDelay = 2 * time.Second

// LaunchOptions configures the browser process
type LaunchOptions struct {
	Headless  bool
	Stealth   bool
	Bin       string
	RemoteURL string
	Locale    string
	UserAgent string
	Width     int
	Height    int
}

// Driver controls one browser page
type Driver interface {
	Launch(ctx context.Context, opts LaunchOptions) error
	Navigate(ctx context.Context, url string) error
	WaitLoad(ctx context.Context) error
	// Content returns the live outer HTML and the current page URL
	Content(ctx context.Context) (string, string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// RenderedOptions configures a Rendered backend
type RenderedOptions struct {
	Launch            LaunchOptions
	SettleDelay       time.Duration
	WaitLoad          bool
	NavigationTimeout time.Duration
}

// Rendered acquires documents by rendering them in a browser
type Rendered struct {
	driver  Driver
	opts    RenderedOptions
	log     *logger.Logger
	now     func() time.Time
	started bool
	closed  bool
}

// NewRendered creates a Rendered backend around driver
func NewRendered(driver Driver, opts RenderedOptions, log *logger.Logger) *Rendered {
	if log == nil {
		log = logger.Nop()
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	return &Rendered{
		driver: driver,
		opts:   opts,
		log:    log.ForComponent("rendered"),
		now:    time.Now,
	}
}

// Name returns "rendered"
func (r *Rendered) Name() string { return "rendered" }

// Start launches or connects to the browser
func (r *Rendered) Start(ctx context.Context) error {
	if r.started {
		return nil
	}
	if r.closed {
		return errors.NewAcquisition(errors.KindBackendStartup, "start", "", "backend already closed", nil)
	}

	r.log.Info().
		Bool("headless", r.opts.Launch.Headless).
		Bool("stealth", r.opts.Launch.Stealth).
		Str("remote_url", r.opts.Launch.RemoteURL).
		Msg("Starting browser")

	if err := r.driver.Launch(ctx, r.opts.Launch); err != nil {
		r.log.Error().Err(err).Msg("Browser startup failed")
		// release whatever the failed launch left behind
		if cerr := r.driver.Close(); cerr != nil {
			r.log.Warn().Err(cerr).Msg("Cleanup after failed startup")
		}
		return errors.NewAcquisition(errors.KindBackendStartup, "start", r.opts.Launch.RemoteURL, "failed to start browser", err)
	}
	r.started = true
	return nil
}

// Acquire navigates to source, waits for the page to settle and reads the live markup
func (r *Rendered) Acquire(ctx context.Context, source string) (*document.Document, error) {
	if !r.started {
		return nil, errors.NewAcquisition(errors.KindBackendStartup, "fetch", source, "browser not started", nil)
	}

	navCtx := ctx
	if r.opts.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, r.opts.NavigationTimeout)
		defer cancel()
	}

	if err := r.driver.Navigate(navCtx, source); err != nil {
		return nil, r.navigationError(navCtx, source, "navigation failed", err)
	}
	if r.opts.WaitLoad {
		if err := r.driver.WaitLoad(navCtx); err != nil {
			return nil, r.navigationError(navCtx, source, "waiting for load failed", err)
		}
	}

	if r.opts.SettleDelay > 0 {
		timer := time.NewTimer(r.opts.SettleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, r.navigationError(ctx, source, "interrupted while settling", ctx.Err())
		}
	}

	html, current, err := r.driver.Content(ctx)
	if err != nil {
		return nil, r.navigationError(ctx, source, "failed to read page content", err)
	}
	if current == "" {
		current = source
	}

	r.log.Debug().
		Str("target", source).
		Str("current_url", current).
		Int("bytes", len(html)).
		Msg("Rendered page")

	return document.New(current, html, "utf-8", r.now()), nil
}

func (r *Rendered) navigationError(ctx context.Context, source, msg string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewAcquisition(errors.KindTimeout, "fetch", source, msg, err)
	}
	return errors.NewAcquisition(errors.KindTransport, "fetch", source, msg, err)
}

// Snapshot captures the current viewport as PNG
func (r *Rendered) Snapshot(ctx context.Context) ([]byte, error) {
	if !r.started {
		return nil, errors.NewAcquisition(errors.KindBackendStartup, "snapshot", "", "browser not started", nil)
	}
	png, err := r.driver.Screenshot(ctx)
	if err != nil {
		return nil, errors.NewAcquisition(errors.KindTransport, "snapshot", "", "screenshot failed", err)
	}
	return png, nil
}

// Close shuts the browser down. It is safe to call in any state and more than once.
func (r *Rendered) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.started = false

	if err := r.driver.Close(); err != nil {
		r.log.Warn().Err(err).Msg("Browser close failed")
		return err
	}
	r.log.Info().Msg("Browser closed")
	return nil
}
