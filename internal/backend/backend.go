package backend

import (
	"context"
	"fmt"

	"sjsage522/pagescope/config"
	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/services/cache"
)

// Backend acquires documents from a source
type Backend interface {
	// Name returns the backend name
	Name() string

	// Start prepares the backend; it is called once before any Acquire
	Start(ctx context.Context) error

	// Acquire fetches source and returns the decoded document
	Acquire(ctx context.Context, source string) (*document.Document, error)

	// Close releases every resource held by the backend
	Close() error
}

// Snapshotter is implemented by backends that can capture the rendered page
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// New creates the backend selected by cfg.Backend
func New(cfg *config.Config, log *logger.Logger, c cache.CacheService) (Backend, error) {
	switch cfg.Backend {
	case config.BackendStatic:
		opts := []StaticOption{
			WithTimeout(cfg.FetchTimeout),
			WithUserAgent(cfg.UserAgent),
			WithAcceptLanguage(cfg.AcceptLanguage),
			WithRetry(cfg.FetchRetries, cfg.RetryDelay),
			WithLogger(log),
		}
		if c != nil && cfg.CacheTTL > 0 {
			opts = append(opts, WithCache(c, cfg.CacheTTL))
		}
		return NewStatic(opts...), nil
	case config.BackendRendered:
		return NewRendered(NewRodDriver(), RenderedOptions{
			Launch: LaunchOptions{
				Headless:  cfg.Headless,
				Stealth:   cfg.Stealth,
				Bin:       cfg.BrowserBin,
				RemoteURL: cfg.BrowserRemoteURL,
				Locale:    cfg.Locale,
				UserAgent: cfg.UserAgent,
				Width:     cfg.ViewportWidth,
				Height:    cfg.ViewportHeight,
			},
			SettleDelay:       cfg.SettleDelay,
			WaitLoad:          cfg.WaitLoad,
			NavigationTimeout: cfg.NavigationTimeout,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
