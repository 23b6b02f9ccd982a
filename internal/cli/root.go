package cli

import (
	"context"
	"fmt"
	"os"

	"sjsage522/pagescope/config"
	"sjsage522/pagescope/internal"
	"sjsage522/pagescope/internal/backend"
	"sjsage522/pagescope/internal/engine"
	"sjsage522/pagescope/internal/persist"
	"sjsage522/pagescope/internal/session"
	"sjsage522/pagescope/logger"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath string
	backend    string
	headless   bool
	logLevel   string
	outputDir  string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pagescope",
		Short: "Fetch HTML documents and query their structure",
		Long: `pagescope acquires an HTML document, either with a plain HTTP request
(or local file read) or by rendering it in a headless Chrome, and reports on
its structure: title and metadata, a tag census, links, images and text.

The document can then be explored interactively with class, id, tag and
CSS selector queries.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVarP(&opts.backend, "backend", "b", "", "Acquisition backend: static or rendered")
	cmd.PersistentFlags().BoolVar(&opts.headless, "headless", true, "Run the browser without a window (rendered backend)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for saved files")

	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// app bundles everything a command needs to build sessions
type app struct {
	cfg  *config.Config
	log  *logger.Logger
	deps *internal.Dependencies
}

// bootstrap loads configuration, applies flag overrides and connects services
func bootstrap(cmd *cobra.Command, opts *rootOptions, withPublisher bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("headless") {
		cfg.Headless = opts.headless
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		File:        cfg.LogFile,
		Console:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	deps, err := internal.NewDependencies(cmd.Context(), cfg, log, withPublisher)
	if err != nil {
		log.Close()
		return nil, err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("backend", cfg.Backend).
		Msg("Starting pagescope")

	return &app{cfg: cfg, log: log, deps: deps}, nil
}

// newSession builds an unstarted session for the configured backend
func (a *app) newSession() (*session.Session, error) {
	b, err := backend.New(a.cfg, a.log, a.deps.Cache)
	if err != nil {
		return nil, err
	}
	return session.New(
		b,
		engine.New(a.log),
		persist.NewSink(a.cfg.OutputDir, a.log),
		a.log,
		session.Options{
			LinkLimit:      a.cfg.LinkLimit,
			PrettyMaxLines: a.cfg.PrettyMaxLines,
		},
	), nil
}

func (a *app) Close() {
	a.deps.Close()
	a.log.Close()
}
