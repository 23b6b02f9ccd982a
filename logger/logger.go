package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"sjsage522/pagescope/helpers"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
	closer io.Closer
}

// Fields represents log fields
type Fields map[string]interface{}

// Options configures a Logger
type Options struct {
	// Level overrides the environment-derived level when set
	Level string
	// Environment selects the default level: info for production, debug otherwise
	Environment string
	// File receives JSON log lines in append mode; empty disables the file sink
	File string
	// Console receives human-readable lines; nil means stdout
	Console io.Writer
	// NoConsole disables the console writer
	NoConsole bool
}

// New creates a logger writing to the console and, optionally, a log file
func New(opts Options) (*Logger, error) {
	level := levelFor(opts.Level, opts.Environment)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	if !opts.NoConsole {
		out := opts.Console
		if out == nil {
			out = os.Stdout
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	}

	var closer io.Closer
	if opts.File != "" {
		f, err := helpers.OpenAppendLog(opts.File)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
		closer = f
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}

	l := &Logger{
		logger: zerolog.New(w).Level(level).With().Timestamp().Logger(),
		closer: closer,
	}

	l.Debug().
		Str("level", level.String()).
		Str("log_file", opts.File).
		Msg("Logger initialized")

	return l, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// levelFor resolves the log level from an explicit value or the environment name
func levelFor(levelStr, environment string) zerolog.Level {
	if levelStr == "" {
		if strings.EqualFold(environment, "production") {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := l.logger.With()
	for k, v := range fields {
		newLogger = newLogger.Interface(k, v)
	}
	return &Logger{logger: newLogger.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// ForComponent creates a logger tagged with a component name
func (l *Logger) ForComponent(name string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", name).Logger()}
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// IsDebugEnabled returns true if debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
