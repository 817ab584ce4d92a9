// Package logging provides structured logging for pkgfeed using zerolog.
//
// Every pipeline run carries its logger in the context, tagged with the
// project, the stage and a run ID:
//
//	ctx = logging.WithRunID(logging.WithProject(ctx, "zsh"), id)
//	logging.FromContext(ctx).Info().Int("packages", 42).Msg("Extracted snapshot")
//
// The package-level logger is configured from PKGFEED_LOG_* variables and
// is used when a context carries none.
package logging

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = NewLoggerFromConfig(ConfigFromEnv())

// Default returns the package-level logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the package-level logger and zerolog's global one.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a JSON logger writing to w at the global level.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// Debug starts a debug event on the package-level logger.
func Debug() *zerolog.Event { return defaultLogger.Debug() }

// Info starts an info event on the package-level logger.
func Info() *zerolog.Event { return defaultLogger.Info() }

// Warn starts a warning event on the package-level logger.
func Warn() *zerolog.Event { return defaultLogger.Warn() }

// Error starts an error event on the package-level logger.
func Error() *zerolog.Event { return defaultLogger.Error() }
