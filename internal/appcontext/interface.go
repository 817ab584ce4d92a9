// Package appcontext provides the shared application context interface
// used by all commands. This eliminates interface duplication across
// command packages and provides a single source of truth for app dependencies.
package appcontext

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/pkgfeed"
)

// Interface defines the application context interface that commands need.
// The App struct from cmd/pkgfeed/app implements this interface, so commands
// can be tested with the Mock.
type Interface interface {
	// Monitor returns the default monitor, creating it lazily if needed.
	Monitor() (pkgfeed.Monitor, error)

	// MonitorWithOptions creates a new monitor from the configuration with
	// extra options applied last. The caller closes it.
	MonitorWithOptions(opts ...pkgfeed.Option) (pkgfeed.Monitor, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// WatchInterval returns the configured interval between watch runs.
	WatchInterval() time.Duration

	// FlushMetrics writes the metrics textfile when one is configured.
	FlushMetrics() error

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
