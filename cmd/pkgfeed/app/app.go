// Package app provides the application context and dependency management
// for the pkgfeed CLI. It centralizes configuration, dependency injection,
// and lifecycle management.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/pkgfeed"
	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/feed"
	"github.com/agentstation/pkgfeed/pkg/metrics"
	"github.com/agentstation/pkgfeed/pkg/state"
)

// App represents the pkgfeed application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Metrics are collected for every monitor the app creates
	recorder *metrics.PrometheusRecorder

	// Monitor instance (lazy-initialized, singleton)
	mu      sync.RWMutex
	monitor pkgfeed.Monitor
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration from the environment and the
// default config file locations; --config is honoured once flags are parsed.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version:  version,
		commit:   commit,
		date:     date,
		builtBy:  builtBy,
		recorder: metrics.NewPrometheusRecorder(nil),
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// WatchInterval returns the configured interval between watch runs.
func (a *App) WatchInterval() time.Duration {
	return a.config.WatchInterval
}

// Recorder returns the metrics recorder shared by all monitors.
func (a *App) Recorder() *metrics.PrometheusRecorder {
	return a.recorder
}

// Monitor returns the monitor instance, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Monitor() (pkgfeed.Monitor, error) {
	a.mu.RLock()
	if a.monitor != nil {
		m := a.monitor
		a.mu.RUnlock()
		return m, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.monitor != nil {
		return a.monitor, nil
	}

	m, err := a.newMonitor()
	if err != nil {
		return nil, err
	}

	a.monitor = m
	return m, nil
}

// MonitorWithOptions returns a new monitor with custom options applied after
// the configured ones. The caller closes it.
func (a *App) MonitorWithOptions(opts ...pkgfeed.Option) (pkgfeed.Monitor, error) {
	return a.newMonitor(opts...)
}

func (a *App) newMonitor(extra ...pkgfeed.Option) (pkgfeed.Monitor, error) {
	opts := append(a.buildOptions(), extra...)
	m, err := pkgfeed.New(opts...)
	if err != nil {
		return nil, errors.NewConfigError("monitor", "cannot create monitor", err)
	}
	return m, nil
}

// FlushMetrics writes the metrics textfile when metrics_file is set.
func (a *App) FlushMetrics() error {
	if a.config.MetricsFile == "" {
		return nil
	}
	if err := a.recorder.WriteTextfile(a.config.MetricsFile); err != nil {
		return errors.WrapIO("write", a.config.MetricsFile, err)
	}
	a.logger.Debug().Str("path", a.config.MetricsFile).Msg("Wrote metrics")
	return nil
}

// Shutdown performs graceful shutdown of the application.
// It closes the monitor and flushes metrics.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	m := a.monitor
	a.monitor = nil
	a.mu.Unlock()

	var closeErr error
	if m != nil {
		closeErr = m.Close()
	}
	if err := a.FlushMetrics(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to write metrics during shutdown")
	}
	return closeErr
}

// buildOptions constructs monitor options from the app configuration.
func (a *App) buildOptions() []pkgfeed.Option {
	c := a.config

	backend, err := state.ParseBackend(c.StateBackend)
	if err != nil {
		// Validate rejects unknown backends before any command runs
		backend = state.BackendFile
	}

	opts := []pkgfeed.Option{
		pkgfeed.WithAPIURL(c.APIURL),
		pkgfeed.WithUserAgent(c.UserAgent),
		pkgfeed.WithHTTPTimeout(c.HTTPTimeout),
		pkgfeed.WithFields(c.Fields...),
		pkgfeed.WithStateFile(c.StateFile),
		pkgfeed.WithStateBackend(backend),
		pkgfeed.WithChangesFile(c.ChangesFile),
		pkgfeed.WithFeedFile(c.FeedFile),
		pkgfeed.WithMaxItems(c.MaxItems),
		pkgfeed.WithContentGUIDs(c.ContentGUIDs),
		pkgfeed.WithFeedMetadata(feed.Metadata{
			Title:       c.FeedTitle,
			Link:        c.FeedLink,
			Description: c.FeedDescription,
			Language:    c.FeedLanguage,
			Category:    c.FeedCategory,
			TTL:         c.FeedTTL,
		}),
		pkgfeed.WithRecorder(a.recorder),
		pkgfeed.WithLogger(a.logger),
	}

	if len(c.IncludePackages) > 0 || len(c.ExcludePackages) > 0 {
		opts = append(opts, pkgfeed.WithPackageFilter(c.IncludePackages, c.ExcludePackages))
	}

	if c.Project != "" {
		opts = append(opts, pkgfeed.WithProject(c.Project))
	}

	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithMonitor sets a custom monitor instance (useful for testing).
func WithMonitor(m pkgfeed.Monitor) Option {
	return func(a *App) error {
		a.monitor = m
		return nil
	}
}
