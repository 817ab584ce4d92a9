package appcontext

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/pkgfeed"
	"github.com/agentstation/pkgfeed/pkg/logging"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	MonitorFunc            func() (pkgfeed.Monitor, error)
	MonitorWithOptionsFunc func(...pkgfeed.Option) (pkgfeed.Monitor, error)
	LoggerFunc             func() *zerolog.Logger
	Format                 string
	Interval               time.Duration
	FlushMetricsFunc       func() error
	VersionFunc            func() string
}

// Monitor returns a monitor using the mock function or nil.
func (m *Mock) Monitor() (pkgfeed.Monitor, error) {
	if m.MonitorFunc != nil {
		return m.MonitorFunc()
	}
	return nil, nil
}

// MonitorWithOptions returns a monitor using the mock function, falling back
// to pkgfeed.New.
func (m *Mock) MonitorWithOptions(opts ...pkgfeed.Option) (pkgfeed.Monitor, error) {
	if m.MonitorWithOptionsFunc != nil {
		return m.MonitorWithOptionsFunc(opts...)
	}
	return pkgfeed.New(opts...)
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	return logging.NewNopLogger()
}

// OutputFormat returns the configured format or "table".
func (m *Mock) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "table"
}

// WatchInterval returns the configured interval or one hour.
func (m *Mock) WatchInterval() time.Duration {
	if m.Interval > 0 {
		return m.Interval
	}
	return time.Hour
}

// FlushMetrics calls the mock function if set.
func (m *Mock) FlushMetrics() error {
	if m.FlushMetricsFunc != nil {
		return m.FlushMetricsFunc()
	}
	return nil
}

// Version returns the version using the mock function or "test".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "test"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
