// Package constants provides shared constants used throughout the pkgfeed codebase.
// This includes timeouts, file permissions, feed defaults and the values that
// must stay stable between runs, such as the sentinel for unknown fields.
package constants

import "time"

// EnvPrefix prefixes every environment variable pkgfeed reads
const EnvPrefix = "PKGFEED"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for the package API request
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultWatchInterval is the default interval between runs in watch mode
	DefaultWatchInterval = 1 * time.Hour

	// ShutdownTimeout bounds graceful shutdown after an error or signal
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Package API defaults
const (
	// DefaultAPIURL is the base URL of the Repology project endpoint
	DefaultAPIURL = "https://repology.org/api/v1/project"

	// DefaultUserAgent identifies pkgfeed to the package API
	DefaultUserAgent = "pkgfeed (+https://github.com/agentstation/pkgfeed)"

	// MaxResponseSize caps the decoded API response body in bytes
	MaxResponseSize = 32 * 1024 * 1024
)

// Snapshot constants
const (
	// NotAvailable is the sentinel stored for a monitored field the API did not report
	NotAvailable = "N/A"

	// UnknownPackage is the identity assigned to records without a usable repo key
	UnknownPackage = "unknown"

	// DefaultStateFile is where the JSON snapshot is kept between runs
	DefaultStateFile = "pkgfeed-state.json"

	// DefaultChangesFile is where the check stage writes detected changes
	DefaultChangesFile = "pkgfeed-changes.json"
)

// DefaultFields returns the monitored field names in their fixed comparison order.
func DefaultFields() []string {
	return []string{"version", "origversion", "status"}
}

// Feed constants
const (
	// DefaultFeedFile is the default RSS output path
	DefaultFeedFile = "pkgfeed.xml"

	// DefaultMaxItems is the maximum number of entries retained in the feed
	DefaultMaxItems = 50

	// DefaultFeedTTL is the channel ttl in minutes
	DefaultFeedTTL = 60

	// DefaultFeedLanguage is the channel language
	DefaultFeedLanguage = "en-us"

	// DefaultFeedCategory is the channel category
	DefaultFeedCategory = "Software Updates"

	// Generator is written into the channel generator element
	Generator = "pkgfeed"

	// NoChangesGUID is the fixed identifier of the maintenance entry emitted by no-op runs
	NoChangesGUID = "pkgfeed-no-changes"

	// RepologyProjectURL is the human project page used for channel and item links
	RepologyProjectURL = "https://repology.org/project"
)

// Logging constants
const (
	// LogRotationSize is the maximum size of a log file before rotation in megabytes
	LogRotationSize = 10

	// LogRotationAge is the maximum age of log files in days before deletion
	LogRotationAge = 7

	// LogRotationBackups is the maximum number of old log files to retain
	LogRotationBackups = 5
)
