package pkgfeed

import (
	"context"
	"slices"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/pkgfeed/internal/matcher"
	"github.com/agentstation/pkgfeed/pkg/constants"
	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/feed"
	"github.com/agentstation/pkgfeed/pkg/metrics"
	"github.com/agentstation/pkgfeed/pkg/state"
)

// Fetcher retrieves the raw package records of a project.
type Fetcher interface {
	FetchProject(ctx context.Context, project string) ([]any, error)
}

// Option is a function that configures a Monitor
type Option func(*options) error

// options holds the Monitor configuration.
type options struct {
	project      string
	apiURL       string
	userAgent    string
	httpTimeout  time.Duration
	fields       []string
	filter       *matcher.Filter
	stateFile    string
	stateBackend state.Backend
	stateStore   state.Store
	changesFile  string
	feedFile     string
	maxItems     int
	contentGUIDs bool
	feedMeta     feed.Metadata
	fetcher      Fetcher
	recorder     metrics.Recorder
	logger       *zerolog.Logger
	now          func() time.Time
}

// defaults returns the default configuration.
func defaults() *options {
	return &options{
		apiURL:       constants.DefaultAPIURL,
		userAgent:    constants.DefaultUserAgent,
		httpTimeout:  constants.DefaultHTTPTimeout,
		fields:       constants.DefaultFields(),
		stateFile:    constants.DefaultStateFile,
		stateBackend: state.BackendFile,
		changesFile:  constants.DefaultChangesFile,
		feedFile:     constants.DefaultFeedFile,
		maxItems:     constants.DefaultMaxItems,
		feedMeta: feed.Metadata{
			Language:  constants.DefaultFeedLanguage,
			Category:  constants.DefaultFeedCategory,
			Generator: constants.Generator,
			TTL:       constants.DefaultFeedTTL,
		},
		recorder: metrics.NoopRecorder{},
		now:      func() time.Time { return utc.Now().Time },
	}
}

// apply applies the options in order, stopping at the first error.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithProject sets the Repology project to monitor
func WithProject(project string) Option {
	return func(o *options) error {
		o.project = project
		return nil
	}
}

// WithAPIURL sets the base URL of the project API
func WithAPIURL(url string) Option {
	return func(o *options) error {
		o.apiURL = url
		return nil
	}
}

// WithUserAgent sets the User-Agent sent to the API
func WithUserAgent(userAgent string) Option {
	return func(o *options) error {
		o.userAgent = userAgent
		return nil
	}
}

// WithHTTPTimeout bounds the API request
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		if timeout <= 0 {
			return errors.NewValidationError("http_timeout", timeout, "timeout must be positive")
		}
		o.httpTimeout = timeout
		return nil
	}
}

// WithFields sets the monitored fields in comparison order
func WithFields(fields ...string) Option {
	return func(o *options) error {
		if len(fields) == 0 {
			return errors.NewValidationError("fields", fields, "at least one field is required")
		}
		o.fields = slices.Clone(fields)
		return nil
	}
}

// WithPackageFilter limits monitoring to package identities matching any
// include pattern and no exclude pattern. Patterns are globs unless they
// carry regex syntax.
func WithPackageFilter(include, exclude []string) Option {
	return func(o *options) error {
		f, err := matcher.NewFilter(include, exclude)
		if err != nil {
			return errors.NewValidationError("packages", append(slices.Clone(include), exclude...), err.Error())
		}
		o.filter = f
		return nil
	}
}

// WithStateFile sets where the previous snapshot is kept
func WithStateFile(path string) Option {
	return func(o *options) error {
		o.stateFile = path
		return nil
	}
}

// WithStateBackend selects the snapshot storage backend
func WithStateBackend(backend state.Backend) Option {
	return func(o *options) error {
		o.stateBackend = backend
		return nil
	}
}

// WithStateStore uses a ready-made snapshot store instead of opening one
func WithStateStore(store state.Store) Option {
	return func(o *options) error {
		o.stateStore = store
		return nil
	}
}

// WithChangesFile sets the change-description file written by Check.
// An empty path disables it.
func WithChangesFile(path string) Option {
	return func(o *options) error {
		o.changesFile = path
		return nil
	}
}

// WithFeedFile sets the RSS file maintained by Generate
func WithFeedFile(path string) Option {
	return func(o *options) error {
		o.feedFile = path
		return nil
	}
}

// WithMaxItems sets how many entries the feed retains
func WithMaxItems(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return errors.NewValidationError("max_items", n, "must be at least 1")
		}
		o.maxItems = n
		return nil
	}
}

// WithContentGUIDs derives entry GUIDs from change content only
func WithContentGUIDs(enabled bool) Option {
	return func(o *options) error {
		o.contentGUIDs = enabled
		return nil
	}
}

// WithFeedMetadata sets the channel metadata of new feed documents.
// Empty fields keep their defaults.
func WithFeedMetadata(meta feed.Metadata) Option {
	return func(o *options) error {
		if meta.Title != "" {
			o.feedMeta.Title = meta.Title
		}
		if meta.Link != "" {
			o.feedMeta.Link = meta.Link
		}
		if meta.Description != "" {
			o.feedMeta.Description = meta.Description
		}
		if meta.Language != "" {
			o.feedMeta.Language = meta.Language
		}
		if meta.Category != "" {
			o.feedMeta.Category = meta.Category
		}
		if meta.Generator != "" {
			o.feedMeta.Generator = meta.Generator
		}
		if meta.TTL > 0 {
			o.feedMeta.TTL = meta.TTL
		}
		return nil
	}
}

// WithFetcher replaces the Repology client
func WithFetcher(f Fetcher) Option {
	return func(o *options) error {
		o.fetcher = f
		return nil
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) error {
		if r != nil {
			o.recorder = r
		}
		return nil
	}
}

// WithLogger sets the logger used for run diagnostics
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithClock sets the clock used for run timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		o.now = now
		return nil
	}
}
