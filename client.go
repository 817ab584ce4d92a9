package pkgfeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/pkgfeed/internal/sources/repology"
	"github.com/agentstation/pkgfeed/pkg/constants"
	"github.com/agentstation/pkgfeed/pkg/differ"
	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/feed"
	"github.com/agentstation/pkgfeed/pkg/logging"
	"github.com/agentstation/pkgfeed/pkg/snapshot"
	"github.com/agentstation/pkgfeed/pkg/state"
)

// Compile-time interface check to ensure proper implementation.
var _ Monitor = (*monitor)(nil)

// Checker runs the fetch and diff stage.
type Checker interface {
	// Check fetches the project, diffs it against the saved snapshot, saves
	// the new snapshot and writes the change-description file.
	Check(ctx context.Context) (*CheckResult, error)
}

// Generator runs the feed stage.
type Generator interface {
	// Generate publishes changes to the feed file.
	Generate(ctx context.Context, changes []differ.Change) (*FeedResult, error)

	// GenerateFromFile publishes the changes recorded in a change-description
	// file. An unreadable file counts as zero changes.
	GenerateFromFile(ctx context.Context, path string) (*FeedResult, error)
}

// Runner runs both stages.
type Runner interface {
	// Run checks and then publishes, handing the changes over in memory.
	Run(ctx context.Context) (*RunResult, error)
}

// Monitor watches one project and maintains its feed.
type Monitor interface {
	Checker
	Generator
	Runner
	Watcher
	Hooks

	// Close releases the snapshot store.
	Close() error
}

// monitor is the internal implementation of the Monitor interface.
type monitor struct {
	options *options

	fetcher   Fetcher
	extractor *snapshot.Extractor
	differ    differ.Differ
	state     state.Store
	ownsState bool
	logger    *zerolog.Logger

	// runs never overlap
	mu sync.Mutex

	*hooks
}

// New creates a Monitor with the given options.
func New(opts ...Option) (Monitor, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	m := &monitor{
		options:   o,
		fetcher:   o.fetcher,
		extractor: snapshot.NewExtractor(o.fields...),
		differ:    differ.New(differ.WithFields(o.fields...)),
		state:     o.stateStore,
		logger:    o.logger,
		hooks:     newHooks(),
	}

	if m.logger == nil {
		m.logger = logging.Default()
	}
	if m.fetcher == nil {
		m.fetcher = repology.NewClient(o.apiURL, o.userAgent, o.httpTimeout)
	}
	if m.state == nil {
		if m.state, err = state.Open(o.stateBackend, o.stateFile); err != nil {
			return nil, errors.NewConfigError("state", fmt.Sprintf("cannot open %s store at %s", o.stateBackend, o.stateFile), err)
		}
		m.ownsState = true
	}

	return m, nil
}

// Close releases the snapshot store when the monitor opened it.
func (m *monitor) Close() error {
	if m.ownsState && m.state != nil {
		return m.state.Close()
	}
	return nil
}

// runContext attaches the logger, project and a run ID to ctx.
func (m *monitor) runContext(ctx context.Context, project string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logging.RunID(ctx) == "" {
		ctx = logging.WithLogger(ctx, m.logger)
		ctx = logging.WithRunID(ctx, uuid.NewString())
	}
	if project != "" {
		ctx = logging.WithProject(ctx, project)
	}
	return ctx
}

// metadata returns the channel metadata for a project's feed.
func (m *monitor) metadata(project string) feed.Metadata {
	meta := m.options.feedMeta
	if meta.Title == "" {
		meta.Title = project + " package updates"
	}
	if meta.Link == "" {
		meta.Link = projectLink(project)
	}
	if meta.Description == "" {
		meta.Description = fmt.Sprintf("Package changes for %s across repositories tracked by Repology", project)
	}
	return meta
}

func projectLink(project string) string {
	return constants.RepologyProjectURL + "/" + project
}
