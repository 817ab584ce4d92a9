package pkgfeed

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/pkgfeed/pkg/changes"
	"github.com/agentstation/pkgfeed/pkg/constants"
	"github.com/agentstation/pkgfeed/pkg/differ"
	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/feed"
	"github.com/agentstation/pkgfeed/pkg/logging"
	"github.com/agentstation/pkgfeed/pkg/state"
)

// fakeFetcher returns the queued responses in order, repeating the last one.
type fakeFetcher struct {
	mu        sync.Mutex
	responses [][]any
	errs      []error
	calls     int
}

func (f *fakeFetcher) FetchProject(_ context.Context, _ string) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := min(f.calls, len(f.responses)-1)
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	return f.responses[i], nil
}

func record(repo, version, status string) map[string]any {
	return map[string]any{
		"repo":        repo,
		"version":     version,
		"status":      status,
		"srcname":     "gtk",
		"binname":     "gtk3",
		"visiblename": "gtk",
	}
}

type testEnv struct {
	dir     string
	fetcher *fakeFetcher
	clock   time.Time
}

func (e *testEnv) path(name string) string { return filepath.Join(e.dir, name) }

func (e *testEnv) now() time.Time { return e.clock }

func newTestMonitor(t *testing.T, fetcher *fakeFetcher, opts ...Option) (*testEnv, Monitor) {
	t.Helper()
	env := &testEnv{
		dir:     t.TempDir(),
		fetcher: fetcher,
		clock:   time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	base := []Option{
		WithProject("gtk"),
		WithFetcher(fetcher),
		WithStateFile(env.path("state.json")),
		WithChangesFile(env.path("changes.json")),
		WithFeedFile(env.path("feed.xml")),
		WithLogger(logging.NewNopLogger()),
		WithClock(env.now),
	}
	m, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return env, m
}

func readFeed(t *testing.T, path string) *feed.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := feed.Parse(data)
	require.NoError(t, err)
	return doc
}

func TestNewValidation(t *testing.T) {
	_, err := New(WithMaxItems(0))
	assert.True(t, errors.IsValidationError(err))

	_, err = New(WithHTTPTimeout(-time.Second))
	assert.True(t, errors.IsValidationError(err))

	_, err = New(WithFields())
	assert.True(t, errors.IsValidationError(err))
}

func TestCheckRequiresProject(t *testing.T) {
	m, err := New(WithFetcher(&fakeFetcher{responses: [][]any{{}}}), WithStateFile(filepath.Join(t.TempDir(), "s.json")))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Check(context.Background())
	assert.True(t, errors.IsValidationError(err))
}

func TestFirstRunRecordsStateWithoutChanges(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{{
		record("arch", "3.24.1", "newest"),
		record("debian_12", "3.24.0", "outdated"),
	}}}
	env, m := newTestMonitor(t, fetcher)

	result, err := m.Check(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Initial)
	assert.Empty(t, result.Changes)
	assert.Equal(t, 2, result.Packages)
	assert.Empty(t, result.Warnings())
	assert.NotEmpty(t, result.RunID)

	saved, err := state.NewFileStore(env.path("state.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.24.1", saved["arch"]["version"])

	doc, err := changes.Read(env.path("changes.json"))
	require.NoError(t, err)
	assert.True(t, doc.Initial)
	assert.Empty(t, doc.Changes)
	assert.Equal(t, "gtk", doc.Project)
}

func TestPackageFilterLimitsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{
		{record("arch", "3.24.1", "newest"), record("debian_12", "3.24.0", "outdated")},
		{record("arch", "3.24.2", "newest"), record("debian_12", "3.24.1", "newest")},
	}}
	env, m := newTestMonitor(t, fetcher, WithPackageFilter([]string{"debian_*"}, nil))
	ctx := context.Background()

	first, err := m.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Packages)
	assert.Equal(t, 1, first.Filtered)

	second, err := m.Check(ctx)
	require.NoError(t, err)
	require.Len(t, second.Changes, 1)
	assert.Equal(t, "debian_12", second.Changes[0].Package)

	saved, err := state.NewFileStore(env.path("state.json")).Load(ctx)
	require.NoError(t, err)
	assert.False(t, saved.Has("arch"))
}

func TestPackageFilterRejectsInvalidPattern(t *testing.T) {
	_, err := New(WithPackageFilter([]string{"(broken|"}, nil))
	assert.True(t, errors.IsValidationError(err))
}

func TestRunPublishesChanges(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{
		{record("arch", "3.24.1", "newest"), record("debian_12", "3.24.0", "outdated")},
		{record("arch", "3.24.2", "newest"), record("fedora_40", "3.24.2", "newest")},
	}}
	env, m := newTestMonitor(t, fetcher)
	ctx := context.Background()

	var added, updated, removed []string
	m.OnPackageAdded(func(c differ.Change) { added = append(added, c.Package) })
	m.OnPackageUpdated(func(c differ.Change) { updated = append(updated, c.Package) })
	m.OnPackageRemoved(func(c differ.Change) { removed = append(removed, c.Package) })

	first, err := m.Run(ctx)
	require.NoError(t, err)
	assert.True(t, first.Feed.NoChanges)
	assert.Equal(t, feed.Created, first.Feed.Load.Outcome)
	assert.Equal(t, 1, first.Feed.Items)

	second, err := m.Run(ctx)
	require.NoError(t, err)
	require.Len(t, second.Check.Changes, 3)
	assert.Equal(t, []string{"fedora_40"}, added)
	assert.Equal(t, []string{"arch"}, updated)
	assert.Equal(t, []string{"debian_12"}, removed)

	assert.Equal(t, feed.Loaded, second.Feed.Load.Outcome)
	assert.Equal(t, 3, second.Feed.Added)
	assert.Equal(t, 4, second.Feed.Items)

	doc := readFeed(t, env.path("feed.xml"))
	titles := make([]string, 0, doc.Len())
	for _, item := range doc.Items() {
		titles = append(titles, item.Title)
	}
	assert.Contains(t, titles, "arch updated to 3.24.2")
	assert.Contains(t, titles, "New package: fedora_40 (3.24.2)")
	assert.Contains(t, titles, "Package removed: debian_12")
	assert.Equal(t, "gtk package updates", doc.Channel().Title)
}

func TestRunWithoutChangesIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{{record("arch", "3.24.1", "newest")}}}
	env, m := newTestMonitor(t, fetcher)
	ctx := context.Background()

	for range 3 {
		_, err := m.Run(ctx)
		require.NoError(t, err)
	}

	doc := readFeed(t, env.path("feed.xml"))
	assert.Equal(t, 1, doc.Len())
	assert.True(t, doc.Has(constants.NoChangesGUID))
}

func TestFetchFailureKeepsState(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: [][]any{{record("arch", "3.24.1", "newest")}, nil, {record("arch", "3.24.2", "newest")}},
		errs:      []error{nil, errors.NewTimeoutError("fetch", "30s", "deadline exceeded"), nil},
	}
	env, m := newTestMonitor(t, fetcher)
	ctx := context.Background()

	_, err := m.Run(ctx)
	require.NoError(t, err)

	failed, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Error(t, failed.Check.FetchError)
	assert.Nil(t, failed.Check.Changeset)
	assert.Empty(t, failed.Check.Changes)
	assert.Len(t, failed.Warnings(), 1)

	saved, err := state.NewFileStore(env.path("state.json")).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3.24.1", saved["arch"]["version"])

	// the change is still detected against the last good snapshot
	recovered, err := m.Run(ctx)
	require.NoError(t, err)
	require.Len(t, recovered.Check.Changes, 1)
	assert.Equal(t, differ.ChangeTypeUpdate, recovered.Check.Changes[0].Type)
}

func TestCorruptStateTreatedAsFirstRun(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{{record("arch", "3.24.1", "newest")}}}
	env, m := newTestMonitor(t, fetcher)
	require.NoError(t, os.WriteFile(env.path("state.json"), []byte("{broken"), 0o644))

	result, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Initial)
	assert.Error(t, result.StateLoadError)
	assert.Nil(t, result.StateSaveError)
}

func TestGenerateFromFile(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{{}}}
	env, m := newTestMonitor(t, fetcher)

	cs := &differ.Changeset{Changes: []differ.Change{{
		Type:    differ.ChangeTypeUpdate,
		Package: "arch",
		Deltas:  []differ.FieldDelta{{Field: "version", Old: "1.0", New: "1.1"}},
	}}}
	require.NoError(t, changes.Write(env.path("in.json"), changes.New("gtk", cs, env.clock)))

	result, err := m.GenerateFromFile(context.Background(), env.path("in.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.False(t, result.NoChanges)
	assert.Nil(t, result.ChangesError)

	missing, err := m.GenerateFromFile(context.Background(), env.path("missing.json"))
	require.NoError(t, err)
	assert.Error(t, missing.ChangesError)
	assert.True(t, missing.NoChanges)
	assert.Equal(t, 2, missing.Items)
}

func TestGenerateRespectsMaxItems(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{{}}}
	_, m := newTestMonitor(t, fetcher, WithMaxItems(2))

	batch := []differ.Change{
		{Type: differ.ChangeTypeNew, Package: "a"},
		{Type: differ.ChangeTypeNew, Package: "b"},
		{Type: differ.ChangeTypeNew, Package: "c"},
	}
	result, err := m.Generate(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 1, result.Trimmed)
	assert.Equal(t, 2, result.Items)
}

func TestPersistFailureIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{{record("arch", "3.24.1", "newest")}}}
	env, m := newTestMonitor(t, fetcher)

	// a directory where the feed file should be cannot be replaced
	require.NoError(t, os.MkdirAll(filepath.Join(env.path("feed.xml"), "child"), 0o755))

	result, err := m.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	require.NotNil(t, result)
	assert.NotNil(t, result.Check)
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{{record("arch", "3.24.1", "newest")}}}
	_, m := newTestMonitor(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{}, 10)

	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, time.Hour, WithRunCallback(func(_ *RunResult, err error) {
			assert.NoError(t, err)
			runs <- struct{}{}
		}))
	}()

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not run immediately")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchStopsOnFatalError(t *testing.T) {
	fetcher := &fakeFetcher{responses: [][]any{{record("arch", "3.24.1", "newest")}}}
	env, m := newTestMonitor(t, fetcher)
	require.NoError(t, os.MkdirAll(filepath.Join(env.path("feed.xml"), "child"), 0o755))

	err := m.Watch(context.Background(), time.Hour)
	assert.True(t, errors.IsFatal(err))
}

func TestWatchRejectsInvalidInterval(t *testing.T) {
	_, m := newTestMonitor(t, &fakeFetcher{responses: [][]any{{}}})
	err := m.Watch(context.Background(), 0)
	assert.True(t, errors.IsValidationError(err))
}
