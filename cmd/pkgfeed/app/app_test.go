package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/pkgfeed/internal/cmd/output"
	"github.com/agentstation/pkgfeed/pkg/changes"
	"github.com/agentstation/pkgfeed/pkg/differ"
	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/feed"
	"github.com/agentstation/pkgfeed/pkg/logging"
)

// newTestApp creates an app whose files live in a temp dir and whose API is srv.
func newTestApp(t *testing.T, apiURL string) (*App, string) {
	t.Helper()
	dir := chdir(t)

	config, err := LoadConfig("")
	require.NoError(t, err)
	config.APIURL = apiURL
	config.StateFile = filepath.Join(dir, "state.json")
	config.ChangesFile = filepath.Join(dir, "changes.json")
	config.FeedFile = filepath.Join(dir, "feed.xml")
	config.MetricsFile = filepath.Join(dir, "pkgfeed.prom")
	config.LogOutput = "discard"

	app, err := New("1.0.0", "abc123", "2024-01-01", "test",
		WithConfig(config),
		WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app, dir
}

// execute runs the CLI and returns what it printed to stdout.
func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := app.createRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

// repologyServer serves the given records for every project.
func repologyServer(t *testing.T, records *[]map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(*records)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	chdir(t)
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2024-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Config())
	assert.NotNil(t, app.Recorder())
}

// TestApp_Monitor_Singleton verifies that Monitor() returns the same instance.
func TestApp_Monitor_Singleton(t *testing.T) {
	app, _ := newTestApp(t, "http://127.0.0.1:1")

	const goroutines = 20
	var wg sync.WaitGroup
	results := make([]any, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			m, err := app.Monitor()
			assert.NoError(t, err)
			results[idx] = m
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestExecute_CheckThenFeed(t *testing.T) {
	records := []map[string]any{
		{"repo": "arch", "version": "3.24.1", "status": "newest"},
	}
	srv := repologyServer(t, &records)
	app, dir := newTestApp(t, srv.URL)

	// first run only records the snapshot
	out, err := execute(t, app, "check", "-p", "gtk", "-o", "json")
	require.NoError(t, err)

	var report output.CheckReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Initial)
	assert.Equal(t, 1, report.Packages)

	records = []map[string]any{
		{"repo": "arch", "version": "3.24.2", "status": "newest"},
		{"repo": "fedora_40", "version": "3.24.2", "status": "newest"},
	}
	changesPath := filepath.Join(dir, "custom-changes.json")
	out, err = execute(t, app, "check", "-p", "gtk", "--changes", changesPath, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Changes, 2)

	doc, err := changes.Read(changesPath)
	require.NoError(t, err)
	assert.Len(t, doc.Changes, 2)

	rssPath := filepath.Join(dir, "out.xml")
	out, err = execute(t, app, "feed", changesPath, rssPath, "-o", "json")
	require.NoError(t, err)

	var feedReport output.FeedReport
	require.NoError(t, json.Unmarshal([]byte(out), &feedReport))
	assert.Equal(t, 2, feedReport.Added)
	assert.Equal(t, "created", feedReport.Load)

	data, err := os.ReadFile(rssPath)
	require.NoError(t, err)
	rss, err := feed.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, rss.Len())
	assert.Equal(t, "gtk package updates", rss.Channel().Title)

	metrics, err := os.ReadFile(filepath.Join(dir, "pkgfeed.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "pkgfeed_packages 2")
}

func TestExecute_FeedWithoutProject(t *testing.T) {
	app, dir := newTestApp(t, "http://127.0.0.1:1")

	rssPath := filepath.Join(dir, "out.xml")
	out, err := execute(t, app, "feed", filepath.Join(dir, "missing.json"), rssPath, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "no_changes: true")

	data, err := os.ReadFile(rssPath)
	require.NoError(t, err)
	rss, err := feed.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "unknown package updates", rss.Channel().Title)
}

func TestExecute_FeedRequiresTwoArgs(t *testing.T) {
	app, _ := newTestApp(t, "http://127.0.0.1:1")

	_, err := execute(t, app, "feed", "only-one.json")
	assert.Error(t, err)
}

func TestExecute_FeedWriteFailure(t *testing.T) {
	app, dir := newTestApp(t, "http://127.0.0.1:1")

	cs := &differ.Changeset{Changes: []differ.Change{{Type: differ.ChangeTypeRemove, Package: "arch"}}}
	changesPath := filepath.Join(dir, "in.json")
	require.NoError(t, changes.Write(changesPath, changes.New("gtk", cs, time.Now())))

	// a non-empty directory cannot be replaced by the feed file
	rssPath := filepath.Join(dir, "feed-dir")
	require.NoError(t, os.MkdirAll(filepath.Join(rssPath, "child"), 0o755))

	_, err := execute(t, app, "feed", changesPath, rssPath)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestExecute_RunTable(t *testing.T) {
	records := []map[string]any{{"repo": "arch", "version": "1.0"}}
	srv := repologyServer(t, &records)
	app, _ := newTestApp(t, srv.URL)

	out, err := execute(t, app, "run", "-p", "gtk", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "gtk: initial snapshot of 1 packages")
	assert.Contains(t, out, "No changes detected")
}

func TestExecute_FetchFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	app, _ := newTestApp(t, srv.URL)

	out, err := execute(t, app, "run", "-p", "gtk", "-o", "json")
	require.NoError(t, err)

	var report output.RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "warning", report.Outcome)
	require.Len(t, report.Check.Warnings, 1)
	assert.True(t, strings.Contains(report.Check.Warnings[0], "503"), report.Check.Warnings[0])
	require.NotNil(t, report.Feed)
	assert.True(t, report.Feed.NoChanges)
}

func TestExecute_CheckRequiresProject(t *testing.T) {
	app, _ := newTestApp(t, "http://127.0.0.1:1")

	_, err := execute(t, app, "check")
	assert.True(t, errors.IsValidationError(err))
}

func TestExecute_Version(t *testing.T) {
	app, _ := newTestApp(t, "http://127.0.0.1:1")

	out, err := execute(t, app, "version")
	require.NoError(t, err)
	assert.Equal(t, "pkgfeed 1.0.0\n", out)
}

func TestExecute_Completion(t *testing.T) {
	app, _ := newTestApp(t, "http://127.0.0.1:1")

	out, err := execute(t, app, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "pkgfeed")

	_, err = execute(t, app, "completion", "tcsh")
	assert.Error(t, err)
}
