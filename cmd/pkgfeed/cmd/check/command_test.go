package check

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/pkgfeed"
	"github.com/agentstation/pkgfeed/internal/appcontext"
	"github.com/agentstation/pkgfeed/internal/cmd/output"
	"github.com/agentstation/pkgfeed/pkg/changes"
	"github.com/agentstation/pkgfeed/pkg/logging"
)

type staticFetcher []any

func (f staticFetcher) FetchProject(context.Context, string) ([]any, error) {
	return f, nil
}

func newMockApp(t *testing.T) (*appcontext.Mock, string, *int) {
	t.Helper()
	dir := t.TempDir()
	opts := []pkgfeed.Option{
		pkgfeed.WithProject("gtk"),
		pkgfeed.WithFetcher(staticFetcher{map[string]any{"repo": "arch", "version": "3.24.1"}}),
		pkgfeed.WithStateFile(filepath.Join(dir, "state.json")),
		pkgfeed.WithChangesFile(filepath.Join(dir, "changes.json")),
		pkgfeed.WithFeedFile(filepath.Join(dir, "feed.xml")),
		pkgfeed.WithLogger(logging.NewNopLogger()),
	}

	flushes := 0
	mock := &appcontext.Mock{
		Format: "json",
		MonitorFunc: func() (pkgfeed.Monitor, error) {
			return pkgfeed.New(opts...)
		},
		MonitorWithOptionsFunc: func(extra ...pkgfeed.Option) (pkgfeed.Monitor, error) {
			return pkgfeed.New(append(opts, extra...)...)
		},
		FlushMetricsFunc: func() error {
			flushes++
			return nil
		},
	}
	return mock, dir, &flushes
}

func TestCheckCommand(t *testing.T) {
	app, dir, flushes := newMockApp(t)

	cmd := NewCommand(app)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var report output.CheckReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "gtk", report.Project)
	assert.True(t, report.Initial)
	assert.Equal(t, 1, *flushes)

	doc, err := changes.Read(filepath.Join(dir, "changes.json"))
	require.NoError(t, err)
	assert.Equal(t, "gtk", doc.Project)
}

func TestCheckCommand_ChangesFlag(t *testing.T) {
	app, dir, _ := newMockApp(t)
	custom := filepath.Join(dir, "custom.json")

	cmd := NewCommand(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--changes", custom})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	_, err := changes.Read(custom)
	assert.NoError(t, err)
}
