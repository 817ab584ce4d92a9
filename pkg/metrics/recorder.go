// Package metrics records run statistics. Runs are short lived, so the
// Prometheus implementation exports to a node_exporter textfile instead of
// serving a scrape endpoint.
package metrics

import "time"

// ResultLabel enumerates run outcomes.
type ResultLabel string

// ResultLabel constants.
const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultFatal   ResultLabel = "fatal"
)

// Recorder defines observability hooks for a run.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncRun(result ResultLabel)
	AddChanges(kind string, n int)
	SetPackages(n int)
	AddEntries(outcome string, n int) // outcome: added|skipped|trimmed
	SetFeedItems(n int)
	IncWarning(stage string)
	SetLastRun(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncRun(ResultLabel)                         {}
func (NoopRecorder) AddChanges(string, int)                     {}
func (NoopRecorder) SetPackages(int)                            {}
func (NoopRecorder) AddEntries(string, int)                     {}
func (NoopRecorder) SetFeedItems(int)                           {}
func (NoopRecorder) IncWarning(string)                          {}
func (NoopRecorder) SetLastRun(time.Time)                       {}
