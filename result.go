package pkgfeed

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/pkgfeed/pkg/differ"
	"github.com/agentstation/pkgfeed/pkg/feed"
	"github.com/agentstation/pkgfeed/pkg/metrics"
)

// CheckResult represents the outcome of the check stage.
type CheckResult struct {
	Project   string
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	// Extraction statistics
	Records     int // raw records returned by the API
	Skipped     int // records that were not objects
	Overwritten int // records that replaced another with the same identity
	Filtered    int // identities dropped by the package filter
	Packages    int // identities in the new snapshot

	Changeset *differ.Changeset // nil when the fetch failed
	Changes   []differ.Change   // changes to publish, empty on initialization runs
	Initial   bool              // no previous snapshot existed

	ChangesFile string // where the change description was written, if anywhere

	// Non-fatal failures, each replaced by its fallback
	FetchError       error
	StateLoadError   error
	StateSaveError   error
	ChangesFileError error
}

// Warnings returns the non-fatal failures of the stage.
func (r *CheckResult) Warnings() []error {
	var warnings []error
	for _, err := range []error{r.FetchError, r.StateLoadError, r.StateSaveError, r.ChangesFileError} {
		if err != nil {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// HasChanges returns true if there are changes to publish.
func (r *CheckResult) HasChanges() bool {
	return len(r.Changes) > 0
}

// Summary returns a human-readable summary of the check.
func (r *CheckResult) Summary() string {
	switch {
	case r.FetchError != nil:
		return fmt.Sprintf("%s: fetch failed, no changes recorded", r.Project)
	case r.Initial:
		return fmt.Sprintf("%s: initial snapshot of %d packages", r.Project, r.Packages)
	case !r.HasChanges():
		return fmt.Sprintf("%s: no changes across %d packages", r.Project, r.Packages)
	default:
		s := r.Changeset.Summary
		return fmt.Sprintf("%s: %d new, %d updated, %d removed across %d packages",
			r.Project, s.New, s.Updated, s.Removed, r.Packages)
	}
}

// FeedResult represents the outcome of the feed stage.
type FeedResult struct {
	FeedFile    string
	ChangesFile string // set when changes were read from a file
	Load        feed.LoadStatus
	Entries     int  // entries produced by the mapper
	NoChanges   bool // the maintenance entry was produced
	Added       int
	Skipped     int
	Trimmed     int
	Items       int // items in the persisted document
	Duration    time.Duration

	ChangesError error // non-fatal: the changes file could not be read
}

// Warnings returns the non-fatal failures of the stage.
func (r *FeedResult) Warnings() []error {
	var warnings []error
	if r.ChangesError != nil {
		warnings = append(warnings, r.ChangesError)
	}
	if r.Load.Err != nil {
		warnings = append(warnings, r.Load.Err)
	}
	return warnings
}

// Summary returns a human-readable summary of the feed update.
func (r *FeedResult) Summary() string {
	parts := []string{
		fmt.Sprintf("%d added", r.Added),
		fmt.Sprintf("%d duplicate", r.Skipped),
		fmt.Sprintf("%d trimmed", r.Trimmed),
	}
	return fmt.Sprintf("%s: %s (%d items, feed %s)", r.FeedFile, strings.Join(parts, ", "), r.Items, r.Load.Outcome)
}

// RunResult combines both stages.
type RunResult struct {
	Check *CheckResult
	Feed  *FeedResult
}

// Warnings returns the non-fatal failures of both stages.
func (r *RunResult) Warnings() []error {
	var warnings []error
	if r.Check != nil {
		warnings = append(warnings, r.Check.Warnings()...)
	}
	if r.Feed != nil {
		warnings = append(warnings, r.Feed.Warnings()...)
	}
	return warnings
}

// Outcome classifies the run for metrics.
func (r *RunResult) Outcome() metrics.ResultLabel {
	if len(r.Warnings()) > 0 {
		return metrics.ResultWarning
	}
	return metrics.ResultSuccess
}

// Summary returns a human-readable summary of the run.
func (r *RunResult) Summary() string {
	var parts []string
	if r.Check != nil {
		parts = append(parts, r.Check.Summary())
	}
	if r.Feed != nil {
		parts = append(parts, r.Feed.Summary())
	}
	return strings.Join(parts, "; ")
}
