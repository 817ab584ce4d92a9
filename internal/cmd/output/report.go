package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/pkgfeed"
	"github.com/agentstation/pkgfeed/pkg/differ"
)

// Status symbols for summary lines.
const (
	SymbolSuccess = "✓"
	SymbolWarning = "!"
	SymbolError   = "✗"
)

var titleCaser = cases.Title(language.English)

// CheckReport is the printable form of a check.
type CheckReport struct {
	Project  string          `json:"project" yaml:"project"`
	RunID    string          `json:"run_id" yaml:"run_id"`
	Packages int             `json:"packages" yaml:"packages"`
	Initial  bool            `json:"initial" yaml:"initial"`
	Summary  string          `json:"summary" yaml:"summary"`
	Changes  []differ.Change `json:"changes" yaml:"changes"`
	Warnings []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewCheckReport builds a report from a check result.
func NewCheckReport(r *pkgfeed.CheckResult) CheckReport {
	return CheckReport{
		Project:  r.Project,
		RunID:    r.RunID,
		Packages: r.Packages,
		Initial:  r.Initial,
		Summary:  r.Summary(),
		Changes:  r.Changes,
		Warnings: messages(r.Warnings()),
	}
}

// TableData lays out one row per field-level change.
func (r CheckReport) TableData() Data {
	data := Data{
		Title:   r.Summary,
		Empty:   "No changes detected",
		Headers: []string{"Change", "Package", "Field", "Old", "New"},
	}
	for _, c := range r.Changes {
		label := titleCaser.String(c.Type.Label())
		entries := c.Entries()
		if len(entries) == 0 {
			data.Rows = append(data.Rows, []string{label, c.Package, "", "", ""})
			continue
		}
		for _, e := range entries {
			data.Rows = append(data.Rows, []string{label, c.Package, e.Field, e.Old, e.Value})
		}
	}
	return data
}

// FeedReport is the printable form of a feed update.
type FeedReport struct {
	FeedFile  string   `json:"feed_file" yaml:"feed_file"`
	Load      string   `json:"load" yaml:"load"`
	Entries   int      `json:"entries" yaml:"entries"`
	NoChanges bool     `json:"no_changes" yaml:"no_changes"`
	Added     int      `json:"added" yaml:"added"`
	Skipped   int      `json:"skipped" yaml:"skipped"`
	Trimmed   int      `json:"trimmed" yaml:"trimmed"`
	Items     int      `json:"items" yaml:"items"`
	Warnings  []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewFeedReport builds a report from a feed result.
func NewFeedReport(r *pkgfeed.FeedResult) FeedReport {
	return FeedReport{
		FeedFile:  r.FeedFile,
		Load:      string(r.Load.Outcome),
		Entries:   r.Entries,
		NoChanges: r.NoChanges,
		Added:     r.Added,
		Skipped:   r.Skipped,
		Trimmed:   r.Trimmed,
		Items:     r.Items,
		Warnings:  messages(r.Warnings()),
	}
}

// TableData lays out the counters as a key-value table.
func (r FeedReport) TableData() Data {
	return Data{
		Title:           "Feed " + r.FeedFile,
		Headers:         []string{"Property", "Value"},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
		Rows: [][]string{
			{"Load", r.Load},
			{"Entries", strconv.Itoa(r.Entries)},
			{"Added", strconv.Itoa(r.Added)},
			{"Duplicates", strconv.Itoa(r.Skipped)},
			{"Trimmed", strconv.Itoa(r.Trimmed)},
			{"Items", strconv.Itoa(r.Items)},
		},
	}
}

// RunReport is the printable form of a full run.
type RunReport struct {
	Check    CheckReport `json:"check" yaml:"check"`
	Feed     *FeedReport `json:"feed,omitempty" yaml:"feed,omitempty"`
	Outcome  string      `json:"outcome" yaml:"outcome"`
	Duration string      `json:"duration" yaml:"duration"`
}

// NewRunReport builds a report from a run result.
func NewRunReport(r *pkgfeed.RunResult) RunReport {
	report := RunReport{Outcome: string(r.Outcome())}
	var elapsed time.Duration
	if r.Check != nil {
		report.Check = NewCheckReport(r.Check)
		elapsed += r.Check.Duration
	}
	if r.Feed != nil {
		feed := NewFeedReport(r.Feed)
		report.Feed = &feed
		elapsed += r.Feed.Duration
	}
	report.Duration = elapsed.Round(time.Millisecond).String()
	return report
}

// TableData shows the detected changes; the feed counters go in the title.
func (r RunReport) TableData() Data {
	data := r.Check.TableData()
	if r.Feed != nil {
		data.Title = fmt.Sprintf("%s\nFeed %s: %d added, %d duplicate, %d trimmed, %d items",
			data.Title, r.Feed.FeedFile, r.Feed.Added, r.Feed.Skipped, r.Feed.Trimmed, r.Feed.Items)
	}
	return data
}

// Print writes data in the given format.
func Print(w io.Writer, format Format, data any) error {
	return NewFormatter(format).Format(w, data)
}

// PrintWarnings writes one line per warning.
func PrintWarnings(w io.Writer, warnings []string) error {
	for _, msg := range warnings {
		if _, err := fmt.Fprintf(w, "%s %s\n", SymbolWarning, msg); err != nil {
			return err
		}
	}
	return nil
}

func messages(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
