// Package differ provides functionality for comparing snapshots and detecting changes.
package differ

import (
	"fmt"
	"strings"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeNew indicates a package appeared.
	ChangeTypeNew ChangeType = "new_package"
	// ChangeTypeUpdate indicates at least one monitored field of a package changed.
	ChangeTypeUpdate ChangeType = "package_change"
	// ChangeTypeRemove indicates a package disappeared.
	ChangeTypeRemove ChangeType = "removed_package"
)

// Label returns the human label of a change type.
func (t ChangeType) Label() string {
	switch t {
	case ChangeTypeNew:
		return "new package"
	case ChangeTypeUpdate:
		return "package update"
	case ChangeTypeRemove:
		return "package removed"
	default:
		return "change"
	}
}

// FieldDelta represents a change to a specific field.
type FieldDelta struct {
	Field string `json:"field" yaml:"field"`
	Old   string `json:"old" yaml:"old"`
	New   string `json:"new" yaml:"new"`
}

// FieldInfo represents an observed field of a new package.
type FieldInfo struct {
	Field string `json:"field" yaml:"field"`
	Value string `json:"value" yaml:"value"`
}

// Change is one detected change to a package. Deltas are set for updates,
// Fields for new packages, and removals carry the identity alone.
type Change struct {
	Type    ChangeType   `json:"type" yaml:"type"`
	Package string       `json:"package" yaml:"package"`
	Deltas  []FieldDelta `json:"changes,omitempty" yaml:"changes,omitempty"`
	Fields  []FieldInfo  `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Entry is a field-level item of a change, either a delta or an observed value.
type Entry struct {
	Field string
	Old   string
	Value string // new value for deltas, observed value for infos
	Delta bool
}

// Entries returns the field-level items of the change in order.
func (c Change) Entries() []Entry {
	entries := make([]Entry, 0, len(c.Deltas)+len(c.Fields))
	for _, d := range c.Deltas {
		entries = append(entries, Entry{Field: d.Field, Old: d.Old, Value: d.New, Delta: true})
	}
	for _, f := range c.Fields {
		entries = append(entries, Entry{Field: f.Field, Value: f.Value})
	}
	return entries
}

// Changeset represents all changes between two snapshots.
type Changeset struct {
	Changes []Change         // New and updated in current order, then removed in previous order
	Initial bool             // No previous snapshot existed
	Summary ChangesetSummary // Summary statistics
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	New          int
	Updated      int
	Removed      int
	TotalChanges int
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c.Summary.TotalChanges > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

// ForFeed returns the changes that should become feed entries. An
// initialization run only observes, so it yields none.
func (c *Changeset) ForFeed() []Change {
	if c.Initial {
		return nil
	}
	return c.Changes
}

// ByType returns the changes of one type, preserving order.
func (c *Changeset) ByType(t ChangeType) []Change {
	var out []Change
	for _, change := range c.Changes {
		if change.Type == t {
			out = append(out, change)
		}
	}
	return out
}

// calculateSummary computes the summary for a list of changes.
func calculateSummary(changes []Change) ChangesetSummary {
	var s ChangesetSummary
	for _, change := range changes {
		switch change.Type {
		case ChangeTypeNew:
			s.New++
		case ChangeTypeUpdate:
			s.Updated++
		case ChangeTypeRemove:
			s.Removed++
		}
	}
	s.TotalChanges = s.New + s.Updated + s.Removed
	return s
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string
	if c.Summary.New > 0 {
		parts = append(parts, fmt.Sprintf("%d new", c.Summary.New))
	}
	if c.Summary.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", c.Summary.Updated))
	}
	if c.Summary.Removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", c.Summary.Removed))
	}

	prefix := "Changeset"
	if c.Initial {
		prefix = "Initial snapshot"
	}
	return fmt.Sprintf("%s: %s (Total: %d changes)", prefix, strings.Join(parts, ", "), c.Summary.TotalChanges)
}
