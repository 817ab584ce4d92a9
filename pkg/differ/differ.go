package differ

import (
	"slices"

	"github.com/agentstation/pkgfeed/pkg/constants"
	"github.com/agentstation/pkgfeed/pkg/snapshot"
)

// Differ handles change detection between snapshots.
type Differ interface {
	// Diff compares a previous snapshot (nil when absent) with the current one.
	Diff(previous, current snapshot.Snapshot) *Changeset

	// Fields returns the monitored fields in comparison order.
	Fields() []string
}

// differ is the default implementation of Differ.
type differ struct {
	fields       []string
	ignoreFields map[string]bool
}

// New creates a Differ over the default monitored fields.
func New(opts ...Option) Differ {
	d := &differ{
		fields:       constants.DefaultFields(),
		ignoreFields: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Fields returns the monitored fields in comparison order.
func (diff *differ) Fields() []string {
	return slices.DeleteFunc(slices.Clone(diff.fields), func(f string) bool {
		return diff.ignoreFields[f]
	})
}

// Diff compares two snapshots. Identities are visited in sorted order so the
// output is stable regardless of map iteration order.
func (diff *differ) Diff(previous, current snapshot.Snapshot) *Changeset {
	fields := diff.Fields()
	changes := make([]Change, 0)

	for _, id := range current.IDs() {
		observed := current[id]
		before, exists := previous[id]
		if previous == nil || !exists {
			changes = append(changes, newPackage(id, observed, fields))
			continue
		}
		if change := diff.pkg(id, before, observed, fields); change != nil {
			changes = append(changes, *change)
		}
	}

	for _, id := range previous.IDs() {
		if !current.Has(id) {
			changes = append(changes, Change{Type: ChangeTypeRemove, Package: id})
		}
	}

	return &Changeset{
		Changes: changes,
		Initial: previous == nil,
		Summary: calculateSummary(changes),
	}
}

// pkg compares one package present in both snapshots.
func (diff *differ) pkg(id string, before, after snapshot.Fields, fields []string) *Change {
	var deltas []FieldDelta
	for _, name := range fields {
		oldValue, newValue := value(before, name), value(after, name)
		if oldValue != newValue {
			deltas = append(deltas, FieldDelta{Field: name, Old: oldValue, New: newValue})
		}
	}

	if len(deltas) == 0 {
		return nil
	}

	return &Change{Type: ChangeTypeUpdate, Package: id, Deltas: deltas}
}

// newPackage describes every monitored field of a package seen for the first time.
func newPackage(id string, observed snapshot.Fields, fields []string) Change {
	infos := make([]FieldInfo, 0, len(fields))
	for _, name := range fields {
		infos = append(infos, FieldInfo{Field: name, Value: value(observed, name)})
	}
	return Change{Type: ChangeTypeNew, Package: id, Fields: infos}
}

// value reads a field, treating a missing key as the sentinel. Snapshots
// written with an older field list may lack newly monitored fields.
func value(fields snapshot.Fields, name string) string {
	if v, ok := fields[name]; ok {
		return v
	}
	return constants.NotAvailable
}
