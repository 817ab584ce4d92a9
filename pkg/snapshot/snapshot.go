// Package snapshot models the monitored state of a project: one record of
// monitored field values per package identity.
package snapshot

import (
	"maps"
	"slices"
)

// Fields maps a monitored field name to its observed value.
// A field the API did not report holds constants.NotAvailable.
type Fields map[string]string

// Clone returns a copy of the fields.
func (f Fields) Clone() Fields {
	return maps.Clone(f)
}

// Snapshot maps a package identity to its monitored fields.
// A nil Snapshot means no previous state exists; an empty non-nil
// Snapshot is a valid state with zero packages.
type Snapshot map[string]Fields

// IDs returns the package identities in lexicographic order.
func (s Snapshot) IDs() []string {
	return slices.Sorted(maps.Keys(s))
}

// Has reports whether the identity is present.
func (s Snapshot) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of packages.
func (s Snapshot) Len() int {
	return len(s)
}

// Equal reports whether both snapshots hold the same identities with
// identical field maps.
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.EqualFunc(s, other, func(a, b Fields) bool {
		return maps.Equal(a, b)
	})
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for id, fields := range s {
		out[id] = fields.Clone()
	}
	return out
}

// Filter returns the packages whose identity keep accepts, and how many
// were dropped. The receiver is not modified.
func (s Snapshot) Filter(keep func(id string) bool) (Snapshot, int) {
	if s == nil {
		return nil, 0
	}
	out := make(Snapshot, len(s))
	for id, fields := range s {
		if keep(id) {
			out[id] = fields
		}
	}
	return out, len(s) - len(out)
}
