package snapshot

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/agentstation/pkgfeed/pkg/constants"
)

// Grouping keys used to derive a package identity from a raw record.
const (
	RepoKey    = "repo"
	SubrepoKey = "subrepo"
)

// Record is one raw package entry as decoded from the API.
type Record = map[string]any

// Extractor normalizes raw package records into a Snapshot that only
// retains the monitored fields.
type Extractor struct {
	fields []string
}

// ExtractResult reports what happened during extraction so callers can log it.
type ExtractResult struct {
	Snapshot    Snapshot
	Records     int // raw records seen
	Skipped     int // records that were not objects
	Overwritten int // records that replaced an earlier record with the same identity
	Fallback    int // records assigned the fallback identity
}

// NewExtractor creates an extractor for the given monitored fields.
// With no fields the defaults are used.
func NewExtractor(fields ...string) *Extractor {
	if len(fields) == 0 {
		fields = constants.DefaultFields()
	}
	return &Extractor{fields: slices.Clone(fields)}
}

// Fields returns the monitored field names in comparison order.
func (e *Extractor) Fields() []string {
	return slices.Clone(e.fields)
}

// Extract builds a Snapshot from raw records.
func (e *Extractor) Extract(raw []any) Snapshot {
	return e.ExtractWithStats(raw).Snapshot
}

// ExtractWithStats builds a Snapshot and reports extraction counts.
// Records that collapse to the same identity overwrite each other in input
// order, so the last one wins.
func (e *Extractor) ExtractWithStats(raw []any) *ExtractResult {
	result := &ExtractResult{
		Snapshot: make(Snapshot, len(raw)),
		Records:  len(raw),
	}

	for _, item := range raw {
		record, ok := item.(map[string]any)
		if !ok {
			result.Skipped++
			continue
		}

		id, fallback := Identity(record)
		if fallback {
			result.Fallback++
		}
		if result.Snapshot.Has(id) {
			result.Overwritten++
		}

		fields := make(Fields, len(e.fields))
		for _, name := range e.fields {
			fields[name] = stringValue(record[name])
		}
		result.Snapshot[id] = fields
	}

	return result
}

// Identity derives the package identity of a raw record. The second return
// value is true when the record had no usable repo key and the fallback
// identity was assigned.
func Identity(record Record) (string, bool) {
	repo, ok := record[RepoKey].(string)
	if !ok || repo == "" {
		return constants.UnknownPackage, true
	}

	if subrepo, ok := record[SubrepoKey].(string); ok && subrepo != "" && subrepo != repo {
		return repo + "/" + subrepo, false
	}
	return repo, false
}

// stringValue renders a scalar API value as a string, using the sentinel for
// missing, null or structured values.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return constants.NotAvailable
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int, int64:
		return fmt.Sprint(val)
	default:
		return constants.NotAvailable
	}
}
