// Package state persists the previous snapshot between runs.
//
// Two backends are provided. FileStore keeps the snapshot as a pretty-printed
// JSON object mapping package identity to its monitored fields. SQLiteStore
// keeps the same data in a single table.
//
// Load distinguishes "never saved" from failure: it returns (nil, nil) when
// no prior state exists, and a typed error when the stored state cannot be
// read or parsed. Callers treat both cases as "no previous state".
package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/pkgfeed/pkg/snapshot"
)

// Store loads and saves the previous snapshot.
type Store interface {
	// Load returns the stored snapshot, or nil when none exists.
	Load(ctx context.Context) (snapshot.Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap snapshot.Snapshot) error
	// Location describes where the state lives, for logging.
	Location() string
	// Close releases any resources held by the store.
	Close() error
}

// Backend selects a Store implementation.
type Backend string

// Backend constants.
const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// String returns the string representation of the backend.
func (b Backend) String() string {
	return string(b)
}

// ParseBackend parses a backend name, defaulting to the file backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "file", "json":
		return BackendFile, nil
	case "sqlite", "sqlite3", "db":
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown state backend %q", s)
	}
}

// Open creates the Store for a backend at path.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
