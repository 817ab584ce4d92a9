package state

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/agentstation/utc"
	_ "modernc.org/sqlite"

	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/snapshot"
)

// SQLiteStore keeps the snapshot in a SQLite database.
// Use ":memory:" for an in-memory database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: path}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("initialize", path, err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS packages (
		identity TEXT NOT NULL,
		field TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (identity, field)
	);
	CREATE TABLE IF NOT EXISTS snapshot_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		saved_at TEXT NOT NULL,
		packages INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Location returns the database path.
func (s *SQLiteStore) Location() string {
	return s.path
}

// Load reads the snapshot. It returns nil when nothing has been saved yet.
func (s *SQLiteStore) Load(ctx context.Context) (snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT packages FROM snapshot_meta WHERE id = 1").Scan(&count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", s.path, err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT identity, field, value FROM packages ORDER BY identity, field")
	if err != nil {
		return nil, errors.WrapIO("read", s.path, err)
	}
	defer func() { _ = rows.Close() }()

	snap := make(snapshot.Snapshot, count)
	for rows.Next() {
		var identity, field, value string
		if err := rows.Scan(&identity, &field, &value); err != nil {
			return nil, errors.WrapParse("sqlite", s.path, err)
		}
		if snap[identity] == nil {
			snap[identity] = make(snapshot.Fields)
		}
		snap[identity][field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO("read", s.path, err)
	}

	if len(snap) != count {
		return nil, errors.NewParseError("sqlite", s.path,
			fmt.Sprintf("expected %d packages, found %d", count, len(snap)), nil)
	}

	return snap, nil
}

// Save replaces the stored snapshot in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap snapshot.Snapshot) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIO("write", s.path, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM packages"); err != nil {
		return errors.WrapIO("write", s.path, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO packages (identity, field, value) VALUES (?, ?, ?)")
	if err != nil {
		return errors.WrapIO("write", s.path, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range snap.IDs() {
		for field, value := range snap[id] {
			if _, err = stmt.ExecContext(ctx, id, field, value); err != nil {
				return errors.WrapIO("write", s.path, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, saved_at, packages) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, packages = excluded.packages`,
		utc.Now().Time.Format(time.RFC3339), snap.Len(),
	)
	if err != nil {
		return errors.WrapIO("write", s.path, err)
	}

	if err = tx.Commit(); err != nil {
		return errors.WrapIO("commit", s.path, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
