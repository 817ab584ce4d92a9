package state

import (
	"context"
	"encoding/json"
	"os"

	"github.com/agentstation/pkgfeed/internal/utils/atomicfile"
	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/snapshot"
)

// FileStore keeps the snapshot in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the state file path.
func (s *FileStore) Location() string {
	return s.path
}

// Load reads the snapshot file.
func (s *FileStore) Load(_ context.Context) (snapshot.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", s.path, err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.WrapParse("json", s.path, err)
	}
	// "null" decodes to a nil map
	if snap == nil {
		return nil, errors.NewParseError("json", s.path, "state is not an object", nil)
	}

	return snap, nil
}

// Save writes the snapshot as indented JSON.
func (s *FileStore) Save(_ context.Context, snap snapshot.Snapshot) error {
	if snap == nil {
		snap = snapshot.Snapshot{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.WrapParse("json", s.path, err)
	}
	data = append(data, '\n')

	return atomicfile.Write(s.path, data)
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
