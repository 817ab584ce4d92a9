package feed

import (
	"os"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/pkgfeed/internal/utils/atomicfile"
	"github.com/agentstation/pkgfeed/pkg/errors"
)

// LoadOutcome describes how LoadOrInit obtained its document.
type LoadOutcome string

// LoadOutcome constants.
const (
	// Loaded means the existing file was parsed.
	Loaded LoadOutcome = "loaded"
	// Created means no file existed and a fresh document was created.
	Created LoadOutcome = "created"
	// Recovered means the existing file could not be used and was replaced
	// by a fresh document.
	Recovered LoadOutcome = "recovered"
)

// LoadStatus reports the outcome of LoadOrInit. Err is set when Recovered.
type LoadStatus struct {
	Outcome LoadOutcome
	Err     error
}

// Store loads and persists the feed document at a path.
type Store struct {
	path string
	meta Metadata
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used for build timestamps of new documents.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store for the feed file at path. meta is used when a
// new document has to be created.
func NewStore(path string, meta Metadata, opts ...StoreOption) *Store {
	s := &Store{
		path: path,
		meta: meta,
		now:  func() time.Time { return utc.Now().Time },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the feed file path.
func (s *Store) Path() string {
	return s.path
}

// LoadOrInit parses the existing feed file. A missing or unusable file
// yields a fresh document; it never fails.
func (s *Store) LoadOrInit() (*Document, LoadStatus) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewDocument(s.meta, s.now()), LoadStatus{Outcome: Created}
	}
	if err != nil {
		return NewDocument(s.meta, s.now()), LoadStatus{Outcome: Recovered, Err: errors.WrapIO("read", s.path, err)}
	}

	doc, err := Parse(data)
	if err != nil {
		return NewDocument(s.meta, s.now()), LoadStatus{Outcome: Recovered, Err: errors.WrapParse("xml", s.path, err)}
	}
	return doc, LoadStatus{Outcome: Loaded}
}

// Persist writes the document atomically. Failure is fatal to the run.
func (s *Store) Persist(doc *Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return errors.WrapFatal("feed", errors.WrapParse("xml", s.path, err))
	}
	if err := atomicfile.Write(s.path, data); err != nil {
		return errors.WrapFatal("feed", err)
	}
	return nil
}
