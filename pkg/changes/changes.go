// Package changes reads and writes the change-description file that hands
// detected changes from the check stage to the feed stage.
package changes

import (
	"encoding/json"
	"os"
	"time"

	"github.com/agentstation/pkgfeed/internal/utils/atomicfile"
	"github.com/agentstation/pkgfeed/pkg/differ"
	"github.com/agentstation/pkgfeed/pkg/errors"
)

// Document is the serialized form of one check run.
type Document struct {
	Project     string          `json:"project"`
	GeneratedAt time.Time       `json:"generated_at"`
	Initial     bool            `json:"initial"`
	Changes     []differ.Change `json:"changes"`
}

// New builds a Document from a changeset. An initialization run is recorded
// with no changes so the feed stage never publishes it.
func New(project string, cs *differ.Changeset, generatedAt time.Time) *Document {
	doc := &Document{
		Project:     project,
		GeneratedAt: generatedAt.UTC().Truncate(time.Second),
		Changes:     []differ.Change{},
	}
	if cs == nil {
		return doc
	}
	doc.Initial = cs.Initial
	if feed := cs.ForFeed(); feed != nil {
		doc.Changes = feed
	}
	return doc
}

// Write stores the document as indented JSON.
func Write(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.WrapParse("json", path, err)
	}
	return atomicfile.Write(path, append(data, '\n'))
}

// Read loads a document. The returned error is an IOError or ParseError;
// callers treat any error as zero changes.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}

	valid := doc.Changes[:0]
	for _, change := range doc.Changes {
		if change.Package != "" && change.Type != "" {
			valid = append(valid, change)
		}
	}
	doc.Changes = valid

	return &doc, nil
}

// ReadOrEmpty loads a document, returning an empty one and the error when it
// cannot be read.
func ReadOrEmpty(path string) (*Document, error) {
	doc, err := Read(path)
	if err != nil {
		return &Document{Changes: []differ.Change{}}, err
	}
	return doc, nil
}
