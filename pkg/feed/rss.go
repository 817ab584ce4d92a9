// Package feed maps detected changes to RSS entries and maintains the
// bounded RSS 2.0 document they are published in.
package feed

import (
	"bytes"
	"encoding/xml"
	"slices"
	"time"
)

// RSS is the root element of an RSS 2.0 document.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

// Channel holds the channel metadata and its items.
type Channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	Language      string `xml:"language,omitempty"`
	Category      string `xml:"category,omitempty"`
	Generator     string `xml:"generator,omitempty"`
	TTL           int    `xml:"ttl,omitempty"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	PubDate       string `xml:"pubDate,omitempty"`
	Items         []Item `xml:"item"`
}

// Item is one published feed entry.
type Item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link,omitempty"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        GUID   `xml:"guid"`
	Category    string `xml:"category,omitempty"`
}

// GUID is an item identifier. Generated identifiers are never permalinks.
type GUID struct {
	IsPermaLink string `xml:"isPermaLink,attr,omitempty"`
	Value       string `xml:",chardata"`
}

// Metadata is the channel configuration used for new documents.
type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
	Category    string
	Generator   string
	TTL         int
}

// Document is an RSS document being updated by a run.
type Document struct {
	rss   RSS
	guids map[string]struct{}
}

// AppendResult reports what Append did.
type AppendResult struct {
	Added   int
	Skipped int
}

// NewDocument creates an empty document with the given channel metadata.
func NewDocument(meta Metadata, now time.Time) *Document {
	stamp := FormatDate(now)
	return newDocument(RSS{
		Version: "2.0",
		Channel: Channel{
			Title:         meta.Title,
			Link:          meta.Link,
			Description:   meta.Description,
			Language:      meta.Language,
			Category:      meta.Category,
			Generator:     meta.Generator,
			TTL:           meta.TTL,
			LastBuildDate: stamp,
			PubDate:       stamp,
		},
	})
}

// newDocument indexes items by GUID, keeping the first of any duplicates.
func newDocument(rss RSS) *Document {
	if rss.Version == "" {
		rss.Version = "2.0"
	}
	doc := &Document{rss: rss, guids: make(map[string]struct{}, len(rss.Channel.Items))}

	items := rss.Channel.Items[:0]
	for _, item := range rss.Channel.Items {
		if _, dup := doc.guids[item.GUID.Value]; dup {
			continue
		}
		doc.guids[item.GUID.Value] = struct{}{}
		items = append(items, item)
	}
	doc.rss.Channel.Items = items
	return doc
}

// Channel returns a copy of the channel metadata and items.
func (d *Document) Channel() Channel {
	ch := d.rss.Channel
	ch.Items = slices.Clone(ch.Items)
	return ch
}

// Items returns a copy of the current items in document order.
func (d *Document) Items() []Item {
	return slices.Clone(d.rss.Channel.Items)
}

// Len returns the number of items.
func (d *Document) Len() int {
	return len(d.rss.Channel.Items)
}

// Has reports whether an item with the GUID exists.
func (d *Document) Has(guid string) bool {
	_, ok := d.guids[guid]
	return ok
}

// LastBuildDate returns the channel build timestamp.
func (d *Document) LastBuildDate() string {
	return d.rss.Channel.LastBuildDate
}

// Append adds entries whose GUID is not yet present, including duplicates
// within entries, and refreshes the build timestamp once.
func (d *Document) Append(entries []Entry, now time.Time) AppendResult {
	var result AppendResult
	for _, entry := range entries {
		if d.Has(entry.GUID) {
			result.Skipped++
			continue
		}
		d.guids[entry.GUID] = struct{}{}
		d.rss.Channel.Items = append(d.rss.Channel.Items, entry.Item())
		result.Added++
	}

	stamp := FormatDate(now)
	d.rss.Channel.LastBuildDate = stamp
	if result.Added > 0 {
		d.rss.Channel.PubDate = stamp
	}
	return result
}

// Trim keeps the maxItems most recent items and returns how many were
// removed. Items are ordered newest first afterwards; equal dates keep their
// order.
func (d *Document) Trim(maxItems int) int {
	items := d.rss.Channel.Items
	if maxItems < 0 || len(items) <= maxItems {
		return 0
	}

	slices.SortStableFunc(items, func(a, b Item) int {
		return compareDates(b.PubDate, a.PubDate)
	})

	removed := len(items) - maxItems
	for _, item := range items[maxItems:] {
		delete(d.guids, item.GUID.Value)
	}
	d.rss.Channel.Items = slices.Clip(items[:maxItems])
	return removed
}

// Bytes renders the document with the XML declaration.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(d.rss); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Parse reads an RSS document.
func Parse(data []byte) (*Document, error) {
	var rss RSS
	if err := xml.Unmarshal(data, &rss); err != nil {
		return nil, err
	}
	return newDocument(rss), nil
}
