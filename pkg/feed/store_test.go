package feed

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/pkgfeed/pkg/constants"
	"github.com/agentstation/pkgfeed/pkg/errors"
)

func testMetadata() Metadata {
	return Metadata{
		Title:       "bash package updates",
		Link:        constants.RepologyProjectURL + "/bash",
		Description: "Repology changes for bash",
		Language:    constants.DefaultFeedLanguage,
		Category:    constants.DefaultFeedCategory,
		Generator:   constants.Generator,
		TTL:         constants.DefaultFeedTTL,
	}
}

func entry(guid string, published time.Time) Entry {
	return Entry{Title: guid, Description: "<p>" + guid + "</p>", GUID: guid, PubDate: published, Category: CategoryGeneral}
}

func TestAppend_Dedup(t *testing.T) {
	doc := NewDocument(testMetadata(), runTime)

	first := doc.Append([]Entry{entry("a", runTime)}, runTime)
	assert.Equal(t, AppendResult{Added: 1}, first)

	second := doc.Append([]Entry{entry("a", runTime)}, runTime.Add(time.Minute))
	assert.Equal(t, AppendResult{Skipped: 1}, second)

	batch := doc.Append([]Entry{entry("b", runTime), entry("b", runTime), entry("a", runTime)}, runTime)
	assert.Equal(t, AppendResult{Added: 1, Skipped: 2}, batch)

	assert.Equal(t, 2, doc.Len())
	assert.True(t, doc.Has("a"))
	assert.True(t, doc.Has("b"))
}

func TestAppend_RefreshesBuildDate(t *testing.T) {
	doc := NewDocument(testMetadata(), runTime)
	assert.Equal(t, FormatDate(runTime), doc.LastBuildDate())

	later := runTime.Add(2 * time.Hour)
	result := doc.Append(nil, later)

	assert.Equal(t, 0, result.Added)
	assert.Equal(t, FormatDate(later), doc.LastBuildDate())
	assert.Equal(t, FormatDate(runTime), doc.Channel().PubDate, "pubDate only moves when entries are added")
}

func TestTrim(t *testing.T) {
	doc := NewDocument(testMetadata(), runTime)

	var entries []Entry
	for i := range 60 {
		entries = append(entries, entry(fmt.Sprintf("e%02d", i), runTime.Add(time.Duration(i)*time.Minute)))
	}
	rand.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
	doc.Append(entries, runTime)

	removed := doc.Trim(constants.DefaultMaxItems)

	assert.Equal(t, 10, removed)
	require.Equal(t, 50, doc.Len())
	for i, item := range doc.Items() {
		assert.Equal(t, fmt.Sprintf("e%02d", 59-i), item.GUID.Value, "position %d", i)
	}
	assert.False(t, doc.Has("e09"))
	assert.True(t, doc.Has("e10"))
}

func TestTrim_Chronological(t *testing.T) {
	doc := NewDocument(testMetadata(), runTime)
	// Lexically "Wed" sorts after "Thu" though it is a day earlier
	doc.Append([]Entry{
		entry("wednesday", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)),
		entry("thursday", time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)),
	}, runTime)

	assert.Equal(t, 1, doc.Trim(1))
	assert.Equal(t, "thursday", doc.Items()[0].GUID.Value)
}

func TestTrim_UnderLimit(t *testing.T) {
	doc := NewDocument(testMetadata(), runTime)
	doc.Append([]Entry{entry("a", runTime)}, runTime)

	assert.Equal(t, 0, doc.Trim(50))
	assert.Equal(t, 1, doc.Len())
}

func TestStore_LoadOrInit(t *testing.T) {
	dir := t.TempDir()
	clock := WithClock(func() time.Time { return runTime })

	t.Run("missing", func(t *testing.T) {
		doc, status := NewStore(filepath.Join(dir, "missing.xml"), testMetadata(), clock).LoadOrInit()
		assert.Equal(t, Created, status.Outcome)
		assert.NoError(t, status.Err)
		assert.Equal(t, 0, doc.Len())
		assert.Equal(t, "bash package updates", doc.Channel().Title)
		assert.Equal(t, FormatDate(runTime), doc.LastBuildDate())
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.xml")
		require.NoError(t, os.WriteFile(path, []byte("<rss><channel><item>"), 0o644))

		doc, status := NewStore(path, testMetadata(), clock).LoadOrInit()
		assert.Equal(t, Recovered, status.Outcome)
		var parseErr *errors.ParseError
		assert.ErrorAs(t, status.Err, &parseErr)
		assert.Equal(t, 0, doc.Len())
	})

	t.Run("not rss", func(t *testing.T) {
		path := filepath.Join(dir, "atom.xml")
		require.NoError(t, os.WriteFile(path, []byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`), 0o644))

		_, status := NewStore(path, testMetadata(), clock).LoadOrInit()
		assert.Equal(t, Recovered, status.Outcome)
	})
}

func TestStore_PersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.xml")
	store := NewStore(path, testMetadata())

	doc, _ := store.LoadOrInit()
	doc.Append([]Entry{entry("a", runTime), entry("b & <c>", runTime)}, runTime)
	require.NoError(t, store.Persist(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, text, `<rss version="2.0">`)
	assert.Contains(t, text, `<guid isPermaLink="false">a</guid>`)
	assert.Contains(t, text, "<generator>pkgfeed</generator>")
	assert.Contains(t, text, "<ttl>60</ttl>")

	loaded, status := store.LoadOrInit()
	assert.Equal(t, Loaded, status.Outcome)
	assert.Equal(t, doc.Items(), loaded.Items())
	assert.True(t, loaded.Has("b & <c>"))
}

func TestStore_NoChangesIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.xml")
	store := NewStore(path, testMetadata())

	for i := range 2 {
		now := runTime.Add(time.Duration(i) * time.Hour)
		doc, _ := store.LoadOrInit()
		doc.Append(NewMapper("bash", now).Entries(nil), now)
		doc.Trim(constants.DefaultMaxItems)
		require.NoError(t, store.Persist(doc))
	}

	doc, status := store.LoadOrInit()
	require.Equal(t, Loaded, status.Outcome)
	require.Equal(t, 1, doc.Len())
	assert.Equal(t, constants.NoChangesGUID, doc.Items()[0].GUID.Value)
	assert.Equal(t, FormatDate(runTime.Add(time.Hour)), doc.LastBuildDate())
}

func TestStore_PersistFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewStore(filepath.Join(blocker, "feed.xml"), testMetadata())
	err := store.Persist(NewDocument(testMetadata(), runTime))

	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestParse_DropsDuplicateGUIDs(t *testing.T) {
	data := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title><link>l</link><description>d</description>
<item><title>one</title><description>x</description><pubDate>Fri, 14 Mar 2025 09:26:53 +0000</pubDate><guid>dup</guid></item>
<item><title>two</title><description>y</description><pubDate>Fri, 14 Mar 2025 09:26:53 +0000</pubDate><guid>dup</guid></item>
</channel></rss>`

	doc, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Equal(t, 1, doc.Len())
	assert.Equal(t, "one", doc.Items()[0].Title)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{
		"Fri, 14 Mar 2025 09:26:53 +0000",
		"Fri, 14 Mar 2025 09:26:53 UTC",
		"2025-03-14T09:26:53Z",
	} {
		got, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.True(t, got.Equal(runTime), s)
	}

	_, ok := ParseDate("yesterday")
	assert.False(t, ok)
	assert.Equal(t, -1, compareDates("Wed, 12 Mar 2025 00:00:00 +0000", "Thu, 13 Mar 2025 00:00:00 +0000"))
}
