package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/pkgfeed/pkg/constants"
	"github.com/agentstation/pkgfeed/pkg/differ"
)

// Categories assigned to entries.
const (
	CategoryVersionUpdate  = "version-update"
	CategoryNewPackage     = "new-package"
	CategoryPackageUpdate  = "package-update"
	CategoryPackageRemoval = "package-removal"
	CategoryGeneral        = "general"
	CategoryMaintenance    = "maintenance"
)

// VersionUnknown replaces the version in titles when none was observed.
const VersionUnknown = "version unknown"

// guidNamespace scopes entry GUIDs to this generator.
var guidNamespace = uuid.NewMD5(uuid.NameSpaceURL, []byte(constants.RepologyProjectURL))

// Entry is a feed entry produced from a change.
type Entry struct {
	Title       string
	Description string // HTML fragment
	GUID        string
	PubDate     time.Time
	Category    string
	Link        string
}

// Item converts the entry to its RSS form.
func (e Entry) Item() Item {
	return Item{
		Title:       e.Title,
		Link:        e.Link,
		Description: e.Description,
		PubDate:     FormatDate(e.PubDate),
		GUID:        GUID{IsPermaLink: "false", Value: e.GUID},
		Category:    e.Category,
	}
}

// Mapper converts changes into feed entries for one run.
type Mapper struct {
	project      string
	link         string
	runTime      time.Time
	contentGUIDs bool
	markdown     goldmark.Markdown
	title        cases.Caser
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithLink sets the link attached to every entry.
func WithLink(link string) MapperOption {
	return func(m *Mapper) {
		m.link = link
	}
}

// WithContentGUIDs derives GUIDs from change content only, so the same change
// reported by two runs is deduplicated. By default the run timestamp is part
// of the GUID and dedup only applies within a run.
func WithContentGUIDs(enabled bool) MapperOption {
	return func(m *Mapper) {
		m.contentGUIDs = enabled
	}
}

// NewMapper creates a mapper for a run of project that started at runTime.
func NewMapper(project string, runTime time.Time, opts ...MapperOption) *Mapper {
	m := &Mapper{
		project:  project,
		link:     constants.RepologyProjectURL + "/" + project,
		runTime:  runTime.UTC().Truncate(time.Second),
		markdown: goldmark.New(),
		title:    cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Entries maps changes in order. With no changes it returns the single
// maintenance entry.
func (m *Mapper) Entries(changes []differ.Change) []Entry {
	if len(changes) == 0 {
		return []Entry{m.NoChangesEntry()}
	}

	entries := make([]Entry, 0, len(changes))
	for _, change := range changes {
		entries = append(entries, m.Entry(change))
	}
	return entries
}

// Entry maps one change.
func (m *Mapper) Entry(change differ.Change) Entry {
	return Entry{
		Title:       Title(change),
		Description: m.body(change),
		GUID:        m.guid(change),
		PubDate:     m.runTime,
		Category:    Category(change),
		Link:        m.link,
	}
}

// NoChangesEntry is the maintenance entry published when a run finds nothing.
// Its GUID is fixed so repeated idle runs add it only once.
func (m *Mapper) NoChangesEntry() Entry {
	text := fmt.Sprintf("No package changes were detected for **%s**.", escapeMarkdown(m.project))
	return Entry{
		Title:       "No changes detected",
		Description: m.render(text),
		GUID:        constants.NoChangesGUID,
		PubDate:     m.runTime,
		Category:    CategoryMaintenance,
		Link:        m.link,
	}
}

// Title returns the entry title of a change.
func Title(change differ.Change) string {
	switch change.Type {
	case differ.ChangeTypeNew:
		return fmt.Sprintf("New package: %s (%s)", change.Package, Version(change))
	case differ.ChangeTypeRemove:
		return fmt.Sprintf("Package removed: %s", change.Package)
	default:
		return fmt.Sprintf("%s updated to %s", change.Package, Version(change))
	}
}

// Version finds the version a change reports. A changed value wins over an
// observed one; sentinel values do not count.
func Version(change differ.Change) string {
	var observed string
	for _, e := range change.Entries() {
		if !isVersionField(e.Field) || e.Value == "" || e.Value == constants.NotAvailable {
			continue
		}
		if e.Delta {
			return e.Value
		}
		if observed == "" {
			observed = e.Value
		}
	}
	if observed != "" {
		return observed
	}
	return VersionUnknown
}

// Category classifies a change.
func Category(change differ.Change) string {
	for _, e := range change.Entries() {
		if isVersionField(e.Field) {
			return CategoryVersionUpdate
		}
	}

	switch change.Type {
	case differ.ChangeTypeNew:
		return CategoryNewPackage
	case differ.ChangeTypeUpdate:
		return CategoryPackageUpdate
	case differ.ChangeTypeRemove:
		return CategoryPackageRemoval
	default:
		return CategoryGeneral
	}
}

func isVersionField(name string) bool {
	return strings.Contains(strings.ToLower(name), "version")
}

// guid hashes the change content. Each part is length-prefixed so field
// boundaries cannot be shifted between parts.
func (m *Mapper) guid(change differ.Change) string {
	var b strings.Builder
	write := func(s string) {
		fmt.Fprintf(&b, "%d:%s;", len(s), s)
	}

	write(string(change.Type))
	write(change.Package)
	for _, e := range change.Entries() {
		write(e.Field)
		write(e.Value)
	}
	if !m.contentGUIDs {
		write(m.runTime.Format(time.RFC3339))
	}

	return string(change.Type) + "-" + uuid.NewMD5(guidNamespace, []byte(b.String())).String()
}

// body renders the change description as an HTML fragment.
func (m *Mapper) body(change differ.Change) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Package:** %s\n\n", escapeMarkdown(change.Package))
	fmt.Fprintf(&b, "**Change:** %s\n\n", m.title.String(change.Type.Label()))

	for _, e := range change.Entries() {
		if e.Delta {
			fmt.Fprintf(&b, "- **%s:** %s → %s\n", escapeMarkdown(e.Field), escapeMarkdown(e.Old), escapeMarkdown(e.Value))
		} else {
			fmt.Fprintf(&b, "- **%s:** %s\n", escapeMarkdown(e.Field), escapeMarkdown(e.Value))
		}
	}

	return m.render(b.String())
}

func (m *Mapper) render(source string) string {
	var buf bytes.Buffer
	if err := m.markdown.Convert([]byte(source), &buf); err != nil {
		// goldmark only fails on writer errors; fall back to escaped text
		return "<pre>" + htmlEscaper.Replace(source) + "</pre>"
	}
	return strings.TrimSpace(buf.String())
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;")

// markdownSpecial are the ASCII punctuation characters that can start or end
// markdown syntax. goldmark renders each escaped one literally.
const markdownSpecial = "\\`*_{}[]()<>#+-.!|~&\""

func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' {
			b.WriteByte(' ')
			continue
		}
		if strings.ContainsRune(markdownSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
