package pkgfeed

import (
	"context"

	"github.com/agentstation/pkgfeed/pkg/changes"
	"github.com/agentstation/pkgfeed/pkg/constants"
	"github.com/agentstation/pkgfeed/pkg/differ"
	"github.com/agentstation/pkgfeed/pkg/feed"
	"github.com/agentstation/pkgfeed/pkg/logging"
)

// Generate publishes changes to the configured feed file.
func (m *monitor) Generate(ctx context.Context, changes []differ.Change) (*FeedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.generate(m.runContext(ctx, m.options.project), changes, m.options.project)
}

// GenerateFromFile publishes the changes recorded at path.
func (m *monitor) GenerateFromFile(ctx context.Context, path string) (*FeedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, readErr := changes.ReadOrEmpty(path)

	project := m.options.project
	if project == "" {
		project = doc.Project
	}
	ctx = m.runContext(ctx, project)

	if readErr != nil {
		m.options.recorder.IncWarning("changes")
		logging.FromContext(ctx).Warn().Err(readErr).Str("path", path).Msg("Could not read changes file, treating as no changes")
	}

	result, err := m.generate(ctx, doc.Changes, project)
	result.ChangesFile = path
	result.ChangesError = readErr
	return result, err
}

// generate maps, appends, trims and persists. Only persistence can fail.
func (m *monitor) generate(ctx context.Context, changes []differ.Change, project string) (*FeedResult, error) {
	if project == "" {
		project = constants.UnknownPackage
	}

	ctx = logging.WithStage(ctx, "feed")
	log := logging.FromContext(ctx)
	rec := m.options.recorder

	now := m.options.now()
	mapper := feed.NewMapper(project, now,
		feed.WithLink(projectLink(project)),
		feed.WithContentGUIDs(m.options.contentGUIDs),
	)
	entries := mapper.Entries(changes)

	store := feed.NewStore(m.options.feedFile, m.metadata(project), feed.WithClock(m.options.now))
	doc, status := store.LoadOrInit()
	switch status.Outcome {
	case feed.Recovered:
		rec.IncWarning("feed")
		log.Warn().Err(status.Err).Str("path", store.Path()).Msg("Existing feed unusable, starting a new one")
	case feed.Created:
		log.Info().Str("path", store.Path()).Msg("Creating new feed")
	default:
		log.Debug().Str("path", store.Path()).Int("items", doc.Len()).Msg("Loaded existing feed")
	}

	appended := doc.Append(entries, now)
	trimmed := doc.Trim(m.options.maxItems)

	result := &FeedResult{
		FeedFile:  store.Path(),
		Load:      status,
		Entries:   len(entries),
		NoChanges: len(changes) == 0,
		Added:     appended.Added,
		Skipped:   appended.Skipped,
		Trimmed:   trimmed,
		Items:     doc.Len(),
	}

	log.Info().
		Int("entries", result.Entries).
		Int("added", result.Added).
		Int("duplicates", result.Skipped).
		Int("trimmed", result.Trimmed).
		Int("items", result.Items).
		Msg("Updated feed")

	if err := store.Persist(doc); err != nil {
		log.Error().Err(err).Str("path", store.Path()).Msg("Could not write feed")
		return result, err
	}

	rec.AddEntries("added", result.Added)
	rec.AddEntries("skipped", result.Skipped)
	rec.AddEntries("trimmed", result.Trimmed)
	rec.SetFeedItems(result.Items)

	result.Duration = m.options.now().Sub(now)
	rec.ObserveStageDuration("feed", result.Duration)
	return result, nil
}
