package pkgfeed

import (
	"context"

	"github.com/agentstation/pkgfeed/pkg/changes"
	"github.com/agentstation/pkgfeed/pkg/differ"
	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/logging"
)

// Check runs the fetch and diff stage.
func (m *monitor) Check(ctx context.Context) (*CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.check(m.runContext(ctx, m.options.project))
}

func (m *monitor) check(ctx context.Context) (*CheckResult, error) {
	project := m.options.project
	if project == "" {
		return nil, errors.NewValidationError("project", project, "project name is required")
	}

	ctx = logging.WithStage(ctx, "check")
	log := logging.FromContext(ctx)
	rec := m.options.recorder

	start := m.options.now()
	result := &CheckResult{
		Project:     project,
		RunID:       logging.RunID(ctx),
		StartedAt:   start,
		Changes:     []differ.Change{},
		ChangesFile: m.options.changesFile,
	}

	// Step 1: fetch with a bounded timeout
	fetchCtx, cancel := context.WithTimeout(ctx, m.options.httpTimeout)
	raw, err := m.fetcher.FetchProject(fetchCtx, project)
	cancel()

	if err != nil {
		// Keep the saved snapshot so the next run compares against the last good state
		result.FetchError = err
		rec.IncWarning("fetch")
		log.Warn().Err(err).Msg("Fetch failed, skipping diff and keeping previous snapshot")
	} else {
		m.diff(ctx, raw, result)
	}

	// Step 5: hand the changes to the feed stage
	if path := m.options.changesFile; path != "" {
		doc := changes.New(project, result.Changeset, start)
		if err := changes.Write(path, doc); err != nil {
			result.ChangesFileError = err
			rec.IncWarning("changes")
			log.Warn().Err(err).Str("path", path).Msg("Could not write changes file")
		} else {
			log.Debug().Str("path", path).Int("changes", len(doc.Changes)).Msg("Wrote changes file")
		}
	}

	result.Duration = m.options.now().Sub(start)
	rec.ObserveStageDuration("check", result.Duration)
	return result, nil
}

// diff runs extraction, comparison and the snapshot save for fetched records.
func (m *monitor) diff(ctx context.Context, raw []any, result *CheckResult) {
	log := logging.FromContext(ctx)
	rec := m.options.recorder

	// Step 2: extract the monitored fields
	extracted := m.extractor.ExtractWithStats(raw)
	result.Records = extracted.Records
	result.Skipped = extracted.Skipped
	result.Overwritten = extracted.Overwritten

	current := extracted.Snapshot
	if !m.options.filter.Empty() {
		current, result.Filtered = current.Filter(m.options.filter.Keep)
	}
	result.Packages = current.Len()
	rec.SetPackages(result.Packages)

	log.Info().
		Int("records", extracted.Records).
		Int("packages", result.Packages).
		Int("skipped", extracted.Skipped).
		Int("filtered", result.Filtered).
		Msg("Extracted package snapshot")
	if extracted.Overwritten > 0 {
		log.Warn().Int("overwritten", extracted.Overwritten).Msg("Records shared an identity; the last one was kept")
	}

	// Step 3: load the previous snapshot, any failure means there is none
	previous, err := m.state.Load(ctx)
	if err != nil {
		result.StateLoadError = err
		rec.IncWarning("state")
		log.Warn().Err(err).Str("state", m.state.Location()).Msg("Could not load previous snapshot, treating as first run")
		previous = nil
	}

	cs := m.differ.Diff(previous, current)
	result.Changeset = cs
	result.Initial = cs.Initial
	if publish := cs.ForFeed(); publish != nil {
		result.Changes = publish
	}

	if cs.Initial {
		log.Info().Int("packages", result.Packages).Msg("No previous snapshot, recording initial state")
	} else {
		log.Info().
			Int("new", cs.Summary.New).
			Int("updated", cs.Summary.Updated).
			Int("removed", cs.Summary.Removed).
			Msg("Detected changes")
		rec.AddChanges(string(differ.ChangeTypeNew), cs.Summary.New)
		rec.AddChanges(string(differ.ChangeTypeUpdate), cs.Summary.Updated)
		rec.AddChanges(string(differ.ChangeTypeRemove), cs.Summary.Removed)
	}

	// Step 4: save the new snapshot, failure only costs the next diff
	if err := m.state.Save(ctx, current); err != nil {
		result.StateSaveError = err
		rec.IncWarning("state")
		log.Warn().Err(err).Str("state", m.state.Location()).Msg("Could not save snapshot")
	}

	m.hooks.trigger(cs)
}
