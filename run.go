package pkgfeed

import (
	"context"

	"github.com/agentstation/pkgfeed/pkg/metrics"
)

// Run checks the project and publishes the result in one pass.
func (m *monitor) Run(ctx context.Context) (*RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = m.runContext(ctx, m.options.project)
	rec := m.options.recorder

	check, err := m.check(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Check: check}
	result.Feed, err = m.generate(ctx, check.Changes, m.options.project)
	if err != nil {
		rec.IncRun(metrics.ResultFatal)
		return result, err
	}

	rec.IncRun(result.Outcome())
	rec.SetLastRun(m.options.now())
	return result, nil
}
