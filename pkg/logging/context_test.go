package logging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/pkgfeed/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("FromContext falls back to default", func(t *testing.T) {
		assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
		assert.Empty(t, logging.RunID(context.Background()))
	})

	t.Run("run id is retrievable and logged", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithRunID(ctx, "run-123")

		assert.Equal(t, "run-123", logging.RunID(ctx))
		logging.FromContext(ctx).Info().Msg("hello")
		tl.AssertContains(t, `"run_id":"run-123"`)
	})

	t.Run("chaining context functions", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithProject(ctx, "zsh")
		ctx = logging.WithStage(ctx, "check")
		ctx = logging.WithField(ctx, "error", errors.New("boom"))

		logging.FromContext(ctx).Warn().Msg("stage warning")
		assert.True(t, tl.ContainsAll(`"project":"zsh"`, `"stage":"check"`, `"error":"boom"`))
		tl.AssertCount(t, 1)
	})

	t.Run("WithFields adds custom fields", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithFields(ctx, map[string]any{"packages": 3, "initial": true})

		logging.FromContext(ctx).Info().Msg("extracted")
		assert.True(t, tl.ContainsAll(`"packages":3`, `"initial":true`))
	})
}
