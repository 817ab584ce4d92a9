package pkgfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/agentstation/pkgfeed/pkg/errors"
	"github.com/agentstation/pkgfeed/pkg/logging"
)

// Watcher runs the pipeline on a schedule.
type Watcher interface {
	// Watch runs immediately and then every interval until ctx is done or a
	// run fails fatally. Runs never overlap; a run that outlasts the interval
	// delays the next one.
	Watch(ctx context.Context, interval time.Duration, opts ...WatchOption) error
}

// WatchOption configures a Watch call.
type WatchOption func(*watchOptions)

type watchOptions struct {
	onRun func(*RunResult, error)
}

// WithRunCallback is called after every scheduled run.
func WithRunCallback(fn func(*RunResult, error)) WatchOption {
	return func(o *watchOptions) {
		o.onRun = fn
	}
}

// Watch implements Watcher using a gocron scheduler.
func (m *monitor) Watch(ctx context.Context, interval time.Duration, opts ...WatchOption) error {
	if interval <= 0 {
		return errors.NewValidationError("interval", interval, "must be positive")
	}

	wo := &watchOptions{}
	for _, opt := range opts {
		opt(wo)
	}

	// each scheduled run gets its own run ID from Run
	log := logging.FromContext(logging.WithProject(logging.WithLogger(ctx, m.logger), m.options.project))

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	fatal := make(chan error, 1)
	task := func() {
		result, err := m.Run(ctx)
		if wo.onRun != nil {
			wo.onRun(result, err)
		}
		if err != nil {
			select {
			case fatal <- err:
			default:
			}
			return
		}
		log.Info().Str("summary", result.Summary()).Msg("Scheduled run complete")
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(m.options.project+"-run"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to schedule run: %w", err)
	}

	log.Info().Dur("interval", interval).Msg("Starting watch")
	s.Start()

	select {
	case <-ctx.Done():
		err = nil
	case err = <-fatal:
		log.Error().Err(err).Msg("Stopping watch after fatal error")
	}

	if shutdownErr := s.Shutdown(); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("Scheduler shutdown failed")
	}
	return err
}
