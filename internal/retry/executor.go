package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stridesync/internal/models"
)

// StatusFunc receives sync status transitions as the executor runs.
type StatusFunc func(models.SyncStatus)

// Executor is the single choke point all remote operations pass through.
// It applies the backoff policy and the error classifier uniformly and is
// the one source of truth for SyncStatus transitions during an operation.
type Executor struct {
	cfg     Config
	publish StatusFunc
	logger  zerolog.Logger
}

func NewExecutor(cfg Config, publish StatusFunc, logger *zerolog.Logger) *Executor {
	cfg = cfg.withDefaults()
	if publish == nil {
		publish = func(models.SyncStatus) {}
	}
	return &Executor{
		cfg:     cfg,
		publish: publish,
		logger:  logger.With().Str("component", "retry-executor").Logger(),
	}
}

// Do runs fn under the executor's default config.
func (e *Executor) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return e.DoWith(ctx, operation, e.cfg, fn)
}

// DoWith runs fn with up to cfg.MaxAttempts attempts. A non-retryable
// failure aborts immediately with no sleep; the final attempt never sleeps.
// The inter-attempt sleep honors ctx so a cancelled sync does not resume
// mid-backoff.
func (e *Executor) DoWith(ctx context.Context, operation string, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var last *Error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			e.publish(models.StatusRetrying(attempt, cfg.MaxAttempts))
		}

		err := fn(ctx)
		if err == nil {
			e.publish(models.StatusSuccess())
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		last = Classify(err)
		e.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Str("kind", string(last.Kind)).
			Bool("retryable", last.Retryable).
			Err(err).
			Msg("attempt failed")

		if !last.Retryable {
			e.publish(models.StatusError(last.Error()))
			return last
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if err := sleep(ctx, cfg.Delay(attempt)); err != nil {
			return err
		}
	}

	e.publish(models.StatusError(last.Error()))
	return last
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
