package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stridesync/internal/models"
	"stridesync/internal/queue"
	"stridesync/internal/remote"
	"stridesync/internal/retry"
)

const defaultInterval = 30 * time.Second

// RetryLoop periodically drains the pending-operation queue when the
// remote store is reachable. Cancelling the loop stops new ticks; an
// in-flight attempt finishes and updates the queue normally.
type RetryLoop struct {
	orch     *Orchestrator
	queue    *queue.Queue
	remote   remote.Store
	cfg      retry.Config
	interval time.Duration
	logger   zerolog.Logger
}

func NewRetryLoop(orch *Orchestrator, q *queue.Queue, remoteStore remote.Store, cfg retry.Config, interval time.Duration, logger *zerolog.Logger) *RetryLoop {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &RetryLoop{
		orch:     orch,
		queue:    q,
		remote:   remoteStore,
		cfg:      cfg,
		interval: interval,
		logger:   logger.With().Str("component", "retry-loop").Logger(),
	}
}

// Start runs until ctx is cancelled.
func (l *RetryLoop) Start(ctx context.Context) {
	l.logger.Info().Dur("interval", l.interval).Msg("background retry loop started")
	defer l.logger.Info().Msg("background retry loop stopped")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick replays every eligible queued operation once. The whole tick is
// skipped when the remote store is unreachable; there is no point burning
// attempts against a dead backend.
func (l *RetryLoop) Tick(ctx context.Context) {
	if err := l.remote.AccountStatus(ctx); err != nil {
		l.logger.Debug().Err(err).Msg("remote store unreachable, skipping tick")
		return
	}

	for _, op := range l.queue.All() {
		if ctx.Err() != nil {
			return
		}
		if !l.process(ctx, op) {
			return
		}
	}
}

// process handles one queue entry; returns false when the tick should stop.
func (l *RetryLoop) process(ctx context.Context, op models.PendingOperation) bool {
	if op.AttemptCount >= l.cfg.MaxAttempts {
		l.drop(ctx, op, "attempts exhausted")
		return true
	}

	// Backoff holds across process restarts: an entry that failed N times
	// waits the same delay a live retry would sleep after attempt N.
	if op.LastAttemptAt != nil {
		wait := l.cfg.Delay(max(1, op.AttemptCount))
		if time.Since(*op.LastAttemptAt) < wait {
			return true
		}
	}

	err := l.orch.Replay(ctx, op)
	if ctx.Err() != nil {
		// The attempt that just finished was recorded by Replay itself;
		// leave the entry for the next run.
		return false
	}

	if err == nil {
		if rmErr := l.queue.Remove(ctx, op); rmErr != nil {
			l.logger.Error().Err(rmErr).Str("entity_id", op.EntityID).Msg("remove completed operation")
		}
		return true
	}

	updated, uerr := l.queue.UpdateAfterAttempt(ctx, op, err)
	if uerr != nil {
		l.logger.Error().Err(uerr).Str("entity_id", op.EntityID).Msg("record replay attempt")
		return true
	}
	if updated.AttemptCount >= l.cfg.MaxAttempts {
		l.drop(ctx, updated, "attempts exhausted")
	}
	return true
}

func (l *RetryLoop) drop(ctx context.Context, op models.PendingOperation, reason string) {
	l.logger.Warn().
		Str("entity_id", op.EntityID).
		Str("operation", string(op.Type)).
		Int("attempt_count", op.AttemptCount).
		Str("reason", reason).
		Msg("dropping pending operation")
	if err := l.queue.Remove(ctx, op); err != nil {
		l.logger.Error().Err(err).Str("entity_id", op.EntityID).Msg("drop pending operation")
	}
}
