package syncer

import (
	"context"
	"testing"
	"time"

	"stridesync/internal/models"
	"stridesync/internal/retry"
)

func queuedOp(t *testing.T, env *testEnv, entityID string, opType models.OperationType, attempts int, lastAttempt *time.Time) models.PendingOperation {
	t.Helper()
	op := models.PendingOperation{
		ID:            "op-" + entityID,
		EntityID:      entityID,
		Type:          opType,
		CreatedAt:     time.Now().Add(-time.Hour),
		AttemptCount:  attempts,
		LastAttemptAt: lastAttempt,
	}
	if err := env.queue.Add(context.Background(), op); err != nil {
		t.Fatalf("seed queue: %v", err)
	}
	return op
}

func newTestLoop(env *testEnv, cfg retry.Config) *RetryLoop {
	return NewRetryLoop(env.orch, env.queue, env.remote, cfg, time.Minute, &env.orch.logger)
}

func TestTickSkipsWhenRemoteUnreachable(t *testing.T) {
	fr := newFakeRemote()
	fr.statusErr = netTimeoutErr{}
	cfg := fastConfig(5)
	env := newTestEnv(t, fr, cfg)

	seedDirtyParticipant(t, env, "p-1")
	queuedOp(t, env, "p-1", models.OpSyncParticipant, 1, nil)

	newTestLoop(env, cfg).Tick(context.Background())

	if fr.calls() != 0 {
		t.Fatalf("expected no replay against unreachable remote, got %d calls", fr.calls())
	}
	if env.queue.Len() != 1 {
		t.Fatalf("queue should be untouched, got %d entries", env.queue.Len())
	}
}

func TestTickReplaysAndRemovesOnSuccess(t *testing.T) {
	fr := newFakeRemote()
	cfg := fastConfig(5)
	env := newTestEnv(t, fr, cfg)
	ctx := context.Background()

	seedDirtyParticipant(t, env, "p-1")
	queuedOp(t, env, "p-1", models.OpSyncParticipant, 1, nil)

	newTestLoop(env, cfg).Tick(ctx)

	if env.queue.Len() != 0 {
		t.Fatalf("expected queue drained, got %d entries", env.queue.Len())
	}
	stored, _ := env.local.GetParticipant(ctx, "p-1")
	if stored.NeedsSync {
		t.Fatalf("expected entity clean after replay")
	}
}

func TestTickDropsExhaustedWithoutReplaying(t *testing.T) {
	fr := newFakeRemote()
	cfg := fastConfig(5)
	env := newTestEnv(t, fr, cfg)

	seedDirtyParticipant(t, env, "p-1")
	queuedOp(t, env, "p-1", models.OpSyncParticipant, cfg.MaxAttempts, nil)

	newTestLoop(env, cfg).Tick(context.Background())

	if fr.calls() != 0 {
		t.Fatalf("exhausted entry must not be replayed, got %d calls", fr.calls())
	}
	if env.queue.Len() != 0 {
		t.Fatalf("exhausted entry should be dropped, got %d entries", env.queue.Len())
	}
}

func TestTickHonorsBackoffWindow(t *testing.T) {
	fr := newFakeRemote()
	cfg := retry.Config{
		MaxAttempts: 5,
		BaseDelay:   time.Minute,
		MaxDelay:    time.Hour,
	}
	env := newTestEnv(t, fr, cfg)

	seedDirtyParticipant(t, env, "p-1")
	recent := time.Now().Add(-time.Second)
	queuedOp(t, env, "p-1", models.OpSyncParticipant, 2, &recent)

	newTestLoop(env, cfg).Tick(context.Background())

	if fr.calls() != 0 {
		t.Fatalf("entry inside backoff window must wait, got %d calls", fr.calls())
	}
	if env.queue.Len() != 1 {
		t.Fatalf("entry inside backoff window should stay queued, got %d", env.queue.Len())
	}

	// Once the window has elapsed the entry is eligible again.
	stale := time.Now().Add(-time.Hour)
	ops := env.queue.All()
	if err := env.queue.Remove(context.Background(), ops[0]); err != nil {
		t.Fatalf("reset queue: %v", err)
	}
	queuedOp(t, env, "p-1", models.OpSyncParticipant, 2, &stale)

	newTestLoop(env, cfg).Tick(context.Background())
	if fr.calls() == 0 {
		t.Fatalf("stale entry should have been replayed")
	}
}

func TestTickDropsOnFinalFailedAttempt(t *testing.T) {
	fr := newFakeRemote()
	for i := 0; i < 10; i++ {
		fr.saveErrs = append(fr.saveErrs, netTimeoutErr{})
	}
	cfg := fastConfig(2)
	env := newTestEnv(t, fr, cfg)

	seedDirtyParticipant(t, env, "p-1")
	stale := time.Now().Add(-time.Hour)
	queuedOp(t, env, "p-1", models.OpSyncParticipant, 1, &stale)

	newTestLoop(env, cfg).Tick(context.Background())

	// The failed replay brought the entry to max attempts; it is gone.
	if env.queue.Len() != 0 {
		t.Fatalf("expected entry dropped after final attempt, got %d entries", env.queue.Len())
	}
	stored, _ := env.local.GetParticipant(context.Background(), "p-1")
	if !stored.NeedsSync {
		t.Fatalf("entity should remain dirty after dropped operation")
	}
}

func TestTickRemovesEntryForCleanEntity(t *testing.T) {
	fr := newFakeRemote()
	cfg := fastConfig(5)
	env := newTestEnv(t, fr, cfg)
	ctx := context.Background()

	p := seedDirtyParticipant(t, env, "p-1")
	p.MarkSynced("remote-p-1", time.Now())
	if err := env.local.SaveParticipant(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	queuedOp(t, env, "p-1", models.OpSyncParticipant, 1, nil)

	newTestLoop(env, cfg).Tick(ctx)

	if fr.calls() != 0 {
		t.Fatalf("clean entity must not be re-pushed, got %d calls", fr.calls())
	}
	if env.queue.Len() != 0 {
		t.Fatalf("stale entry for clean entity should be removed, got %d", env.queue.Len())
	}
}

func TestStartDrainsQueueUntilCancelled(t *testing.T) {
	fr := newFakeRemote()
	cfg := fastConfig(5)
	env := newTestEnv(t, fr, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedDirtyParticipant(t, env, "p-1")
	queuedOp(t, env, "p-1", models.OpSyncParticipant, 0, nil)

	loop := NewRetryLoop(env.orch, env.queue, env.remote, cfg, 5*time.Millisecond, &env.orch.logger)
	done := make(chan struct{})
	go func() {
		loop.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for env.queue.Len() > 0 {
		select {
		case <-deadline:
			t.Fatalf("queue not drained before deadline, %d entries left", env.queue.Len())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop after cancel")
	}
}
