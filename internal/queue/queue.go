// Package queue holds the durable, deduplicated set of sync operations that
// failed and must be replayed later. The queue is a thin typed view over one
// serialized blob in the blob store; every mutation persists immediately.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stridesync/internal/metrics"
	"stridesync/internal/models"
	"stridesync/internal/repository"
)

// BlobKey is the single well-known key the queue serializes under.
const BlobKey = "stridesync:pending_operations"

// Queue mirrors the persisted operations in memory under a mutex; the
// orchestrator and the background loop both mutate it, never concurrently
// past the lock.
type Queue struct {
	mu     sync.Mutex
	store  repository.BlobStore
	ops    []models.PendingOperation
	logger zerolog.Logger
}

// Load reads the persisted queue; an absent blob starts empty.
func Load(ctx context.Context, store repository.BlobStore, logger *zerolog.Logger) (*Queue, error) {
	q := &Queue{
		store:  store,
		logger: logger.With().Str("component", "pending-queue").Logger(),
	}

	data, err := store.LoadBlob(ctx, BlobKey)
	if err != nil {
		return nil, fmt.Errorf("load pending operations: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q.ops); err != nil {
			// A corrupt blob must not brick syncing; start over and log.
			q.logger.Error().Err(err).Msg("pending queue blob corrupt, resetting")
			q.ops = nil
		}
	}

	metrics.SetPendingOperations(len(q.ops))
	return q, nil
}

// Add enqueues op unless an entry with the same (entity, operation)
// identity already exists; dedup is by identity, not payload.
func (q *Queue) Add(ctx context.Context, op models.PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, existing := range q.ops {
		if existing.Matches(op) {
			q.logger.Debug().
				Str("entity_id", op.EntityID).
				Str("operation", string(op.Type)).
				Msg("pending operation already queued")
			return nil
		}
	}

	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	q.ops = append(q.ops, op)
	return q.persist(ctx)
}

// Remove drops the entry matching op's identity, if present.
func (q *Queue) Remove(ctx context.Context, op models.PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.ops[:0]
	removed := false
	for _, existing := range q.ops {
		if !removed && existing.Matches(op) {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	q.ops = kept
	if !removed {
		return nil
	}
	return q.persist(ctx)
}

// UpdateAfterAttempt records a completed replay attempt: increments the
// attempt count, stamps the attempt time, and stores the error when the
// attempt failed. Returns the updated entry.
func (q *Queue) UpdateAfterAttempt(ctx context.Context, op models.PendingOperation, attemptErr error) (models.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.ops {
		if !q.ops[i].Matches(op) {
			continue
		}
		now := time.Now()
		q.ops[i].AttemptCount++
		q.ops[i].LastAttemptAt = &now
		if attemptErr != nil {
			msg := attemptErr.Error()
			q.ops[i].LastError = &msg
		} else {
			q.ops[i].LastError = nil
		}
		updated := q.ops[i]
		return updated, q.persist(ctx)
	}
	return op, fmt.Errorf("pending operation %s/%s not found", op.EntityID, op.Type)
}

// All returns a snapshot of the queued operations in storage order.
func (q *Queue) All() []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.PendingOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Len is exposed for UI display and metrics only.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Clear drops every queued operation. Operator escape hatch.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = nil
	return q.persist(ctx)
}

func (q *Queue) persist(ctx context.Context) error {
	data, err := json.Marshal(q.ops)
	if err != nil {
		return fmt.Errorf("encode pending operations: %w", err)
	}
	if err := q.store.SaveBlob(ctx, BlobKey, data); err != nil {
		return fmt.Errorf("persist pending operations: %w", err)
	}
	metrics.SetPendingOperations(len(q.ops))
	return nil
}
