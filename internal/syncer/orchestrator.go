// Package syncer propagates local mutations to the remote record store and
// pulls remote changes back. Push failures are swallowed into the durable
// pending-operation queue; the background retry loop replays them later.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stridesync/internal/events"
	"stridesync/internal/mapper"
	"stridesync/internal/metrics"
	"stridesync/internal/models"
	"stridesync/internal/queue"
	"stridesync/internal/remote"
	"stridesync/internal/retry"
	"stridesync/internal/store"
)

// Orchestrator is the single owner of SyncStatus and the only writer of the
// pending queue during live syncs. Operations are serialized: the mutex
// keeps a user-triggered sync and a background replay from racing on
// needs_sync / last_synced_at.
type Orchestrator struct {
	remote remote.Store
	local  *store.Store
	queue  *queue.Queue
	bus    *events.Bus
	exec   *retry.Executor
	cfg    retry.Config
	logger zerolog.Logger

	mu sync.Mutex // serializes push/pull operations

	statusMu sync.Mutex
	status   models.SyncStatus
	syncing  bool
}

func New(remoteStore remote.Store, local *store.Store, q *queue.Queue, bus *events.Bus, cfg retry.Config, logger *zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		remote: remoteStore,
		local:  local,
		queue:  q,
		bus:    bus,
		cfg:    cfg,
		logger: logger.With().Str("component", "sync-orchestrator").Logger(),
		status: models.StatusIdle(),
	}
	o.exec = retry.NewExecutor(cfg, o.publishStatus, logger)
	return o
}

// Status returns the last published sync status.
func (o *Orchestrator) Status() models.SyncStatus {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	return o.status
}

// Syncing reports whether a push or pull is in flight.
func (o *Orchestrator) Syncing() bool {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	return o.syncing
}

func (o *Orchestrator) publishStatus(st models.SyncStatus) {
	o.statusMu.Lock()
	o.status = st
	o.statusMu.Unlock()
	_ = o.bus.PublishJSON(events.EventSyncStatusChanged, st)
}

func (o *Orchestrator) setSyncing(v bool) {
	o.statusMu.Lock()
	o.syncing = v
	o.statusMu.Unlock()
}

// SyncParticipant pushes a dirty participant and its day logs and activity
// data, parent first so remote references resolve. Failures are queued, not
// returned: sync is fire-and-forget from the caller's perspective.
func (o *Orchestrator) SyncParticipant(ctx context.Context, p *models.Participant) {
	if p == nil || !p.NeedsSync {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	err := o.runPush(ctx, string(models.OpSyncParticipant), o.cfg, func(ctx context.Context) error {
		return o.pushParticipant(ctx, p)
	})
	if err != nil {
		o.enqueue(ctx, p.ID, models.OpSyncParticipant, err)
	}
}

// SyncDayLog pushes a dirty day log and its activity data.
func (o *Orchestrator) SyncDayLog(ctx context.Context, l *models.DayLog) {
	if l == nil || !l.NeedsSync {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	err := o.runPush(ctx, string(models.OpSyncDayLog), o.cfg, func(ctx context.Context) error {
		return o.pushDayLog(ctx, l)
	})
	if err != nil {
		o.enqueue(ctx, l.ID, models.OpSyncDayLog, err)
	}
}

// SyncActivityData pushes dirty activity measurements.
func (o *Orchestrator) SyncActivityData(ctx context.Context, a *models.ActivityData) {
	if a == nil || !a.NeedsSync {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	err := o.runPush(ctx, string(models.OpSyncActivityData), o.cfg, func(ctx context.Context) error {
		return o.pushActivity(ctx, a)
	})
	if err != nil {
		o.enqueue(ctx, a.ID, models.OpSyncActivityData, err)
	}
}

// SyncDirty pushes every participant the local store has flagged for sync.
// Used at daemon start to catch up after offline mutations.
func (o *Orchestrator) SyncDirty(ctx context.Context) {
	dirty, err := o.local.ParticipantsNeedingSync(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("query dirty participants")
		return
	}
	for i := range dirty {
		if ctx.Err() != nil {
			return
		}
		o.SyncParticipant(ctx, &dirty[i])
	}
}

// FetchRemoteUpdates pulls the challenge's participants and their children
// from the remote store and commits them locally. A record that fails to
// map is skipped; only transport failures fail the pull.
func (o *Orchestrator) FetchRemoteUpdates(ctx context.Context, challengeID string) ([]models.Participant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, err := o.local.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.RemoteRecordID == "" {
		return nil, fmt.Errorf("challenge %s has no remote record", challengeID)
	}

	o.setSyncing(true)
	defer o.setSyncing(false)
	o.publishStatus(models.StatusSyncing())

	var result []models.Participant
	err = o.exec.Do(ctx, "fetch_remote_updates", func(ctx context.Context) error {
		participants, err := o.pullParticipants(ctx, c.RemoteRecordID)
		if err != nil {
			return err
		}
		result = participants
		return nil
	})
	if err != nil {
		metrics.IncSyncAttempt("fetch_remote_updates", "failure")
		return nil, err
	}

	for i := range result {
		if err := o.commitPulled(ctx, &result[i]); err != nil {
			o.logger.Error().Err(err).Str("participant_id", result[i].ID).Msg("commit pulled participant")
		}
	}

	metrics.IncSyncAttempt("fetch_remote_updates", "success")
	_ = o.bus.PublishJSON(events.EventDataUpdated, map[string]string{"operation": "fetch_remote_updates"})
	return result, nil
}

// CreateShare uploads the challenge root record if needed and makes it
// joinable, returning the share handle with its invite code.
func (o *Orchestrator) CreateShare(ctx context.Context, c *models.Challenge) (remote.Share, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.setSyncing(true)
	defer o.setSyncing(false)
	o.publishStatus(models.StatusSyncing())

	var share remote.Share
	err := o.exec.Do(ctx, "create_share", func(ctx context.Context) error {
		recordID, err := o.ensureChallengeRecord(ctx, c)
		if err != nil {
			return err
		}
		share, err = o.remote.CreateShare(ctx, recordID)
		return err
	})
	if err != nil {
		metrics.IncSyncAttempt("create_share", "failure")
		return remote.Share{}, err
	}

	if share.Code != "" && share.Code != c.InviteCode {
		c.InviteCode = share.Code
		if err := o.local.SaveChallenge(ctx, c); err != nil {
			o.logger.Error().Err(err).Str("challenge_id", c.ID).Msg("persist invite code")
		}
	}

	metrics.IncSyncAttempt("create_share", "success")
	_ = o.bus.PublishJSON(events.EventDataUpdated, map[string]string{"operation": "create_share"})
	return share, nil
}

// JoinByCode resolves an invite code to its challenge and saves it locally.
func (o *Orchestrator) JoinByCode(ctx context.Context, code string) (*models.Challenge, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.setSyncing(true)
	defer o.setSyncing(false)
	o.publishStatus(models.StatusSyncing())

	var joined *models.Challenge
	err := o.exec.Do(ctx, "join_by_code", func(ctx context.Context) error {
		recs, err := o.remote.Query(ctx, remote.Query{Type: remote.TypeChallenge, InviteCode: code, Limit: 1})
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return retry.NewError(retry.KindNotFound, false,
				fmt.Errorf("no challenge with invite code %q", code))
		}
		c, err := mapper.ChallengeFromRecord(recs[0])
		if err != nil {
			return err
		}
		joined = &c
		return nil
	})
	if err != nil {
		metrics.IncSyncAttempt("join_by_code", "failure")
		return nil, err
	}

	if err := o.local.SaveChallenge(ctx, joined); err != nil {
		return nil, err
	}
	metrics.IncSyncAttempt("join_by_code", "success")
	_ = o.bus.PublishJSON(events.EventDataUpdated, map[string]string{"operation": "join_by_code"})
	return joined, nil
}

// Replay gives a queued operation exactly one attempt. Pacing between
// attempts comes from the background loop's eligibility check, so the
// executor runs with a single attempt here. The caller owns the queue
// entry's lifecycle.
func (o *Orchestrator) Replay(ctx context.Context, op models.PendingOperation) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	fn, err := o.replayFn(ctx, op)
	if err != nil {
		return err
	}
	if fn == nil {
		// Entity gone or no longer dirty; nothing left to sync.
		return nil
	}

	metrics.IncRetry(string(op.Type))
	single := o.cfg
	single.MaxAttempts = 1
	return o.runPush(ctx, string(op.Type), single, fn)
}

func (o *Orchestrator) replayFn(ctx context.Context, op models.PendingOperation) (func(context.Context) error, error) {
	switch op.Type {
	case models.OpSyncParticipant:
		p, err := o.local.GetParticipant(ctx, op.EntityID)
		if err != nil || p == nil || !p.NeedsSync {
			return nil, err
		}
		return func(ctx context.Context) error { return o.pushParticipant(ctx, p) }, nil
	case models.OpSyncDayLog:
		l, err := o.local.GetDayLog(ctx, op.EntityID)
		if err != nil || l == nil || !l.NeedsSync {
			return nil, err
		}
		return func(ctx context.Context) error { return o.pushDayLog(ctx, l) }, nil
	case models.OpSyncActivityData:
		a, err := o.local.GetActivityData(ctx, op.EntityID)
		if err != nil || a == nil || !a.NeedsSync {
			return nil, err
		}
		return func(ctx context.Context) error { return o.pushActivity(ctx, a) }, nil
	default:
		return nil, fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func (o *Orchestrator) runPush(ctx context.Context, name string, cfg retry.Config, fn func(context.Context) error) error {
	o.setSyncing(true)
	defer o.setSyncing(false)
	o.publishStatus(models.StatusSyncing())

	if err := o.exec.DoWith(ctx, name, cfg, fn); err != nil {
		metrics.IncSyncAttempt(name, "failure")
		return err
	}
	metrics.IncSyncAttempt(name, "success")
	_ = o.bus.PublishJSON(events.EventDataUpdated, map[string]string{"operation": name})
	return nil
}

func (o *Orchestrator) enqueue(ctx context.Context, entityID string, opType models.OperationType, cause error) {
	msg := cause.Error()
	op := models.PendingOperation{
		ID:        uuid.NewString(),
		EntityID:  entityID,
		Type:      opType,
		CreatedAt: time.Now(),
		LastError: &msg,
	}
	if err := o.queue.Add(ctx, op); err != nil {
		o.logger.Error().Err(err).
			Str("entity_id", entityID).
			Str("operation", string(opType)).
			Msg("enqueue pending operation")
		return
	}
	o.logger.Info().
		Str("entity_id", entityID).
		Str("operation", string(opType)).
		Str("last_error", msg).
		Msg("sync failed, operation queued for retry")
}
