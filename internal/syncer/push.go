package syncer

import (
	"context"
	"fmt"
	"time"

	"stridesync/internal/mapper"
	"stridesync/internal/models"
	"stridesync/internal/remote"
)

// pushParticipant uploads the participant record, then its day logs, then
// their activity data. Remote IDs learned mid-flight are kept on the
// in-memory entities so a retried attempt upserts instead of duplicating.
func (o *Orchestrator) pushParticipant(ctx context.Context, p *models.Participant) error {
	now := time.Now()

	parentID := ""
	if p.ChallengeID != "" {
		c, err := o.local.GetChallenge(ctx, p.ChallengeID)
		if err != nil {
			return err
		}
		if c != nil {
			parentID, err = o.ensureChallengeRecord(ctx, c)
			if err != nil {
				return err
			}
		}
	}

	rec, err := mapper.ParticipantToRecord(*p, parentID)
	if err != nil {
		return err
	}
	remoteID, err := o.remote.Save(ctx, rec)
	if err != nil {
		return err
	}
	p.MarkSynced(remoteID, now)

	logs, err := o.local.DayLogsByParticipant(ctx, p.ID)
	if err != nil {
		return err
	}
	for i := range logs {
		l := &logs[i]
		if !l.NeedsSync && l.RemoteRecordID != "" {
			continue
		}
		if err := o.uploadDayLog(ctx, l, p.RemoteRecordID, now); err != nil {
			return err
		}
	}

	return o.local.SaveParticipant(ctx, p)
}

// pushDayLog uploads one day log and its activity data, resolving the
// parent participant record first.
func (o *Orchestrator) pushDayLog(ctx context.Context, l *models.DayLog) error {
	now := time.Now()

	parentID, err := o.ensureParticipantRecord(ctx, l.ParticipantID)
	if err != nil {
		return err
	}
	return o.uploadDayLog(ctx, l, parentID, now)
}

// pushActivity uploads activity measurements under their day log record.
func (o *Orchestrator) pushActivity(ctx context.Context, a *models.ActivityData) error {
	now := time.Now()

	parentID, err := o.ensureDayLogRecord(ctx, a.DayLogID)
	if err != nil {
		return err
	}

	rec, err := mapper.ActivityToRecord(*a, parentID)
	if err != nil {
		return err
	}
	remoteID, err := o.remote.Save(ctx, rec)
	if err != nil {
		return err
	}
	a.MarkSynced(remoteID, now)
	return o.local.SaveActivityData(ctx, a)
}

func (o *Orchestrator) uploadDayLog(ctx context.Context, l *models.DayLog, parentID string, now time.Time) error {
	rec, err := mapper.DayLogToRecord(*l, parentID)
	if err != nil {
		return err
	}
	remoteID, err := o.remote.Save(ctx, rec)
	if err != nil {
		return err
	}
	l.MarkSynced(remoteID, now)

	a, err := o.local.ActivityByDayLog(ctx, l.ID)
	if err != nil {
		return err
	}
	if a != nil && (a.NeedsSync || a.RemoteRecordID == "") {
		arec, err := mapper.ActivityToRecord(*a, l.RemoteRecordID)
		if err != nil {
			return err
		}
		activityID, err := o.remote.Save(ctx, arec)
		if err != nil {
			return err
		}
		a.MarkSynced(activityID, now)
		if err := o.local.SaveActivityData(ctx, a); err != nil {
			return err
		}
	}

	return o.local.SaveDayLog(ctx, l)
}

// ensureChallengeRecord returns the challenge's remote record ID, uploading
// the root record if it has never been pushed.
func (o *Orchestrator) ensureChallengeRecord(ctx context.Context, c *models.Challenge) (string, error) {
	if c.RemoteRecordID != "" {
		return c.RemoteRecordID, nil
	}
	rec, err := mapper.ChallengeToRecord(*c)
	if err != nil {
		return "", err
	}
	remoteID, err := o.remote.Save(ctx, rec)
	if err != nil {
		return "", err
	}
	c.MarkSynced(remoteID, time.Now())
	if err := o.local.SaveChallenge(ctx, c); err != nil {
		return "", err
	}
	return remoteID, nil
}

func (o *Orchestrator) ensureParticipantRecord(ctx context.Context, participantID string) (string, error) {
	if participantID == "" {
		return "", nil
	}
	p, err := o.local.GetParticipant(ctx, participantID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", nil
	}
	if p.RemoteRecordID != "" {
		return p.RemoteRecordID, nil
	}

	parentID := ""
	if p.ChallengeID != "" {
		c, err := o.local.GetChallenge(ctx, p.ChallengeID)
		if err != nil {
			return "", err
		}
		if c != nil {
			parentID, err = o.ensureChallengeRecord(ctx, c)
			if err != nil {
				return "", err
			}
		}
	}

	rec, err := mapper.ParticipantToRecord(*p, parentID)
	if err != nil {
		return "", err
	}
	remoteID, err := o.remote.Save(ctx, rec)
	if err != nil {
		return "", err
	}
	p.MarkSynced(remoteID, time.Now())
	if err := o.local.SaveParticipant(ctx, p); err != nil {
		return "", err
	}
	return remoteID, nil
}

func (o *Orchestrator) ensureDayLogRecord(ctx context.Context, dayLogID string) (string, error) {
	if dayLogID == "" {
		return "", nil
	}
	l, err := o.local.GetDayLog(ctx, dayLogID)
	if err != nil {
		return "", err
	}
	if l == nil {
		return "", nil
	}
	if l.RemoteRecordID != "" {
		return l.RemoteRecordID, nil
	}

	parentID, err := o.ensureParticipantRecord(ctx, l.ParticipantID)
	if err != nil {
		return "", err
	}
	rec, err := mapper.DayLogToRecord(*l, parentID)
	if err != nil {
		return "", err
	}
	remoteID, err := o.remote.Save(ctx, rec)
	if err != nil {
		return "", err
	}
	l.MarkSynced(remoteID, time.Now())
	if err := o.local.SaveDayLog(ctx, l); err != nil {
		return "", err
	}
	return remoteID, nil
}

// pullParticipants fetches participant records scoped to the challenge
// record and resolves their children. Records that fail to map are skipped;
// transport failures abort the attempt.
func (o *Orchestrator) pullParticipants(ctx context.Context, challengeRecordID string) ([]models.Participant, error) {
	recs, err := o.remote.Query(ctx, remote.Query{Type: remote.TypeParticipant, Parent: challengeRecordID})
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}

	var out []models.Participant
	for _, rec := range recs {
		p, err := mapper.ParticipantFromRecord(rec)
		if err != nil {
			o.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("skipping unmappable participant record")
			continue
		}

		logs, err := o.pullDayLogs(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		p.DayLogs = logs
		out = append(out, p)
	}
	return out, nil
}

func (o *Orchestrator) pullDayLogs(ctx context.Context, participantRecordID string) ([]models.DayLog, error) {
	recs, err := o.remote.Query(ctx, remote.Query{Type: remote.TypeDayLog, Parent: participantRecordID})
	if err != nil {
		return nil, fmt.Errorf("query day logs: %w", err)
	}

	var out []models.DayLog
	for _, rec := range recs {
		l, err := mapper.DayLogFromRecord(rec)
		if err != nil {
			o.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("skipping unmappable day log record")
			continue
		}

		activityRecs, err := o.remote.Query(ctx, remote.Query{Type: remote.TypeActivity, Parent: rec.ID, Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("query activity data: %w", err)
		}
		if len(activityRecs) > 0 {
			a, err := mapper.ActivityFromRecord(activityRecs[0])
			if err != nil {
				o.logger.Warn().Err(err).Str("record_id", activityRecs[0].ID).Msg("skipping unmappable activity record")
			} else {
				l.Activity = &a
			}
		}
		out = append(out, l)
	}
	return out, nil
}

// commitPulled writes a pulled participant and its children to the local
// store. Last writer wins; the engine does not attempt conflict resolution.
func (o *Orchestrator) commitPulled(ctx context.Context, p *models.Participant) error {
	now := time.Now()
	p.LastSyncedAt = &now
	if err := o.local.SaveParticipant(ctx, p); err != nil {
		return err
	}
	for i := range p.DayLogs {
		l := &p.DayLogs[i]
		l.LastSyncedAt = &now
		if err := o.local.SaveDayLog(ctx, l); err != nil {
			return err
		}
		if l.Activity != nil {
			l.Activity.LastSyncedAt = &now
			if err := o.local.SaveActivityData(ctx, l.Activity); err != nil {
				return err
			}
		}
	}
	return nil
}
