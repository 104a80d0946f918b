package store

import (
	"context"
	"database/sql"
	"fmt"

	"stridesync/internal/models"
)

// SaveDayLog upserts a day log, sync metadata included.
func (s *Store) SaveDayLog(ctx context.Context, l *models.DayLog) error {
	query := `INSERT INTO day_logs (id, participant_id, date, completed, notes, needs_sync, last_synced_at, remote_record_id)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                participant_id = excluded.participant_id,
                date = excluded.date,
                completed = excluded.completed,
                notes = excluded.notes,
                needs_sync = excluded.needs_sync,
                last_synced_at = excluded.last_synced_at,
                remote_record_id = excluded.remote_record_id`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.ParticipantID, l.Date, l.Completed, l.Notes,
		l.NeedsSync, l.LastSyncedAt, l.RemoteRecordID,
	)
	if err != nil {
		return fmt.Errorf("save day log %s: %w", l.ID, err)
	}
	return nil
}

func (s *Store) GetDayLog(ctx context.Context, id string) (*models.DayLog, error) {
	query := `SELECT id, participant_id, date, completed, notes, needs_sync, last_synced_at, remote_record_id
              FROM day_logs WHERE id = ?`
	var l models.DayLog
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &l.ParticipantID, &l.Date, &l.Completed, &l.Notes,
		&l.NeedsSync, &l.LastSyncedAt, &l.RemoteRecordID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get day log %s: %w", id, err)
	}
	return &l, nil
}

// DayLogsByParticipant returns a participant's logs in date order.
func (s *Store) DayLogsByParticipant(ctx context.Context, participantID string) ([]models.DayLog, error) {
	query := `SELECT id, participant_id, date, completed, notes, needs_sync, last_synced_at, remote_record_id
              FROM day_logs WHERE participant_id = ? ORDER BY date ASC`
	rows, err := s.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("day logs for %s: %w", participantID, err)
	}
	defer rows.Close()

	var out []models.DayLog
	for rows.Next() {
		var l models.DayLog
		err := rows.Scan(
			&l.ID, &l.ParticipantID, &l.Date, &l.Completed, &l.Notes,
			&l.NeedsSync, &l.LastSyncedAt, &l.RemoteRecordID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan day log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SaveActivityData upserts a day log's activity measurements.
func (s *Store) SaveActivityData(ctx context.Context, a *models.ActivityData) error {
	query := `INSERT INTO activity_data (id, day_log_id, cardio_minutes, strength_sets, endurance_km, avg_heart_rate, needs_sync, last_synced_at, remote_record_id)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                day_log_id = excluded.day_log_id,
                cardio_minutes = excluded.cardio_minutes,
                strength_sets = excluded.strength_sets,
                endurance_km = excluded.endurance_km,
                avg_heart_rate = excluded.avg_heart_rate,
                needs_sync = excluded.needs_sync,
                last_synced_at = excluded.last_synced_at,
                remote_record_id = excluded.remote_record_id`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.DayLogID, a.CardioMinutes, a.StrengthSets, a.EnduranceKm, a.AvgHeartRate,
		a.NeedsSync, a.LastSyncedAt, a.RemoteRecordID,
	)
	if err != nil {
		return fmt.Errorf("save activity data %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetActivityData(ctx context.Context, id string) (*models.ActivityData, error) {
	return s.activityWhere(ctx, "id = ?", id)
}

// ActivityByDayLog returns the zero-or-one activity row owned by a day log.
func (s *Store) ActivityByDayLog(ctx context.Context, dayLogID string) (*models.ActivityData, error) {
	return s.activityWhere(ctx, "day_log_id = ?", dayLogID)
}

func (s *Store) activityWhere(ctx context.Context, where string, arg interface{}) (*models.ActivityData, error) {
	query := `SELECT id, day_log_id, cardio_minutes, strength_sets, endurance_km, avg_heart_rate, needs_sync, last_synced_at, remote_record_id
              FROM activity_data WHERE ` + where
	var a models.ActivityData
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.DayLogID, &a.CardioMinutes, &a.StrengthSets, &a.EnduranceKm, &a.AvgHeartRate,
		&a.NeedsSync, &a.LastSyncedAt, &a.RemoteRecordID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity data: %w", err)
	}
	return &a, nil
}
