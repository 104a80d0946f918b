package store

import (
	"context"
	"database/sql"
	"fmt"

	"stridesync/internal/models"
)

// SaveChallenge upserts a challenge, sync metadata included.
func (s *Store) SaveChallenge(ctx context.Context, c *models.Challenge) error {
	query := `INSERT INTO challenges (id, name, start_date, duration_days, invite_code, needs_sync, last_synced_at, remote_record_id)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                start_date = excluded.start_date,
                duration_days = excluded.duration_days,
                invite_code = excluded.invite_code,
                needs_sync = excluded.needs_sync,
                last_synced_at = excluded.last_synced_at,
                remote_record_id = excluded.remote_record_id`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.StartDate, c.DurationDays, c.InviteCode,
		c.NeedsSync, c.LastSyncedAt, c.RemoteRecordID,
	)
	if err != nil {
		return fmt.Errorf("save challenge %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	query := `SELECT id, name, start_date, duration_days, invite_code, needs_sync, last_synced_at, remote_record_id
              FROM challenges WHERE id = ?`
	var c models.Challenge
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.StartDate, &c.DurationDays, &c.InviteCode,
		&c.NeedsSync, &c.LastSyncedAt, &c.RemoteRecordID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge %s: %w", id, err)
	}
	return &c, nil
}
