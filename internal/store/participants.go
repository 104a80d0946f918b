package store

import (
	"context"
	"database/sql"
	"fmt"

	"stridesync/internal/models"
)

const participantColumns = `id, challenge_id, display_name, completed_days, current_streak, longest_streak, total_workouts, needs_sync, last_synced_at, remote_record_id`

func scanParticipant(row interface{ Scan(...interface{}) error }) (models.Participant, error) {
	var p models.Participant
	err := row.Scan(
		&p.ID, &p.ChallengeID, &p.DisplayName, &p.CompletedDays,
		&p.CurrentStreak, &p.LongestStreak, &p.TotalWorkouts,
		&p.NeedsSync, &p.LastSyncedAt, &p.RemoteRecordID,
	)
	return p, err
}

// SaveParticipant upserts a participant, sync metadata included.
func (s *Store) SaveParticipant(ctx context.Context, p *models.Participant) error {
	query := `INSERT INTO participants (` + participantColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                challenge_id = excluded.challenge_id,
                display_name = excluded.display_name,
                completed_days = excluded.completed_days,
                current_streak = excluded.current_streak,
                longest_streak = excluded.longest_streak,
                total_workouts = excluded.total_workouts,
                needs_sync = excluded.needs_sync,
                last_synced_at = excluded.last_synced_at,
                remote_record_id = excluded.remote_record_id`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.ChallengeID, p.DisplayName, p.CompletedDays,
		p.CurrentStreak, p.LongestStreak, p.TotalWorkouts,
		p.NeedsSync, p.LastSyncedAt, p.RemoteRecordID,
	)
	if err != nil {
		return fmt.Errorf("save participant %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = ?`
	p, err := scanParticipant(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) queryParticipants(ctx context.Context, query string, args ...interface{}) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ParticipantsNeedingSync returns participants flagged dirty, oldest first.
func (s *Store) ParticipantsNeedingSync(ctx context.Context) ([]models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE needs_sync = 1 ORDER BY id`
	out, err := s.queryParticipants(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("participants needing sync: %w", err)
	}
	return out, nil
}

// Standings lists a challenge's participants best-first for reporting.
func (s *Store) Standings(ctx context.Context, challengeID string) ([]models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants
              WHERE challenge_id = ?
              ORDER BY completed_days DESC, longest_streak DESC, display_name ASC`
	out, err := s.queryParticipants(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("standings for %s: %w", challengeID, err)
	}
	return out, nil
}
