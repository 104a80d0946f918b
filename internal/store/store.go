// Package store is the local persistent store holding domain entities. The
// sync engine reads entities flagged dirty, writes sync metadata back, and
// never deletes domain data.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func Open(path string, logger *zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	l := logger.With().Str("component", "local-store").Logger()
	l.Info().Str("path", path).Msg("local store opened")
	return &Store{db: db, logger: l}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS challenges (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            start_date DATETIME NOT NULL,
            duration_days INTEGER NOT NULL,
            invite_code TEXT NOT NULL,
            needs_sync BOOLEAN NOT NULL DEFAULT 0,
            last_synced_at DATETIME,
            remote_record_id TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS participants (
            id TEXT PRIMARY KEY,
            challenge_id TEXT NOT NULL,
            display_name TEXT NOT NULL,
            completed_days INTEGER NOT NULL DEFAULT 0,
            current_streak INTEGER NOT NULL DEFAULT 0,
            longest_streak INTEGER NOT NULL DEFAULT 0,
            total_workouts INTEGER NOT NULL DEFAULT 0,
            needs_sync BOOLEAN NOT NULL DEFAULT 0,
            last_synced_at DATETIME,
            remote_record_id TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS day_logs (
            id TEXT PRIMARY KEY,
            participant_id TEXT NOT NULL,
            date DATETIME NOT NULL,
            completed BOOLEAN NOT NULL DEFAULT 0,
            notes TEXT,
            needs_sync BOOLEAN NOT NULL DEFAULT 0,
            last_synced_at DATETIME,
            remote_record_id TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS activity_data (
            id TEXT PRIMARY KEY,
            day_log_id TEXT NOT NULL,
            cardio_minutes INTEGER NOT NULL DEFAULT 0,
            strength_sets INTEGER NOT NULL DEFAULT 0,
            endurance_km REAL NOT NULL DEFAULT 0,
            avg_heart_rate INTEGER NOT NULL DEFAULT 0,
            needs_sync BOOLEAN NOT NULL DEFAULT 0,
            last_synced_at DATETIME,
            remote_record_id TEXT NOT NULL DEFAULT ''
        )`,

		`CREATE INDEX IF NOT EXISTS idx_participants_challenge_id ON participants(challenge_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_needs_sync ON participants(needs_sync)`,
		`CREATE INDEX IF NOT EXISTS idx_day_logs_participant_id ON day_logs(participant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_day_logs_needs_sync ON day_logs(needs_sync)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_data_day_log_id ON activity_data(day_log_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_data_needs_sync ON activity_data(needs_sync)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}
