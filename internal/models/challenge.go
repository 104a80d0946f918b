package models

import "time"

// Challenge is the aggregate root: a shared fitness challenge that
// participants join by invite code.
type Challenge struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	StartDate    time.Time `json:"start_date"`
	DurationDays int       `json:"duration_days"`
	InviteCode   string    `json:"invite_code"`

	SyncMeta
}

// Participant holds a member's aggregate stats within a challenge.
type Participant struct {
	ID            string `json:"id"`
	ChallengeID   string `json:"challenge_id"`
	DisplayName   string `json:"display_name"`
	CompletedDays int    `json:"completed_days"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	TotalWorkouts int    `json:"total_workouts"`

	SyncMeta

	// Loaded children; not persisted as part of the participant row.
	DayLogs []DayLog `json:"day_logs,omitempty"`
}

// DayLog records completion of a single challenge day.
type DayLog struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	Date          time.Time `json:"date"`
	Completed     bool      `json:"completed"`
	Notes         *string   `json:"notes,omitempty"`

	SyncMeta

	Activity *ActivityData `json:"activity,omitempty"`
}

// ActivityData carries workout measurements attached to a day log.
type ActivityData struct {
	ID            string  `json:"id"`
	DayLogID      string  `json:"day_log_id"`
	CardioMinutes int     `json:"cardio_minutes"`
	StrengthSets  int     `json:"strength_sets"`
	EnduranceKm   float64 `json:"endurance_km"`
	AvgHeartRate  int     `json:"avg_heart_rate"`

	SyncMeta
}

// SyncMeta is the sync bookkeeping the engine writes onto every entity.
// The engine never deletes entities; it only flips these fields.
type SyncMeta struct {
	NeedsSync      bool       `json:"needs_sync"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	RemoteRecordID string     `json:"remote_record_id,omitempty"`
}

// MarkSynced clears the dirty flag and stamps the successful sync.
func (m *SyncMeta) MarkSynced(remoteID string, at time.Time) {
	m.NeedsSync = false
	m.LastSyncedAt = &at
	if remoteID != "" {
		m.RemoteRecordID = remoteID
	}
}
