package models

import "time"

// OperationType identifies what kind of entity a pending operation syncs.
type OperationType string

const (
	OpSyncParticipant  OperationType = "sync_participant"
	OpSyncDayLog       OperationType = "sync_day_log"
	OpSyncActivityData OperationType = "sync_activity_data"
)

// PendingOperation is a durably queued sync action awaiting a future retry.
type PendingOperation struct {
	ID            string        `json:"id"`
	EntityID      string        `json:"entity_id"`
	Type          OperationType `json:"operation_type"`
	CreatedAt     time.Time     `json:"created_at"`
	AttemptCount  int           `json:"attempt_count"`
	LastAttemptAt *time.Time    `json:"last_attempt_at,omitempty"`
	LastError     *string       `json:"last_error,omitempty"`
}

// Matches reports queue identity: one entry per (entity, operation) pair.
func (op PendingOperation) Matches(other PendingOperation) bool {
	return op.EntityID == other.EntityID && op.Type == other.Type
}
