package models

import "fmt"

// SyncState enumerates the observable phases of a sync run.
type SyncState int

const (
	StateIdle SyncState = iota
	StateSyncing
	StateRetrying
	StateSuccess
	StateError
)

// SyncStatus is the user-facing sync signal. Only the orchestrator
// transitions it; everyone else reads.
type SyncStatus struct {
	State       SyncState `json:"state"`
	Attempt     int       `json:"attempt,omitempty"`
	MaxAttempts int       `json:"max_attempts,omitempty"`
	Message     string    `json:"message,omitempty"`
}

func StatusIdle() SyncStatus    { return SyncStatus{State: StateIdle} }
func StatusSyncing() SyncStatus { return SyncStatus{State: StateSyncing} }
func StatusSuccess() SyncStatus { return SyncStatus{State: StateSuccess} }

func StatusRetrying(attempt, maxAttempts int) SyncStatus {
	return SyncStatus{State: StateRetrying, Attempt: attempt, MaxAttempts: maxAttempts}
}

func StatusError(message string) SyncStatus {
	return SyncStatus{State: StateError, Message: message}
}

func (s SyncStatus) String() string {
	switch s.State {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateRetrying:
		return fmt.Sprintf("retrying %d/%d", s.Attempt, s.MaxAttempts)
	case StateSuccess:
		return "success"
	case StateError:
		return fmt.Sprintf("error: %s", s.Message)
	default:
		return "unknown"
	}
}
