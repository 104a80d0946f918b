package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// RecordType tags the wire representation of a domain entity.
type RecordType string

const (
	TypeChallenge   RecordType = "challenge"
	TypeParticipant RecordType = "participant"
	TypeDayLog      RecordType = "day_log"
	TypeActivity    RecordType = "activity"
)

// Record is the remote store's wire envelope. Fields carry the typed
// per-record payload produced by the mapper.
type Record struct {
	ID     string          `json:"id,omitempty"`
	Type   RecordType      `json:"type"`
	Parent string          `json:"parent,omitempty"`
	Fields json.RawMessage `json:"fields"`
}

// Query scopes a predicate-based fetch. Zero fields are unset filters.
type Query struct {
	Type       RecordType `json:"type"`
	Parent     string     `json:"parent,omitempty"`
	InviteCode string     `json:"invite_code,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// Share is the handle returned when a challenge is made joinable.
type Share struct {
	RecordID string `json:"record_id"`
	Code     string `json:"code"`
	URL      string `json:"url,omitempty"`
}

// Store is the remote record store collaborator. Every call may fail and
// may take arbitrary wall-clock time; callers go through the retry executor.
type Store interface {
	Save(ctx context.Context, rec Record) (string, error)
	Query(ctx context.Context, q Query) ([]Record, error)
	AccountStatus(ctx context.Context) error
	CreateShare(ctx context.Context, rootRecordID string) (Share, error)
}

// StatusError is a non-2xx response from the record API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote store returned status %d", e.Code)
	}
	return fmt.Sprintf("remote store returned status %d: %s", e.Code, e.Body)
}

// ErrAccountUnavailable means the backend account is not signed in or is
// restricted; syncing cannot proceed until the operator fixes it.
var ErrAccountUnavailable = errors.New("remote account unavailable")
