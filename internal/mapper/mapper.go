// Package mapper translates domain entities to and from the remote store's
// wire records. Encoding is total; decoding rejects records that are missing
// required fields so a corrupt remote record skips cleanly during a pull.
package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"stridesync/internal/models"
	"stridesync/internal/remote"
)

type challengeFields struct {
	ClientID     string    `json:"client_id"`
	Name         string    `json:"name"`
	StartDate    time.Time `json:"start_date"`
	DurationDays int       `json:"duration_days"`
	InviteCode   string    `json:"invite_code"`
}

type participantFields struct {
	ClientID      string `json:"client_id"`
	ChallengeID   string `json:"challenge_id"`
	DisplayName   string `json:"display_name"`
	CompletedDays int    `json:"completed_days"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	TotalWorkouts int    `json:"total_workouts"`
}

type dayLogFields struct {
	ClientID      string    `json:"client_id"`
	ParticipantID string    `json:"participant_id"`
	Date          time.Time `json:"date"`
	Completed     bool      `json:"completed"`
	Notes         *string   `json:"notes,omitempty"`
}

type activityFields struct {
	ClientID      string  `json:"client_id"`
	DayLogID      string  `json:"day_log_id"`
	CardioMinutes int     `json:"cardio_minutes"`
	StrengthSets  int     `json:"strength_sets"`
	EnduranceKm   float64 `json:"endurance_km"`
	AvgHeartRate  int     `json:"avg_heart_rate"`
}

func encode(recType remote.RecordType, remoteID, parent string, fields interface{}) (remote.Record, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return remote.Record{}, fmt.Errorf("encode %s fields: %w", recType, err)
	}
	return remote.Record{ID: remoteID, Type: recType, Parent: parent, Fields: raw}, nil
}

func decode(rec remote.Record, want remote.RecordType, fields interface{}) error {
	if rec.Type != want {
		return fmt.Errorf("record type %q, want %q", rec.Type, want)
	}
	if len(rec.Fields) == 0 {
		return fmt.Errorf("%s record %s has no fields", want, rec.ID)
	}
	if err := json.Unmarshal(rec.Fields, fields); err != nil {
		return fmt.Errorf("decode %s record %s: %w", want, rec.ID, err)
	}
	return nil
}

func ChallengeToRecord(c models.Challenge) (remote.Record, error) {
	return encode(remote.TypeChallenge, c.RemoteRecordID, "", challengeFields{
		ClientID:     c.ID,
		Name:         c.Name,
		StartDate:    c.StartDate,
		DurationDays: c.DurationDays,
		InviteCode:   c.InviteCode,
	})
}

func ChallengeFromRecord(rec remote.Record) (models.Challenge, error) {
	var f challengeFields
	if err := decode(rec, remote.TypeChallenge, &f); err != nil {
		return models.Challenge{}, err
	}
	if f.ClientID == "" || f.Name == "" {
		return models.Challenge{}, fmt.Errorf("challenge record %s missing required fields", rec.ID)
	}
	return models.Challenge{
		ID:           f.ClientID,
		Name:         f.Name,
		StartDate:    f.StartDate,
		DurationDays: f.DurationDays,
		InviteCode:   f.InviteCode,
		SyncMeta:     models.SyncMeta{RemoteRecordID: rec.ID},
	}, nil
}

// ParticipantToRecord builds a participant record referencing its parent
// challenge record so remote references resolve in parent-then-child order.
func ParticipantToRecord(p models.Participant, challengeRecordID string) (remote.Record, error) {
	return encode(remote.TypeParticipant, p.RemoteRecordID, challengeRecordID, participantFields{
		ClientID:      p.ID,
		ChallengeID:   p.ChallengeID,
		DisplayName:   p.DisplayName,
		CompletedDays: p.CompletedDays,
		CurrentStreak: p.CurrentStreak,
		LongestStreak: p.LongestStreak,
		TotalWorkouts: p.TotalWorkouts,
	})
}

func ParticipantFromRecord(rec remote.Record) (models.Participant, error) {
	var f participantFields
	if err := decode(rec, remote.TypeParticipant, &f); err != nil {
		return models.Participant{}, err
	}
	if f.ClientID == "" || f.DisplayName == "" {
		return models.Participant{}, fmt.Errorf("participant record %s missing required fields", rec.ID)
	}
	return models.Participant{
		ID:            f.ClientID,
		ChallengeID:   f.ChallengeID,
		DisplayName:   f.DisplayName,
		CompletedDays: f.CompletedDays,
		CurrentStreak: f.CurrentStreak,
		LongestStreak: f.LongestStreak,
		TotalWorkouts: f.TotalWorkouts,
		SyncMeta:      models.SyncMeta{RemoteRecordID: rec.ID},
	}, nil
}

func DayLogToRecord(l models.DayLog, participantRecordID string) (remote.Record, error) {
	return encode(remote.TypeDayLog, l.RemoteRecordID, participantRecordID, dayLogFields{
		ClientID:      l.ID,
		ParticipantID: l.ParticipantID,
		Date:          l.Date,
		Completed:     l.Completed,
		Notes:         l.Notes,
	})
}

func DayLogFromRecord(rec remote.Record) (models.DayLog, error) {
	var f dayLogFields
	if err := decode(rec, remote.TypeDayLog, &f); err != nil {
		return models.DayLog{}, err
	}
	if f.ClientID == "" || f.Date.IsZero() {
		return models.DayLog{}, fmt.Errorf("day log record %s missing required fields", rec.ID)
	}
	return models.DayLog{
		ID:            f.ClientID,
		ParticipantID: f.ParticipantID,
		Date:          f.Date,
		Completed:     f.Completed,
		Notes:         f.Notes,
		SyncMeta:      models.SyncMeta{RemoteRecordID: rec.ID},
	}, nil
}

func ActivityToRecord(a models.ActivityData, dayLogRecordID string) (remote.Record, error) {
	return encode(remote.TypeActivity, a.RemoteRecordID, dayLogRecordID, activityFields{
		ClientID:      a.ID,
		DayLogID:      a.DayLogID,
		CardioMinutes: a.CardioMinutes,
		StrengthSets:  a.StrengthSets,
		EnduranceKm:   a.EnduranceKm,
		AvgHeartRate:  a.AvgHeartRate,
	})
}

func ActivityFromRecord(rec remote.Record) (models.ActivityData, error) {
	var f activityFields
	if err := decode(rec, remote.TypeActivity, &f); err != nil {
		return models.ActivityData{}, err
	}
	if f.ClientID == "" {
		return models.ActivityData{}, fmt.Errorf("activity record %s missing required fields", rec.ID)
	}
	return models.ActivityData{
		ID:            f.ClientID,
		DayLogID:      f.DayLogID,
		CardioMinutes: f.CardioMinutes,
		StrengthSets:  f.StrengthSets,
		EnduranceKm:   f.EnduranceKm,
		AvgHeartRate:  f.AvgHeartRate,
		SyncMeta:      models.SyncMeta{RemoteRecordID: rec.ID},
	}, nil
}
