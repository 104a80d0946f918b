package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stridesync/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zerolog.Nop()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), &logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestChallengeSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &models.Challenge{
		ID:           "ch-1",
		Name:         "Spring Shape-Up",
		StartDate:    time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DurationDays: 21,
		InviteCode:   "SPRING21",
		SyncMeta:     models.SyncMeta{NeedsSync: true},
	}
	if err := s.SaveChallenge(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetChallenge(ctx, "ch-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected challenge, got nil")
	}
	if got.Name != c.Name || got.DurationDays != 21 || !got.NeedsSync {
		t.Fatalf("challenge mismatch: %+v", got)
	}

	if missing, err := s.GetChallenge(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("expected nil for missing challenge, got %+v err=%v", missing, err)
	}
}

func TestChallengeUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &models.Challenge{ID: "ch-2", Name: "v1", StartDate: time.Now(), DurationDays: 7}
	if err := s.SaveChallenge(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}

	now := time.Now()
	c.Name = "v2"
	c.MarkSynced("remote-ch-2", now)
	if err := s.SaveChallenge(ctx, c); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, _ := s.GetChallenge(ctx, "ch-2")
	if got.Name != "v2" || got.NeedsSync || got.RemoteRecordID != "remote-ch-2" {
		t.Fatalf("upsert mismatch: %+v", got)
	}
	if got.LastSyncedAt == nil {
		t.Fatalf("expected last_synced_at persisted")
	}
}

func TestParticipantsNeedingSync(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dirty := &models.Participant{ID: "p-1", ChallengeID: "ch-1", DisplayName: "Ada", SyncMeta: models.SyncMeta{NeedsSync: true}}
	clean := &models.Participant{ID: "p-2", ChallengeID: "ch-1", DisplayName: "Grace"}
	for _, p := range []*models.Participant{dirty, clean} {
		if err := s.SaveParticipant(ctx, p); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.ParticipantsNeedingSync(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p-1" {
		t.Fatalf("expected only dirty participant, got %+v", got)
	}
}

func TestDayLogWithNotesAndActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	notes := "tempo run"
	l := &models.DayLog{
		ID:            "dl-1",
		ParticipantID: "p-1",
		Date:          time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
		Completed:     true,
		Notes:         &notes,
		SyncMeta:      models.SyncMeta{NeedsSync: true},
	}
	if err := s.SaveDayLog(ctx, l); err != nil {
		t.Fatalf("save day log: %v", err)
	}

	a := &models.ActivityData{
		ID:            "a-1",
		DayLogID:      "dl-1",
		CardioMinutes: 40,
		EnduranceKm:   8.5,
		SyncMeta:      models.SyncMeta{NeedsSync: true},
	}
	if err := s.SaveActivityData(ctx, a); err != nil {
		t.Fatalf("save activity: %v", err)
	}

	logs, err := s.DayLogsByParticipant(ctx, "p-1")
	if err != nil {
		t.Fatalf("day logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Notes == nil || *logs[0].Notes != notes {
		t.Fatalf("day log mismatch: %+v", logs)
	}

	gotActivity, err := s.ActivityByDayLog(ctx, "dl-1")
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if gotActivity == nil || gotActivity.CardioMinutes != 40 || gotActivity.EnduranceKm != 8.5 {
		t.Fatalf("activity mismatch: %+v", gotActivity)
	}

	if none, err := s.ActivityByDayLog(ctx, "dl-none"); err != nil || none != nil {
		t.Fatalf("expected nil activity for missing day log, got %+v err=%v", none, err)
	}
}

func TestStandingsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	participants := []*models.Participant{
		{ID: "p-1", ChallengeID: "ch-1", DisplayName: "Ada", CompletedDays: 10, LongestStreak: 5},
		{ID: "p-2", ChallengeID: "ch-1", DisplayName: "Grace", CompletedDays: 15, LongestStreak: 8},
		{ID: "p-3", ChallengeID: "ch-1", DisplayName: "Edsger", CompletedDays: 10, LongestStreak: 7},
		{ID: "p-4", ChallengeID: "ch-other", DisplayName: "Alan", CompletedDays: 30},
	}
	for _, p := range participants {
		if err := s.SaveParticipant(ctx, p); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.Standings(ctx, "ch-1")
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(got))
	}
	wantOrder := []string{"p-2", "p-3", "p-1"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("standings[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
}
