package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type failingBlobStore struct {
	loadErr error
	saveErr error
	calls   int
}

func (f *failingBlobStore) LoadBlob(context.Context, string) ([]byte, error) {
	f.calls++
	return nil, f.loadErr
}

func (f *failingBlobStore) SaveBlob(context.Context, string, []byte) error {
	f.calls++
	return f.saveErr
}

func TestFailoverUsesPrimaryWhenHealthy(t *testing.T) {
	primary := NewMemoryBlobStore()
	fallback := NewMemoryBlobStore()
	logger := zerolog.Nop()
	store := NewFailoverBlobStore(primary, fallback, &logger)

	ctx := context.Background()
	if err := store.SaveBlob(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := primary.LoadBlob(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Fatalf("expected write to land in primary, got %q err=%v", data, err)
	}
	if data, _ := fallback.LoadBlob(ctx, "k"); data != nil {
		t.Fatalf("fallback should be untouched, got %q", data)
	}
}

func TestFailoverFallsBackOnPrimaryError(t *testing.T) {
	primary := &failingBlobStore{loadErr: errors.New("down"), saveErr: errors.New("down")}
	fallback := NewMemoryBlobStore()
	logger := zerolog.Nop()
	store := NewFailoverBlobStore(primary, fallback, &logger)

	ctx := context.Background()
	if err := store.SaveBlob(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("save should fall back: %v", err)
	}
	data, err := store.LoadBlob(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Fatalf("expected fallback read, got %q err=%v", data, err)
	}
}

func TestFailoverStopsHittingDownedPrimary(t *testing.T) {
	primary := &failingBlobStore{saveErr: errors.New("down")}
	fallback := NewMemoryBlobStore()
	logger := zerolog.Nop()
	store := NewFailoverBlobStore(primary, fallback, &logger)

	ctx := context.Background()
	_ = store.SaveBlob(ctx, "k", []byte("v1"))
	callsAfterFirst := primary.calls

	// Primary was marked down; subsequent writes skip it until the
	// recovery interval elapses.
	_ = store.SaveBlob(ctx, "k", []byte("v2"))
	_ = store.SaveBlob(ctx, "k", []byte("v3"))
	if primary.calls != callsAfterFirst {
		t.Fatalf("expected primary skipped while down, calls %d -> %d", callsAfterFirst, primary.calls)
	}
}
