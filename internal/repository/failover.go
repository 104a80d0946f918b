package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverBlobStore writes to the primary store and falls back to the
// secondary when the primary errors. After recoveryInterval it probes the
// primary again.
type FailoverBlobStore struct {
	primary  BlobStore
	fallback BlobStore
	logger   zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverBlobStore(primary, fallback BlobStore, logger *zerolog.Logger) *FailoverBlobStore {
	return &FailoverBlobStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "blob-failover").Logger(),
	}
}

func (f *FailoverBlobStore) LoadBlob(ctx context.Context, key string) ([]byte, error) {
	if f.primaryUsable() {
		data, err := f.primary.LoadBlob(ctx, key)
		if err == nil {
			return data, nil
		}
		f.markDown(err)
	}
	return f.fallback.LoadBlob(ctx, key)
}

func (f *FailoverBlobStore) SaveBlob(ctx context.Context, key string, data []byte) error {
	if f.primaryUsable() {
		err := f.primary.SaveBlob(ctx, key, data)
		if err == nil {
			return nil
		}
		f.markDown(err)
	}
	return f.fallback.SaveBlob(ctx, key, data)
}

func (f *FailoverBlobStore) primaryUsable() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) > recoveryInterval {
		f.lastCheck = time.Now()
		f.isDown.Store(false)
		return true
	}
	return false
}

func (f *FailoverBlobStore) markDown(err error) {
	f.logger.Error().Err(err).Msg("primary blob store failed, falling back")
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
	f.isDown.Store(true)
}
