// Package repository provides the durable key-value stores backing the
// pending-operation queue: redis as primary, an in-memory map as fallback,
// and a failover wrapper that degrades gracefully when redis is down.
package repository

import "context"

// BlobStore persists opaque serialized blobs under well-known keys.
// LoadBlob returns (nil, nil) when the key has never been written.
type BlobStore interface {
	LoadBlob(ctx context.Context, key string) ([]byte, error)
	SaveBlob(ctx context.Context, key string, data []byte) error
}
