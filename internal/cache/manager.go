// Package cache keeps highlighting results in memory, keyed by a digest of
// the language and the input text.
package cache

import (
	"context"
	"time"
)

// Manager is a typed key/value cache with per-entry expiry.
type Manager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K)
	Flush(ctx context.Context)
	Len() int
}
