package cache

import (
	"context"
	"time"
)

// ReadThrough serves values from a Manager and falls back to fn on a miss,
// storing successful results.
type ReadThrough[K ~string, V any, I any] struct {
	cache Manager[K, V]
	fn    func(ctx context.Context, input I) (V, error)
	skip  bool
}

// NewReadThrough wraps fn with cache. With skip set every call goes to fn.
func NewReadThrough[K ~string, V any, I any](
	cache Manager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	skip bool,
) *ReadThrough[K, V, I] {
	return &ReadThrough[K, V, I]{cache: cache, fn: fn, skip: skip}
}

// Get returns the cached value for key, computing it from input on a miss.
// Errors are never cached.
func (r *ReadThrough[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, bool, error) {
	if r.skip || r.cache == nil {
		v, err := r.fn(ctx, input)
		return v, false, err
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, true, nil
	}

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, false, err
	}

	r.cache.Set(ctx, key, value, ttl)
	return value, false, nil
}
