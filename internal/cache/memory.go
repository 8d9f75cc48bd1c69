package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/shine/internal/log"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// Memory is a Manager backed by go-cache. It is safe for concurrent use.
type Memory[K ~string, V any] struct {
	name  string
	cache *gocache.Cache
}

// NewMemory returns an in-memory cache. name labels log lines.
func NewMemory[K ~string, V any](name string, defaultExpiration, cleanupInterval time.Duration) *Memory[K, V] {
	return &Memory[K, V]{
		name:  name,
		cache: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *Memory[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V

	value, found := c.cache.Get(string(key))
	if !found {
		return zero, false
	}

	v, ok := value.(V)
	if !ok {
		log.Error(log.CatCache, "cached value has wrong type", "cache", c.name, "key", string(key))
		return zero, false
	}

	log.Debug(log.CatCache, "cache hit", "cache", c.name, "key", string(key))
	return v, true
}

// Set stores value. A zero ttl uses the cache's default expiration.
func (c *Memory[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(string(key), value, ttl)
}

func (c *Memory[K, V]) Delete(_ context.Context, keys ...K) {
	for _, key := range keys {
		c.cache.Delete(string(key))
	}
}

func (c *Memory[K, V]) Flush(_ context.Context) {
	c.cache.Flush()
	log.Debug(log.CatCache, "cache flushed", "cache", c.name)
}

func (c *Memory[K, V]) Len() int {
	return c.cache.ItemCount()
}
