// Package cache provides the byte-level caches flowc uses for rendered
// flow responses and other derived artifacts.
//
// Every backend implements [Cache]. Callers build keys with a [Keyer] so
// that the same logical item maps to the same key regardless of backend:
//
//	c, _ := cache.NewFileCache(dir)
//	key := cache.NewDefaultKeyer().FlowKey("checkout", bundleHash)
//	if data, ok, _ := c.Get(ctx, key); ok {
//	    return data
//	}
//
// Backends:
//   - [FileCache]: JSON entry files under a directory, used by the CLI
//   - [MemoryCache]: bounded LRU in process memory, used by "flowc serve"
//   - [RedisCache]: shared cache for several server replicas
//   - [NullCache]: disables caching
//
// Caches are passed explicitly to the components that use them. There is no
// package-level cache instance.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// A ttl of zero means the entry never expires. Get reports a miss with
// (nil, false, nil); an error is reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default lifetimes per artifact kind. Keys embed a content hash, so the
// TTL only bounds how long stale entries occupy space.
const (
	TTLFlow   = 10 * time.Minute
	TTLGraph  = 24 * time.Hour
	TTLRender = 24 * time.Hour
)
