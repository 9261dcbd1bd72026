package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/flowc/pkg/observability"
)

// Instrumented reports hits, misses and writes of an inner cache to the
// registered observability.CacheHooks.
type Instrumented struct {
	Cache
}

// WithHooks wraps c. Wrapping a NullCache is allowed and reports only misses.
func WithHooks(c Cache) Cache {
	return &Instrumented{Cache: c}
}

func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := i.Cache.Get(ctx, key)
	if err != nil {
		return data, ok, err
	}
	if ok {
		observability.Cache().OnCacheHit(ctx, KeyType(key))
	} else {
		observability.Cache().OnCacheMiss(ctx, KeyType(key))
	}
	return data, ok, nil
}

func (i *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := i.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, KeyType(key), len(data))
	return nil
}

// KeyType returns the artifact kind of a key built by a Keyer ("flow",
// "graph" or "render"), skipping any scope prefix. Other keys are "other".
func KeyType(key string) string {
	for _, seg := range strings.Split(key, ":") {
		switch seg {
		case "flow", "graph", "render":
			return seg
		}
	}
	return "other"
}
