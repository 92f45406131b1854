package service

import (
	"context"
	"time"
)

// Cached wraps a loader with read-through caching. The key is derived from
// the argument by keyFn, so the caching policy is visible at the call site
// instead of buried in the loader. Concurrent misses for the same key share
// one load.
//
// Usage:
//
//	lookupEmployee := service.Cached(cache, 5*time.Minute,
//		func(id string) string { return "employee:" + id },
//		repo.GetEmployee)
func Cached[A any, V any](cache Cache, ttl time.Duration, keyFn func(A) string, load func(ctx context.Context, arg A) (V, error)) func(ctx context.Context, arg A) (V, error) {
	return func(ctx context.Context, arg A) (V, error) {
		var out V
		err := cache.GetOrSet(ctx, keyFn(arg), ttl, func(ctx context.Context) (interface{}, error) {
			return load(ctx, arg)
		}, &out)
		return out, err
	}
}
