// Package fetch provides the read-through helper that sits between the cache
// and an upstream data source: cache hit wins, misses go upstream and are
// written back, and upstream failures fall back to stale cache entries when
// one exists.
package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"readcache/internal/cache"
	"readcache/internal/common/errors"
	"readcache/internal/common/logging"
)

// Func fetches a resource from the upstream source.
type Func[T any] func(ctx context.Context, resource string) (T, error)

// Fetcher memoizes an upstream fetch through the two-tier cache. Concurrent
// requests for the same resource are collapsed into a single upstream call.
type Fetcher[T any] struct {
	cache  *cache.Cache[T]
	fetch  Func[T]
	ttl    time.Duration
	group  singleflight.Group
	logger logging.Logger
}

// New creates a fetcher. ttl is both the freshness window applied on reads
// and the remote expiry used on write-back.
func New[T any](c *cache.Cache[T], fn Func[T], ttl time.Duration, logger logging.Logger) *Fetcher[T] {
	return &Fetcher[T]{
		cache:  c,
		fetch:  fn,
		ttl:    ttl,
		logger: logger.WithFields(logging.Field{Key: "component", Value: "fetcher"}),
	}
}

// Get returns the resource's value, from cache when fresh, otherwise from
// upstream. An upstream failure is answered with the last cached value
// regardless of age when one survives; only when no stale entry exists does
// the error reach the caller.
func (f *Fetcher[T]) Get(ctx context.Context, resource string) (T, error) {
	if value, ok := f.cache.Get(ctx, resource, f.ttl); ok {
		return value, nil
	}

	result, err, _ := f.group.Do(resource, func() (interface{}, error) {
		// A concurrent flight may have populated the cache while this
		// call waited its turn.
		if value, ok := f.cache.Get(ctx, resource, f.ttl); ok {
			return value, nil
		}

		value, err := f.fetch(ctx, resource)
		if err != nil {
			if stale, ok := f.cache.GetIgnoringTTL(ctx, resource); ok {
				f.logger.Warn("upstream fetch failed, serving stale entry",
					logging.Field{Key: "resource", Value: resource},
					logging.Field{Key: "error", Value: err.Error()})
				return stale, nil
			}
			return nil, errors.UpstreamError(resource, err)
		}

		f.cache.Set(ctx, resource, value, f.ttl)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
