package fetch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readcache/internal/cache"
	"readcache/internal/common/errors"
	"readcache/internal/common/logging"
)

func newTestCache(t *testing.T) *cache.Cache[string] {
	t.Helper()
	c := cache.New[string](cache.RemoteConfig{}, logging.NewDefaultLogger())
	c.Connect(context.Background())
	return c
}

func TestFetcher_MissGoesUpstream(t *testing.T) {
	c := newTestCache(t)

	var calls atomic.Int32
	fetcher := New(c, func(ctx context.Context, resource string) (string, error) {
		calls.Add(1)
		return "upstream-" + resource, nil
	}, time.Hour, logging.NewDefaultLogger())

	got, err := fetcher.Get(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Equal(t, "upstream-user:1", got)
	assert.Equal(t, int32(1), calls.Load())

	t.Run("result is written back", func(t *testing.T) {
		cached, ok := c.Get(context.Background(), "user:1", time.Hour)
		assert.True(t, ok)
		assert.Equal(t, "upstream-user:1", cached)
	})

	t.Run("second read is a cache hit", func(t *testing.T) {
		got, err := fetcher.Get(context.Background(), "user:1")
		require.NoError(t, err)
		assert.Equal(t, "upstream-user:1", got)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestFetcher_ServesStaleOnUpstreamFailure(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	// An expired entry from an earlier successful fetch.
	c.Local().Set("user:1", cache.Entry[string]{
		Value:    "stale-value",
		StoredAt: time.Now().Add(-24 * time.Hour),
	})

	fetcher := New(c, func(ctx context.Context, resource string) (string, error) {
		return "", fmt.Errorf("upstream timeout")
	}, time.Minute, logging.NewDefaultLogger())

	got, err := fetcher.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, "stale-value", got)
}

func TestFetcher_PropagatesErrorWithoutFallback(t *testing.T) {
	c := newTestCache(t)

	fetcher := New(c, func(ctx context.Context, resource string) (string, error) {
		return "", fmt.Errorf("upstream down")
	}, time.Minute, logging.NewDefaultLogger())

	_, err := fetcher.Get(context.Background(), "user:1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))
	assert.Contains(t, err.Error(), "user:1")
}

func TestFetcher_CollapsesConcurrentFetches(t *testing.T) {
	c := newTestCache(t)

	var calls atomic.Int32
	release := make(chan struct{})
	fetcher := New(c, func(ctx context.Context, resource string) (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}, time.Hour, logging.NewDefaultLogger())

	var wg sync.WaitGroup
	results := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := fetcher.Get(context.Background(), "hot-key")
			assert.NoError(t, err)
			results <- got
		}()
	}

	// Give the flights time to pile up behind the first call.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for got := range results {
		assert.Equal(t, "value", got)
	}
	assert.Equal(t, int32(1), calls.Load(), "concurrent misses should share one upstream call")
}

func TestFetcher_DistinctResourcesFetchIndependently(t *testing.T) {
	c := newTestCache(t)

	var calls atomic.Int32
	fetcher := New(c, func(ctx context.Context, resource string) (string, error) {
		calls.Add(1)
		return resource, nil
	}, time.Hour, logging.NewDefaultLogger())

	for i := 0; i < 5; i++ {
		_, err := fetcher.Get(context.Background(), fmt.Sprintf("res-%d", i))
		require.NoError(t, err)
	}

	assert.Equal(t, int32(5), calls.Load())
}
