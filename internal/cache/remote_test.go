package cache

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readcache/internal/common/logging"
)

func testRemoteConfig(t *testing.T, addr string) RemoteConfig {
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	return RemoteConfig{
		Host:           host,
		Port:           port,
		KeyPrefix:      "cache:",
		ConnectTimeout: 2 * time.Second,
		OpTimeout:      time.Second,
	}
}

func setupRemote(t *testing.T) (*RemoteStore[string], *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	store := NewRemoteStore[string](testRemoteConfig(t, mr.Addr()), logging.NewDefaultLogger())
	store.Connect(context.Background())
	require.Equal(t, StateConnected, store.State())

	return store, mr
}

func TestRemoteStore_ConnectUnconfigured(t *testing.T) {
	store := NewRemoteStore[string](RemoteConfig{}, logging.NewDefaultLogger())

	store.Connect(context.Background())

	assert.Equal(t, StateDegraded, store.State())
	assert.False(t, store.Attempted())

	// Operations against an unconfigured store are silent no-ops.
	ctx := context.Background()
	store.Set(ctx, "a", NewEntry("v"), time.Minute)
	_, ok := store.Get(ctx, "a")
	assert.False(t, ok)
	store.Delete(ctx, "a")
	store.Clear(ctx)
	assert.NoError(t, store.Close())
}

func TestRemoteStore_ConnectSuccess(t *testing.T) {
	store, mr := setupRemote(t)
	defer mr.Close()
	defer store.Close()

	assert.True(t, store.Connected())
	assert.True(t, store.Attempted())
}

func TestRemoteStore_ConnectOnce(t *testing.T) {
	store, mr := setupRemote(t)
	defer mr.Close()
	defer store.Close()

	// Further calls are idempotent no-ops.
	store.Connect(context.Background())
	store.Connect(context.Background())

	assert.Equal(t, StateConnected, store.State())
	assert.True(t, store.Attempted())
}

func TestRemoteStore_ConnectRefused(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	store := NewRemoteStore[string](testRemoteConfig(t, addr), logging.NewDefaultLogger())
	store.Connect(context.Background())

	assert.Equal(t, StateDegraded, store.State())
	assert.True(t, store.Attempted())

	// A failed attempt is never retried.
	store.Connect(context.Background())
	assert.Equal(t, StateDegraded, store.State())
}

func TestRemoteStore_ConnectInvalidURL(t *testing.T) {
	store := NewRemoteStore[string](RemoteConfig{URL: "not-a-redis-url"}, logging.NewDefaultLogger())

	store.Connect(context.Background())

	assert.Equal(t, StateDegraded, store.State())
	assert.False(t, store.Attempted())
}

func TestRemoteStore_ConnectURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRemoteStore[string](RemoteConfig{
		URL:            "redis://" + mr.Addr(),
		KeyPrefix:      "cache:",
		ConnectTimeout: 2 * time.Second,
		OpTimeout:      time.Second,
	}, logging.NewDefaultLogger())
	defer store.Close()

	store.Connect(context.Background())

	assert.Equal(t, StateConnected, store.State())
}

func TestRemoteStore_SetGet(t *testing.T) {
	store, mr := setupRemote(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		entry := NewEntry("hello")
		store.Set(ctx, "greeting", entry, time.Minute)

		got, ok := store.Get(ctx, "greeting")
		assert.True(t, ok)
		assert.Equal(t, "hello", got.Value)
		assert.WithinDuration(t, entry.StoredAt, got.StoredAt, time.Millisecond)
	})

	t.Run("keys are namespaced", func(t *testing.T) {
		assert.True(t, mr.Exists("cache:greeting"))
	})

	t.Run("missing key is a plain miss", func(t *testing.T) {
		_, ok := store.Get(ctx, "missing")
		assert.False(t, ok)
		assert.Equal(t, StateConnected, store.State())
	})

	t.Run("undecodable entry is a miss", func(t *testing.T) {
		require.NoError(t, mr.Set("cache:garbage", "not json"))

		_, ok := store.Get(ctx, "garbage")
		assert.False(t, ok)
		assert.Equal(t, StateConnected, store.State())
	})
}

func TestRemoteStore_NativeExpiry(t *testing.T) {
	store, mr := setupRemote(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	t.Run("positive ttl expires", func(t *testing.T) {
		store.Set(ctx, "short", NewEntry("v"), time.Second)

		_, ok := store.Get(ctx, "short")
		assert.True(t, ok)

		mr.FastForward(2 * time.Second)

		_, ok = store.Get(ctx, "short")
		assert.False(t, ok)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		store.Set(ctx, "forever", NewEntry("v"), 0)

		mr.FastForward(24 * time.Hour)

		_, ok := store.Get(ctx, "forever")
		assert.True(t, ok)
	})
}

func TestRemoteStore_Delete(t *testing.T) {
	store, mr := setupRemote(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()
	store.Set(ctx, "a", NewEntry("v"), time.Minute)

	store.Delete(ctx, "a")

	_, ok := store.Get(ctx, "a")
	assert.False(t, ok)
}

func TestRemoteStore_ClearRespectsPrefix(t *testing.T) {
	store, mr := setupRemote(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()
	store.Set(ctx, "a", NewEntry("v"), 0)
	store.Set(ctx, "b", NewEntry("v"), 0)
	require.NoError(t, mr.Set("other:key", "untouched"))

	store.Clear(ctx)

	_, ok := store.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "b")
	assert.False(t, ok)
	assert.True(t, mr.Exists("other:key"))
}

func TestRemoteStore_DegradesOnRuntimeError(t *testing.T) {
	store, mr := setupRemote(t)
	defer store.Close()

	ctx := context.Background()
	store.Set(ctx, "a", NewEntry("v"), time.Minute)

	// Kill the server mid-flight: the next operation degrades the store.
	mr.Close()

	_, ok := store.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, StateDegraded, store.State())

	// Once degraded, everything is a silent no-op.
	store.Set(ctx, "b", NewEntry("v"), time.Minute)
	_, ok = store.Get(ctx, "b")
	assert.False(t, ok)
	store.Delete(ctx, "a")
	store.Clear(ctx)
	assert.Equal(t, StateDegraded, store.State())
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "not_attempted", StateNotAttempted.String())
	assert.Equal(t, "attempting", StateAttempting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "degraded", StateDegraded.String())
	assert.Equal(t, "unknown", ConnState(99).String())
}
