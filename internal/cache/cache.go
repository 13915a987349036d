package cache

import (
	"context"
	"time"

	"readcache/internal/common/logging"
)

// Stats is a read-only projection of the cache's health: the remote
// connection state plus the local tier's size.
type Stats struct {
	RemoteConnected     bool `json:"remote_connected"`
	LocalEntryCount     int  `json:"local_entry_count"`
	ConnectionAttempted bool `json:"connection_attempted"`
}

// Cache unifies the remote and local tiers behind get/set/delete/clear. Its
// public operations never fail: remote trouble surfaces as misses and state
// transitions, and the local tier has no failure modes at all. Safe for
// concurrent use.
type Cache[T any] struct {
	local  *LocalStore[T]
	remote *RemoteStore[T]
	logger logging.Logger
}

// New creates a cache over a fresh local store and an unconnected remote
// store. Call Connect before use to establish the remote tier; without it the
// cache serves from the local tier only.
func New[T any](cfg RemoteConfig, logger logging.Logger) *Cache[T] {
	return &Cache[T]{
		local:  NewLocalStore[T](),
		remote: NewRemoteStore[T](cfg, logger),
		logger: logger.WithFields(logging.Field{Key: "component", Value: "cache"}),
	}
}

// Connect establishes the remote tier. Exactly one network attempt is made
// per process regardless of how often this is called.
func (c *Cache[T]) Connect(ctx context.Context) {
	c.remote.Connect(ctx)
}

// Get returns the cached value for key if either tier holds an entry younger
// than ttl. The remote tier is probed first when connected, but a remote miss
// never short-circuits the local probe: both tiers are consulted
// independently so a local entry can still serve after the remote degrades.
func (c *Cache[T]) Get(ctx context.Context, key string, ttl time.Duration) (T, bool) {
	now := time.Now()

	if c.remote.Connected() {
		if entry, ok := c.remote.Get(ctx, key); ok && entry.Fresh(now, ttl) {
			return entry.Value, true
		}
	}

	if entry, ok := c.local.Get(key); ok && entry.Fresh(now, ttl) {
		return entry.Value, true
	}

	var zero T
	return zero, false
}

// GetIgnoringTTL returns the last stored value for key regardless of its age,
// so callers can serve stale data when their upstream fetch fails. The remote
// tier is preferred when connected; the local tier answers otherwise.
func (c *Cache[T]) GetIgnoringTTL(ctx context.Context, key string) (T, bool) {
	if c.remote.Connected() {
		if entry, ok := c.remote.Get(ctx, key); ok {
			return entry.Value, true
		}
	}

	if entry, ok := c.local.Get(key); ok {
		return entry.Value, true
	}

	var zero T
	return zero, false
}

// Set stores value under key in both tiers. The local write always happens;
// the remote write is attempted only while connected and its failure neither
// undoes nor retries the local write. ttl becomes the remote tier's native
// expiry and is otherwise not recorded: freshness is judged against the TTL
// the reader supplies.
func (c *Cache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) {
	entry := NewEntry(value)
	c.local.Set(key, entry)
	c.remote.Set(ctx, key, entry, ttl)
}

// Delete removes key from both tiers, remote best-effort.
func (c *Cache[T]) Delete(ctx context.Context, key string) {
	c.remote.Delete(ctx, key)
	c.local.Delete(key)
}

// Clear empties both tiers, remote best-effort.
func (c *Cache[T]) Clear(ctx context.Context) {
	c.remote.Clear(ctx)
	cleared := c.local.Size()
	c.local.Clear()
	c.logger.Debug("cache cleared", logging.Field{Key: "local_entries", Value: cleared})
}

// Stats returns a synchronous snapshot of cache health. No I/O.
func (c *Cache[T]) Stats() Stats {
	return Stats{
		RemoteConnected:     c.remote.Connected(),
		LocalEntryCount:     c.local.Size(),
		ConnectionAttempted: c.remote.Attempted(),
	}
}

// Local exposes the local tier for the sweeper.
func (c *Cache[T]) Local() *LocalStore[T] {
	return c.local
}

// Close releases the remote connection.
func (c *Cache[T]) Close() error {
	return c.remote.Close()
}
