// Package cache implements a two-tier read-through cache: a Redis remote tier
// backed by an always-available in-process local tier. The remote tier is an
// optimization, never a dependency; every remote operation is bounded by a
// timeout and fails soft into the local tier.
//
// Entries carry their stored-at timestamp rather than an expiry. Freshness is
// judged at read time against whatever TTL the reader supplies, so callers own
// freshness policy and the cache only timestamps.
package cache

import "time"

// Entry is a timestamped cached value. Both tiers hold independent copies;
// JSON encoding happens only at the remote boundary. Values are copied with
// Go value semantics, so deep copies of pointer-bearing payloads are the
// caller's responsibility.
type Entry[T any] struct {
	Value    T         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// NewEntry creates an entry stamped with the current time.
func NewEntry[T any](value T) Entry[T] {
	return Entry[T]{Value: value, StoredAt: time.Now()}
}

// Age returns how long ago the entry was stored.
func (e Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Fresh reports whether the entry is younger than ttl at the given instant.
func (e Entry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return e.Age(now) < ttl
}
