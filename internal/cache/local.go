package cache

import (
	"sync"
	"time"
)

// LocalStore is the in-process cache tier. It is always available, has no
// failure modes, and does not enforce TTLs on write; staleness is judged by
// the facade at read time or by the sweeper.
type LocalStore[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
}

// NewLocalStore creates an empty local store.
func NewLocalStore[T any]() *LocalStore[T] {
	return &LocalStore[T]{
		entries: make(map[string]Entry[T]),
	}
}

// Get retrieves the entry for key, if present.
func (l *LocalStore[T]) Get(key string) (Entry[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[key]
	return entry, ok
}

// Set stores an entry under key, replacing any previous entry.
func (l *LocalStore[T]) Set(key string, entry Entry[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = entry
}

// Delete removes the entry for key.
func (l *LocalStore[T]) Delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Clear removes all entries.
func (l *LocalStore[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]Entry[T])
}

// Size returns the number of stored entries.
func (l *LocalStore[T]) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// EvictOlderThan removes every entry whose age meets or exceeds maxAge and
// returns the number of evicted entries. Used by the sweeper to bound memory
// growth.
func (l *LocalStore[T]) EvictOlderThan(maxAge time.Duration) int {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, entry := range l.entries {
		if entry.Age(now) >= maxAge {
			delete(l.entries, key)
			evicted++
		}
	}
	return evicted
}
