// Package cache provides a generic in-memory key/value cache with per-entry
// TTL, lazy expiry, and hit/miss statistics.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// NoExpiry marks an entry that never expires.
const NoExpiry time.Duration = 0

// Entry holds a cached value and its expiry deadline. A zero deadline means
// the entry never expires.
type Entry[T any] struct {
	Value     T
	ExpiresAt time.Time
}

func (e Entry[T]) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache is a concurrent TTL cache. Expiry is checked lazily at read time;
// the Get that discovers an expired entry evicts it. There is no background
// sweep.
type Cache[T any] struct {
	name       string
	entries    map[string]Entry[T]
	mutex      sync.RWMutex
	defaultTTL time.Duration
	clock      func() time.Time
	// Statistics tracking (atomic for thread safety)
	hits    int64
	misses  int64
	sets    int64
	deletes int64
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithClock injects a time source. Used by tests to simulate expiry.
func WithClock[T any](clock func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		c.clock = clock
	}
}

// New creates a cache whose entries default to the given TTL.
// A TTL of NoExpiry means entries live until deleted or cleared.
func New[T any](name string, defaultTTL time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		name:       name,
		entries:    make(map[string]Entry[T]),
		defaultTTL: defaultTTL,
		clock:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the cache tier's name.
func (c *Cache[T]) Name() string {
	return c.name
}

// Get retrieves a value. The second return is false on miss or expiry.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	var zero T
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	if entry.expired(c.clock()) {
		// Evict on the read that discovers the expiry
		c.mutex.Lock()
		if current, ok := c.entries[key]; ok && current.expired(c.clock()) {
			delete(c.entries, key)
		}
		c.mutex.Unlock()
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}

	atomic.AddInt64(&c.hits, 1)
	return entry.Value, true
}

// Set stores a value using the cache's default TTL. Overwrite semantics.
func (c *Cache[T]) Set(key string, value T) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores a value with an explicit TTL. A non-positive TTL means the
// entry never expires.
func (c *Cache[T]) SetTTL(key string, value T, ttl time.Duration) {
	entry := Entry[T]{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = c.clock().Add(ttl)
	}

	c.mutex.Lock()
	c.entries[key] = entry
	c.mutex.Unlock()
	atomic.AddInt64(&c.sets, 1)
}

// Delete removes a single entry.
func (c *Cache[T]) Delete(key string) {
	c.mutex.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mutex.Unlock()

	if existed {
		atomic.AddInt64(&c.deletes, 1)
	}
}

// Clear removes all entries. Statistics are preserved so hit rates remain
// meaningful across invalidation cycles.
func (c *Cache[T]) Clear() {
	c.mutex.Lock()
	c.entries = make(map[string]Entry[T])
	c.mutex.Unlock()
}

// Len returns the number of stored entries, including any not yet evicted
// by a lazy expiry check.
func (c *Cache[T]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Name    string
	Entries int
	Hits    int64
	Misses  int64
	Sets    int64
	Deletes int64
}

// HitRate returns the fraction of reads served from the cache (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total)
}

// GetStats returns a snapshot of the cache's counters.
func (c *Cache[T]) GetStats() Stats {
	c.mutex.RLock()
	entries := len(c.entries)
	c.mutex.RUnlock()

	return Stats{
		Name:    c.name,
		Entries: entries,
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Sets:    atomic.LoadInt64(&c.sets),
		Deletes: atomic.LoadInt64(&c.deletes),
	}
}
