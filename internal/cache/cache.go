package cache

import (
	"sync"
	"time"
)

// DefaultSweepThreshold is the entry count past which a write triggers a
// full sweep of expired entries.
const DefaultSweepThreshold = 200

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe in-memory TTL cache keyed by string.
//
// Expiry is enforced lazily on read: Get never returns an entry whose TTL
// has elapsed, regardless of whether a sweep has run. Sweeping is a memory
// reclamation optimization only; it runs after a write once the entry count
// exceeds the sweep threshold, and may also be invoked periodically via
// Sweep (see internal/scheduler).
type Cache[V any] struct {
	mu             sync.Mutex
	entries        map[string]entry[V]
	sweepThreshold int

	// now is swappable in tests.
	now func() time.Time
}

// New creates a Cache with the given sweep threshold.
// A threshold <= 0 falls back to DefaultSweepThreshold.
func New[V any](sweepThreshold int) *Cache[V] {
	if sweepThreshold <= 0 {
		sweepThreshold = DefaultSweepThreshold
	}
	return &Cache[V]{
		entries:        make(map[string]entry[V]),
		sweepThreshold: sweepThreshold,
		now:            time.Now,
	}
}

// Get returns the value for key if present and unexpired.
// An expired entry is deleted and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL, overwriting any existing
// entry. If the cache has grown past the sweep threshold, expired entries
// are reclaimed before returning.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	if len(c.entries) > c.sweepThreshold {
		c.sweepLocked()
	}
}

// Sweep removes all expired entries and returns how many were reclaimed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *Cache[V]) sweepLocked() int {
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Size returns the current entry count, including entries that are expired
// but not yet swept. Observability only.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
