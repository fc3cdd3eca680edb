// Package cache provides a small TTL cache used to avoid re-parsing
// cluster directories on every read.
package cache

import (
	"sync"
	"time"
)

// Cache maps keys to values with a fixed time-to-live. Expired entries
// are dropped lazily on access; the registry invalidates explicitly on
// every write, so the TTL only bounds staleness from out-of-band edits.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[K]entry[V]
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// New creates a cache with the given time-to-live
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:   ttl,
		items: make(map[K]entry[V]),
	}
}

// Get returns the cached value for key if present and not expired
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expires) {
		c.Delete(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, resetting its expiry
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{
		value:   value,
		expires: time.Now().Add(c.ttl),
	}
}

// Delete removes key from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear drops every entry
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]entry[V])
}

// Len returns the number of entries, counting any not yet expired lazily
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}
