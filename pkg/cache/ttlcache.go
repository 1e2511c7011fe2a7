// Package cache provides a capacity-bounded, per-entry-TTL key/value store
// with least-recently-used eviction. It backs both the AI response memoizer
// and the rate-limit decision cache.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config holds configuration for a TTLCache.
type Config struct {
	// MaxEntries is the maximum number of entries held at once. Inserting
	// beyond capacity evicts the least-recently-used entry first.
	MaxEntries int

	// DefaultTTL is applied by Set; SetWithTTL overrides it per entry.
	DefaultTTL time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 1000,
		DefaultTTL: time.Hour,
	}
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

// Stats reports cache activity counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Expired   int64
}

// TTLCache is a bounded LRU cache with per-entry expiry. Expiry is checked
// lazily on read; an expired entry is removed and reported absent. All
// methods are safe for concurrent use.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	config  Config
	entries map[K]*list.Element
	order   *list.List // front = most recently used
	stats   Stats

	// now is the clock used for TTL checks; replaced in tests.
	now func() time.Time
}

// New creates a TTLCache with the given configuration.
func New[K comparable, V any](config Config) *TTLCache[K, V] {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultConfig().MaxEntries
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}
	return &TTLCache[K, V]{
		config:  config,
		entries: make(map[K]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the value for key if present and not expired. A hit promotes
// the entry to most-recently-used. Absent is a normal outcome, never an
// error.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	ent := elem.Value.(*entry[K, V])
	if c.now().Sub(ent.insertedAt) > ent.ttl {
		c.removeElement(elem)
		c.stats.Expired++
		c.stats.Misses++
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.stats.Hits++
	return ent.value, true
}

// Set inserts or overwrites key with the default TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL inserts or overwrites key with an explicit TTL. If the cache is
// at capacity the least-recently-used entry is evicted first.
func (c *TTLCache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.insertedAt = c.now()
		ent.ttl = ttl
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.config.MaxEntries {
		c.evictOldest()
	}

	ent := &entry[K, V]{
		key:        key,
		value:      value,
		insertedAt: c.now(),
		ttl:        ttl,
	}
	c.entries[key] = c.order.PushFront(ent)
}

// Delete removes key if present.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

// Clear drops all entries. Counters are preserved.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.order.Init()
}

// Len returns the current number of entries, including any that have
// expired but not yet been read.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// GetStats returns a snapshot of the activity counters.
func (c *TTLCache[K, V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// SetClock replaces the time source used for TTL checks. Intended for tests.
func (c *TTLCache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *TTLCache[K, V]) evictOldest() {
	if elem := c.order.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

func (c *TTLCache[K, V]) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry[K, V])
	delete(c.entries, ent.key)
	c.order.Remove(elem)
}
