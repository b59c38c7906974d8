package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache is the in-memory tier: the entry store plus its eviction
// engine. It owns all mutation of cached state; one mutex serializes
// every operation that touches the entry map or the policy bookkeeping.
type MemoryCache struct {
	mu       sync.Mutex
	cfg      Config
	entries  map[string]*Entry
	ev       evictor
	stats    *counters
	memBytes int64
}

// NewMemoryCache creates a standalone in-memory cache with the given
// config. The tiered cache constructs its own memory tier; use this
// directly only when no remote tier is wanted at all.
func NewMemoryCache(cfg Config) *MemoryCache {
	return newMemoryCache(cfg, &counters{})
}

func newMemoryCache(cfg Config, stats *counters) *MemoryCache {
	return &MemoryCache{
		cfg:     cfg,
		entries: make(map[string]*Entry),
		ev:      newEvictor(cfg.Policy),
		stats:   stats,
	}
}

// Get retrieves a value. An expired entry is removed in the same
// operation and counted as a miss, never an eviction.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.misses.Add(1)
		return nil, false
	}

	if entry.Expired(time.Now()) {
		c.removeLocked(key, entry)
		c.stats.misses.Add(1)
		return nil, false
	}

	entry.HitCount++
	c.ev.recordGet(key)
	c.stats.hits.Add(1)
	return entry.Value, true
}

// Set adds or replaces an entry, then synchronously evicts at most one
// victim if the store now exceeds capacity. Capacity is never left
// exceeded after Set returns.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[key]; ok {
		c.memBytes -= int64(prev.Size)
	}
	c.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
		TTL:       ttl,
		Size:      len(value),
	}
	c.memBytes += int64(len(value))
	c.ev.recordPut(key)

	if c.cfg.MaxEntries > 0 && len(c.entries) > c.cfg.MaxEntries {
		c.evictOneLocked()
	}
}

// Delete removes a key. Idempotent; reports whether the key was present.
func (c *MemoryCache) Delete(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(key, entry)
	return true
}

// Clear empties the store and resets statistics.
func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.ev = newEvictor(c.cfg.Policy)
	c.memBytes = 0
	c.stats.reset()
}

// InvalidateByPattern removes every key containing substring and returns
// the removed keys.
func (c *MemoryCache) InvalidateByPattern(_ context.Context, substring string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for key, entry := range c.entries {
		if strings.Contains(key, substring) {
			c.removeLocked(key, entry)
			removed = append(removed, key)
		}
	}
	return removed
}

// Keys returns a snapshot of the current key set.
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the current entry count.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a consistent snapshot of cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		Evictions:   c.stats.evictions.Load(),
		Size:        len(c.entries),
		MemoryBytes: c.memBytes,
		HitRate:     c.stats.hitRate(),
	}
}

// evictOneLocked removes exactly one victim chosen by the configured
// policy. A no-op when nothing is tracked; never an error.
func (c *MemoryCache) evictOneLocked() {
	key, ok := c.ev.victim()
	if !ok {
		return
	}
	entry, ok := c.entries[key]
	if !ok {
		// Bookkeeping drifted from the store; drop the stale record.
		c.ev.forget(key)
		return
	}
	c.removeLocked(key, entry)
	c.stats.evictions.Add(1)
}

func (c *MemoryCache) removeLocked(key string, entry *Entry) {
	delete(c.entries, key)
	c.ev.forget(key)
	c.memBytes -= int64(entry.Size)
}
