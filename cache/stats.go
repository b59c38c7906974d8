package cache

import "sync/atomic"

// Stats is a point-in-time snapshot of cache statistics. Counters are
// monotonically non-decreasing until Clear.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64

	// Size is the in-memory tier cardinality.
	Size int

	// MemoryBytes is the approximate memory footprint, summed from
	// serialized payload lengths. Not byte-exact.
	MemoryBytes int64

	// HitRate is Hits/(Hits+Misses), 0 when no gets have been served.
	HitRate float64
}

// counters holds the hot-path statistic counters. Shared between the
// memory tier and the tiered accessor so a remote hit and a memory hit
// land in the same totals.
type counters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func (c *counters) hitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}
