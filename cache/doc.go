// Package cache provides a tiered result cache for query-serving layers.
//
// It memoizes expensive computed results behind a deterministic SHA-256
// fingerprint, bounds the in-memory tier with LRU, FIFO, or LFU eviction,
// expires entries lazily at read time, and fails open to the memory tier
// when the optional Redis tier is unreachable.
package cache
