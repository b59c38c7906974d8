package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrSerialization is returned by Set when a value cannot be
	// represented for storage. It is the only error condition that
	// reaches the caller; the entry is stored in neither tier.
	ErrSerialization = errors.New("cache: value cannot be serialized")

	// ErrRemoteUnavailable marks remote-tier connectivity failures.
	// It is recovered internally via fail-open and never surfaced.
	ErrRemoteUnavailable = errors.New("cache: remote tier unavailable")
)

// Cache is the caller-facing surface of the tiered result cache.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Get never errors; it returns (nil, false) on miss. Set fails
//     only when the value cannot be serialized. Remote-tier failures are
//     absorbed by falling back to the in-memory tier.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set serializes and stores a value. TTL<=0 means the configured
	// default TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a key from both tiers. Reports whether the
	// in-memory tier held it.
	Delete(ctx context.Context, key string) bool

	// Clear empties both tiers and resets statistics.
	Clear(ctx context.Context)

	// InvalidateByPattern removes every key containing substring from
	// both tiers and returns the number of keys removed.
	InvalidateByPattern(ctx context.Context, substring string) int

	// Stats returns a consistent snapshot of cache statistics.
	Stats() Stats
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
