package cache

import "time"

// Entry is a single cached value plus its bookkeeping metadata.
// Entries are owned by the memory tier and never escape a single
// operation's execution.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration // 0 means the entry never expires
	HitCount  uint64
	Size      int // approximate, len(Value)
}

// Expired reports whether the entry has outlived its TTL at now.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > e.TTL
}
