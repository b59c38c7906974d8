package cache

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// EvictionPolicy selects the algorithm used to pick a victim when the
// in-memory tier exceeds its capacity.
type EvictionPolicy string

const (
	// PolicyLRU evicts the least recently touched entry.
	PolicyLRU EvictionPolicy = "lru"
	// PolicyFIFO evicts the earliest-inserted surviving entry,
	// independent of access pattern.
	PolicyFIFO EvictionPolicy = "fifo"
	// PolicyLFU evicts the entry with the minimum hit count; ties break
	// on insertion order.
	PolicyLFU EvictionPolicy = "lfu"
)

// ErrUnknownPolicy indicates an unrecognized eviction policy name.
var ErrUnknownPolicy = errors.New("cache: unknown eviction policy")

// ParsePolicy parses a policy name as it appears in configuration.
func ParsePolicy(s string) (EvictionPolicy, error) {
	switch EvictionPolicy(s) {
	case PolicyLRU, PolicyFIFO, PolicyLFU:
		return EvictionPolicy(s), nil
	case "":
		return PolicyLRU, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// RemoteConfig describes the optional remote tier connection.
type RemoteConfig struct {
	Host string
	Port int

	// Password may contain ${ENV} placeholders or a secretref; it is
	// resolved once when the cache is constructed.
	Password string

	// DB is the logical database index on the remote store.
	DB int

	// Timeout bounds each remote call. Default: 500ms.
	Timeout time.Duration
}

// Addr returns the host:port dial address.
func (r RemoteConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Config configures the tiered cache.
type Config struct {
	// Enabled toggles the cache. When false, Get always misses and Set
	// is a no-op.
	Enabled bool

	// DefaultTTL is used when Set is called with TTL<=0.
	// If zero, entries without an explicit TTL never expire.
	DefaultTTL time.Duration

	// MaxTTL caps every TTL. If zero, no maximum is enforced.
	MaxTTL time.Duration

	// MaxEntries is the hard capacity bound for the in-memory tier only.
	MaxEntries int

	// Policy selects the eviction algorithm. Default: PolicyLRU.
	Policy EvictionPolicy

	// Remote, when non-nil, enables the remote tier.
	Remote *RemoteConfig
}

// DefaultConfig returns a config suitable for most query-serving layers:
// enabled, 5 minute default TTL capped at 1 hour, 1000 entries, LRU.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
		MaxEntries: 1000,
		Policy:     PolicyLRU,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.MaxEntries < 0 {
		return fmt.Errorf("cache: max entries must not be negative, got %d", c.MaxEntries)
	}
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if c.Remote != nil {
		if c.Remote.Host == "" {
			return errors.New("cache: remote host is required")
		}
		if c.Remote.Port <= 0 || c.Remote.Port > 65535 {
			return fmt.Errorf("cache: remote port out of range: %d", c.Remote.Port)
		}
	}
	return nil
}

// EffectiveTTL returns the TTL to use for a write, applying the default
// and clamping to MaxTTL.
func (c Config) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	if c.MaxTTL > 0 && ttl > c.MaxTTL {
		ttl = c.MaxTTL
	}
	return ttl
}
