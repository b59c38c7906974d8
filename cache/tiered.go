package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonwraymond/querycache/observe"
	"github.com/jonwraymond/querycache/resilience"
	"github.com/jonwraymond/querycache/secret"
)

// defaultRemoteTimeout bounds each remote-tier call.
const defaultRemoteTimeout = 500 * time.Millisecond

// remoteMaxConcurrent caps in-flight remote calls so a slow remote cannot
// exhaust request-handler goroutines.
const remoteMaxConcurrent = 64

// remoteMaxFailures is the consecutive-failure threshold after which the
// remote tier is considered unreachable and skipped until it recovers.
const remoteMaxFailures = 5

// TieredCache orchestrates lookups and writes across the in-memory tier
// and the optional remote tier, failing open to memory whenever the
// remote tier errors or times out. Remote calls never run while the
// memory tier's lock is held.
type TieredCache struct {
	cfg    Config
	mem    *MemoryCache
	remote RemoteStore

	// readExec fails fast so a miss can fall back to memory quickly;
	// writeExec retries once since writes have no fallback tier.
	readExec  *resilience.Executor
	writeExec *resilience.Executor
	breaker   *resilience.CircuitBreaker

	logger  observe.Logger
	metrics observe.Metrics
	secrets *secret.Resolver
	stats   *counters
}

// Option configures a TieredCache.
type Option func(*TieredCache)

// WithLogger sets the logger used for internal, non-surfaced failures.
func WithLogger(l observe.Logger) Option {
	return func(c *TieredCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the telemetry sink for cache operations.
func WithMetrics(m observe.Metrics) Option {
	return func(c *TieredCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithRemoteStore injects a remote store, overriding the one that would
// be built from Config.Remote. Useful for tests and custom backends.
func WithRemoteStore(rs RemoteStore) Option {
	return func(c *TieredCache) {
		c.remote = rs
	}
}

// WithSecretResolver sets the resolver used to resolve secret references
// in Config.Remote.Password. Without one, only ${ENV} expansion applies.
func WithSecretResolver(r *secret.Resolver) Option {
	return func(c *TieredCache) {
		c.secrets = r
	}
}

// New creates a tiered cache. The cache holds no background goroutines;
// tear it down with Close when the owning service shuts down.
func New(cfg Config, opts ...Option) (*TieredCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stats := &counters{}
	c := &TieredCache{
		cfg:     cfg,
		mem:     newMemoryCache(cfg, stats),
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
		stats:   stats,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.remote == nil && cfg.Remote != nil {
		rc := *cfg.Remote
		password, err := c.secrets.ResolveValue(context.Background(), rc.Password)
		if err != nil {
			return nil, fmt.Errorf("cache: resolve remote password: %w", err)
		}
		rc.Password = password
		c.remote = NewRedisStore(rc)
	}
	if c.remote != nil {
		timeout := defaultRemoteTimeout
		if cfg.Remote != nil && cfg.Remote.Timeout > 0 {
			timeout = cfg.Remote.Timeout
		}
		c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  remoteMaxFailures,
			ResetTimeout: 10 * time.Second,
		})
		bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: remoteMaxConcurrent,
		})
		c.readExec = resilience.NewExecutor(
			resilience.WithBulkhead(bulkhead),
			resilience.WithCircuitBreaker(c.breaker),
			resilience.WithTimeout(timeout),
		)
		c.writeExec = resilience.NewExecutor(
			resilience.WithBulkhead(bulkhead),
			resilience.WithCircuitBreaker(c.breaker),
			resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
				MaxAttempts:  2,
				InitialDelay: 50 * time.Millisecond,
			})),
			resilience.WithTimeout(timeout),
		)
	}

	return c, nil
}

// Get consults the remote tier first when configured; a remote hit counts
// as a hit and bypasses memory. A remote miss, error, or timeout falls
// through to the in-memory tier without surfacing anything to the caller.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}

	start := time.Now()
	if c.remote != nil {
		var (
			val   []byte
			found bool
		)
		err := c.readExec.Execute(ctx, func(ctx context.Context) error {
			v, ok, err := c.remote.Get(ctx, key)
			if err != nil {
				return err
			}
			val, found = v, ok
			return nil
		})
		if err == nil && found {
			c.stats.hits.Add(1)
			c.metrics.RecordOp(ctx, "get", "remote", time.Since(start), true, nil)
			return val, true
		}
		if err != nil {
			// Fail open: the memory tier answers instead.
			c.logger.Debug(ctx, "remote get failed, falling back to memory tier",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()})
		}
	}

	val, ok := c.mem.Get(ctx, key)
	c.metrics.RecordOp(ctx, "get", "memory", time.Since(start), ok, nil)
	return val, ok
}

// Set serializes the value and writes the in-memory tier, then the remote
// tier best-effort. A remote write failure is logged, never surfaced;
// a serialization failure is surfaced and nothing is stored.
func (c *TieredCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if !c.cfg.Enabled {
		return nil
	}

	start := time.Now()
	payload, err := json.Marshal(value)
	if err != nil {
		c.metrics.RecordOp(ctx, "set", "memory", time.Since(start), false, err)
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	ttl = c.cfg.EffectiveTTL(ttl)
	c.mem.Set(ctx, key, payload, ttl)

	if c.remote != nil {
		if rerr := c.writeExec.Execute(ctx, func(ctx context.Context) error {
			return c.remote.Set(ctx, key, payload, ttl)
		}); rerr != nil {
			c.logger.Warn(ctx, "remote set failed, entry cached in memory only",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: rerr.Error()})
		}
	}

	c.metrics.RecordOp(ctx, "set", "memory", time.Since(start), false, nil)
	return nil
}

// Delete removes the key from both tiers. Remote failures are non-fatal.
func (c *TieredCache) Delete(ctx context.Context, key string) bool {
	removed := c.mem.Delete(ctx, key)

	if c.remote != nil {
		if err := c.writeExec.Execute(ctx, func(ctx context.Context) error {
			return c.remote.Delete(ctx, key)
		}); err != nil {
			c.logger.Warn(ctx, "remote delete failed",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()})
		}
	}

	return removed
}

// Clear empties both tiers and resets statistics. Remote failures are
// non-fatal.
func (c *TieredCache) Clear(ctx context.Context) {
	c.mem.Clear(ctx)

	if c.remote != nil {
		if err := c.writeExec.Execute(ctx, func(ctx context.Context) error {
			return c.remote.Flush(ctx)
		}); err != nil {
			c.logger.Warn(ctx, "remote flush failed",
				observe.Field{Key: "error", Value: err.Error()})
		}
	}
}

// InvalidateByPattern removes every key containing substring from both
// tiers and returns the number of distinct keys removed.
func (c *TieredCache) InvalidateByPattern(ctx context.Context, substring string) int {
	removed := c.mem.InvalidateByPattern(ctx, substring)
	count := len(removed)

	if c.remote == nil {
		return count
	}

	seen := make(map[string]struct{}, len(removed))
	for _, k := range removed {
		seen[k] = struct{}{}
	}

	var remoteKeys []string
	if err := c.readExec.Execute(ctx, func(ctx context.Context) error {
		keys, err := c.remote.Keys(ctx, "*"+substring+"*")
		if err != nil {
			return err
		}
		remoteKeys = keys
		return nil
	}); err != nil {
		c.logger.Warn(ctx, "remote pattern scan failed",
			observe.Field{Key: "pattern", Value: substring},
			observe.Field{Key: "error", Value: err.Error()})
		return count
	}

	for _, key := range remoteKeys {
		key := key
		if err := c.writeExec.Execute(ctx, func(ctx context.Context) error {
			return c.remote.Delete(ctx, key)
		}); err != nil {
			c.logger.Warn(ctx, "remote delete failed during invalidation",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()})
			continue
		}
		if _, ok := seen[key]; !ok {
			count++
		}
	}
	return count
}

// InvalidateUser removes every key scoped to the given user.
func (c *TieredCache) InvalidateUser(ctx context.Context, userID string) int {
	return c.InvalidateByPattern(ctx, "user:"+userID)
}

// InvalidateType removes every key scoped to the given result type.
func (c *TieredCache) InvalidateType(ctx context.Context, typeName string) int {
	return c.InvalidateByPattern(ctx, "type:"+typeName)
}

// Stats returns a consistent snapshot of cache statistics.
func (c *TieredCache) Stats() Stats {
	return c.mem.Stats()
}

// Capacity returns the configured in-memory capacity bound.
func (c *TieredCache) Capacity() int {
	return c.cfg.MaxEntries
}

// RemoteConfigured reports whether a remote tier is configured.
func (c *TieredCache) RemoteConfigured() bool {
	return c.remote != nil
}

// RemoteHealthy reports whether the remote tier is reachable. Always true
// when no remote tier is configured. An open circuit short-circuits the
// probe.
func (c *TieredCache) RemoteHealthy(ctx context.Context) bool {
	if c.remote == nil {
		return true
	}
	if c.breaker != nil && c.breaker.State() == resilience.StateOpen {
		return false
	}
	return c.readExec.Execute(ctx, func(ctx context.Context) error {
		return c.remote.Ping(ctx)
	}) == nil
}

// Close releases the remote connection, if any.
func (c *TieredCache) Close() error {
	if c.remote != nil {
		return c.remote.Close()
	}
	return nil
}

// Ensure TieredCache implements Cache
var _ Cache = (*TieredCache)(nil)
