package cache

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/querycache/observe"
)

// warmupConcurrency bounds the warmup fan-out.
const warmupConcurrency = 8

// WarmupEntry is one preload request: the loader produces the value to
// cache under Key.
type WarmupEntry struct {
	Key    string
	TTL    time.Duration
	Loader func(ctx context.Context) (any, error)
}

// Warmup invokes all loaders concurrently and joins on them before
// returning. Each loader's success independently populates the cache; a
// failing loader is logged and does not cancel or fail its siblings.
// Returns the number of entries loaded.
func (c *TieredCache) Warmup(ctx context.Context, entries []WarmupEntry) int {
	var g errgroup.Group
	g.SetLimit(warmupConcurrency)

	var loaded atomic.Int64
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if entry.Loader == nil {
				return nil
			}
			value, err := entry.Loader(ctx)
			if err != nil {
				c.logger.Warn(ctx, "warmup loader failed",
					observe.Field{Key: "key", Value: entry.Key},
					observe.Field{Key: "error", Value: err.Error()})
				return nil
			}
			if err := c.Set(ctx, entry.Key, value, entry.TTL); err != nil {
				c.logger.Warn(ctx, "warmup set failed",
					observe.Field{Key: "key", Value: entry.Key},
					observe.Field{Key: "error", Value: err.Error()})
				return nil
			}
			loaded.Add(1)
			return nil
		})
	}

	// Loader failures are absorbed above; Wait only joins.
	_ = g.Wait()
	return int(loaded.Load())
}
