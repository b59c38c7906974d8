package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/querycache/cache"
)

// Classification thresholds for the cache checker.
const (
	// UsageDegraded and UsageUnhealthy classify capacity pressure on
	// the in-memory tier.
	UsageDegraded  = 0.8
	UsageUnhealthy = 0.9

	// HitRateDegraded and HitRateUnhealthy classify cache
	// effectiveness.
	HitRateDegraded  = 0.5
	HitRateUnhealthy = 0.3
)

// CacheTarget is the view of the tiered cache the checker reads.
type CacheTarget interface {
	// Stats returns a consistent snapshot of cache statistics.
	Stats() cache.Stats

	// Capacity returns the in-memory capacity bound.
	Capacity() int

	// RemoteConfigured reports whether a remote tier is configured.
	RemoteConfigured() bool

	// RemoteHealthy reports whether the remote tier is reachable.
	RemoteHealthy(ctx context.Context) bool
}

// CacheChecker classifies cache health from three signals: capacity
// usage, hit rate, and remote-tier reachability. The final status is the
// most severe of the three; an unreachable configured remote forces
// unhealthy regardless of the other signals.
type CacheChecker struct {
	target CacheTarget
}

// NewCacheChecker creates a checker over the given cache.
func NewCacheChecker(target CacheTarget) *CacheChecker {
	return &CacheChecker{target: target}
}

// Name returns the name of this checker.
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check evaluates the classification on demand.
func (c *CacheChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	stats := c.target.Stats()
	status := StatusHealthy
	var reasons []string

	var usage float64
	if capacity := c.target.Capacity(); capacity > 0 {
		usage = float64(stats.Size) / float64(capacity)
		switch {
		case usage > UsageUnhealthy:
			status = worst(status, StatusUnhealthy)
			reasons = append(reasons, fmt.Sprintf("capacity usage critical: %.0f%%", usage*100))
		case usage > UsageDegraded:
			status = worst(status, StatusDegraded)
			reasons = append(reasons, fmt.Sprintf("capacity usage high: %.0f%%", usage*100))
		}
	}

	switch {
	case stats.HitRate < HitRateUnhealthy:
		status = worst(status, StatusUnhealthy)
		reasons = append(reasons, fmt.Sprintf("hit rate critical: %.2f", stats.HitRate))
	case stats.HitRate < HitRateDegraded:
		status = worst(status, StatusDegraded)
		reasons = append(reasons, fmt.Sprintf("hit rate low: %.2f", stats.HitRate))
	}

	var checkErr error
	remoteReachable := true
	if c.target.RemoteConfigured() {
		remoteReachable = c.target.RemoteHealthy(ctx)
		if !remoteReachable {
			status = StatusUnhealthy
			checkErr = ErrRemoteUnreachable
			reasons = append(reasons, "remote tier unreachable")
		}
	}

	details := map[string]any{
		"hits":              stats.Hits,
		"misses":            stats.Misses,
		"evictions":         stats.Evictions,
		"size":              stats.Size,
		"memory_bytes":      stats.MemoryBytes,
		"hit_rate":          stats.HitRate,
		"capacity_usage":    usage,
		"remote_configured": c.target.RemoteConfigured(),
		"remote_reachable":  remoteReachable,
	}

	message := "cache healthy"
	if len(reasons) > 0 {
		message = strings.Join(reasons, "; ")
	}

	switch status {
	case StatusUnhealthy:
		if checkErr == nil {
			checkErr = ErrCheckFailed
		}
		return Unhealthy(message, checkErr).WithDetails(details)
	case StatusDegraded:
		return Degraded(message).WithDetails(details)
	default:
		return Healthy(message).WithDetails(details)
	}
}

// Ensure CacheChecker implements Checker
var _ Checker = (*CacheChecker)(nil)
