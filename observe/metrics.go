package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache operation telemetry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic and must return quickly.
type Metrics interface {
	// RecordOp records one cache operation: op is get/set/delete, tier
	// is the tier that answered, hit reports whether a get was served.
	RecordOp(ctx context.Context, op, tier string, duration time.Duration, hit bool, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	opsTotal     metric.Int64Counter
	opsErrors    metric.Int64Counter
	hitsTotal    metric.Int64Counter
	missesTotal  metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance registering the cache instruments
// on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	opsTotal, err := meter.Int64Counter(
		"cache.ops.total",
		metric.WithDescription("Total number of cache operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	opsErrors, err := meter.Int64Counter(
		"cache.ops.errors",
		metric.WithDescription("Total number of failed cache operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	hitsTotal, err := meter.Int64Counter(
		"cache.hits.total",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	missesTotal, err := meter.Int64Counter(
		"cache.misses.total",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.op.duration_ms",
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		opsTotal:     opsTotal,
		opsErrors:    opsErrors,
		hitsTotal:    hitsTotal,
		missesTotal:  missesTotal,
		durationHist: durationHist,
	}, nil
}

// RecordOp records metrics for one cache operation.
func (m *metricsImpl) RecordOp(ctx context.Context, op, tier string, duration time.Duration, hit bool, err error) {
	opt := metric.WithAttributes(
		attribute.String("cache.op", op),
		attribute.String("cache.tier", tier),
	)

	m.opsTotal.Add(ctx, 1, opt)
	if err != nil {
		m.opsErrors.Add(ctx, 1, opt)
	}
	if op == "get" {
		if hit {
			m.hitsTotal.Add(ctx, 1, opt)
		} else {
			m.missesTotal.Add(ctx, 1, opt)
		}
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
}

// nopMetrics is a metrics implementation that does nothing.
type nopMetrics struct{}

// NopMetrics returns a metrics sink that discards everything.
func NopMetrics() Metrics {
	return nopMetrics{}
}

func (nopMetrics) RecordOp(context.Context, string, string, time.Duration, bool, error) {}
