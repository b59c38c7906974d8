package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/querycache/observe"
)

// ResolverFunc computes a result for a cache miss. The cache never
// decides what to compute, only whether and how long to remember it.
type ResolverFunc func(ctx context.Context) (any, error)

// Memoizer wraps resolver execution with caching keyed by the derived
// request fingerprint. It replaces decorator-style auto-memoization with
// an explicit call-site wrapper.
type Memoizer struct {
	cache  Cache
	keyer  Keyer
	tracer observe.Tracer
	ttl    time.Duration
	group  singleflight.Group
}

// NewMemoizer creates a memoizer. If keyer is nil, the default SHA-256
// keyer is used. TTL<=0 means the cache's configured default.
func NewMemoizer(c Cache, keyer Keyer, ttl time.Duration) (*Memoizer, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &Memoizer{
		cache:  c,
		keyer:  keyer,
		tracer: observe.NopTracer(),
		ttl:    ttl,
	}, nil
}

// SetTracer attaches a tracer for resolve spans. Nil restores the no-op
// tracer.
func (m *Memoizer) SetTracer(t observe.Tracer) {
	if t == nil {
		t = observe.NopTracer()
	}
	m.tracer = t
}

// Resolve returns the cached result for the request, or runs the resolver
// on a miss and caches its serialized result. Resolver errors are
// returned as-is and never cached. Concurrent misses for the same key are
// collapsed into a single resolver invocation.
func (m *Memoizer) Resolve(
	ctx context.Context,
	operationName string,
	variables map[string]any,
	fieldName string,
	args map[string]any,
	resolver ResolverFunc,
) ([]byte, error) {
	ctx, span := m.tracer.StartSpan(ctx, "cache.resolve", operationName, fieldName)

	key, err := m.keyer.Key(operationName, variables, fieldName, args)
	if err != nil {
		// Key derivation failed: execute without caching.
		result, rerr := m.runResolver(ctx, resolver)
		m.tracer.EndSpan(span, rerr)
		return result, rerr
	}

	if cached, ok := m.cache.Get(ctx, key); ok {
		m.tracer.EndSpan(span, nil)
		return cached, nil
	}

	result, err, _ := m.group.Do(key, func() (any, error) {
		payload, rerr := m.runResolver(ctx, resolver)
		if rerr != nil {
			return nil, rerr
		}
		// RawMessage avoids re-serializing the payload inside Set.
		if serr := m.cache.Set(ctx, key, json.RawMessage(payload), m.ttl); serr != nil {
			return nil, serr
		}
		return payload, nil
	})
	m.tracer.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (m *Memoizer) runResolver(ctx context.Context, resolver ResolverFunc) ([]byte, error) {
	value, err := resolver(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return payload, nil
}
