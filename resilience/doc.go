// Package resilience provides resilience patterns for remote store calls.
//
// The patterns compose to police I/O against an optional backing service:
//
//   - Timeout: bounds every call so a hung remote cannot stall a caller.
//   - Circuit Breaker: stops calling a remote that keeps failing and
//     probes for recovery after a reset period.
//   - Bulkhead: caps in-flight calls so a slow remote cannot exhaust
//     request-handler goroutines.
//   - Retry: re-attempts transient failures with backoff.
//
// Compose them with an Executor:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 64})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 5})),
//	    resilience.WithTimeout(500*time.Millisecond),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
package resilience
