package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds the duration of an operation.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a timeout wrapper. Non-positive limits default to
// 30 seconds.
func NewTimeout(limit time.Duration) *Timeout {
	if limit <= 0 {
		limit = 30 * time.Second
	}
	return &Timeout{limit: limit}
}

// Execute runs the operation under the timeout. The operation keeps
// running in its goroutine after a timeout; it must honor ctx to stop.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// Limit returns the configured bound.
func (t *Timeout) Limit() time.Duration {
	return t.limit
}
