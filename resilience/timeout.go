package resilience

import (
	"context"
	"errors"
	"time"
)

// runWithTimeout bounds a single attempt. The operation receives a derived
// context and is expected to honor it; if it does not return by the
// deadline, ErrTimeout is returned and the operation's eventual result is
// discarded.
func runWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// ExecuteWithTimeout runs an operation with a hard timeout, outside of any
// retry policy.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	return runWithTimeout(ctx, timeout, op)
}
