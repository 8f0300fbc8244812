package resilience

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Run executes a typed operation under the given retry executor. It is the
// generic counterpart of Retry.Execute for operations that produce a value.
// A nil retry runs the operation exactly once; callers whose operation
// already retries internally use this to avoid compounding attempts.
func Run[T any](ctx context.Context, r *Retry, op func(context.Context) (T, error)) (T, error) {
	if r == nil {
		return op(ctx)
	}

	var result T

	err := r.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// BatchConfig configures RunBatch.
type BatchConfig struct {
	// Concurrency bounds simultaneous operations, capping outstanding
	// calls to the downstream service.
	// Default: 5
	Concurrency int

	// FailFast aborts remaining chunks after the first failure.
	FailFast bool
}

// RunBatch runs the operations in chunks of Concurrency, each operation
// going through the retry executor. The returned slices are indexed by the
// operation's original position. With FailFast set, the first failure
// aborts all chunks that have not started; their positions carry
// ErrBatchAborted.
func RunBatch[T any](ctx context.Context, r *Retry, ops []func(context.Context) (T, error), cfg BatchConfig) ([]T, []error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	results := make([]T, len(ops))
	errs := make([]error, len(ops))

	sem := semaphore.NewWeighted(int64(cfg.Concurrency))
	aborted := false

	for start := 0; start < len(ops); start += cfg.Concurrency {
		if aborted {
			for i := start; i < len(ops); i++ {
				errs[i] = ErrBatchAborted
			}
			break
		}

		end := min(start+cfg.Concurrency, len(ops))
		g, gctx := errgroup.WithContext(ctx)

		for i := start; i < end; i++ {
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					errs[i] = err
					return nil
				}
				defer sem.Release(1)

				results[i], errs[i] = Run(gctx, r, ops[i])
				if errs[i] != nil && cfg.FailFast {
					// Cancel the chunk's context so in-flight
					// siblings stop retrying promptly.
					return errs[i]
				}
				return nil
			})
		}

		_ = g.Wait()

		if cfg.FailFast {
			for i := start; i < end; i++ {
				if errs[i] != nil {
					aborted = true
					break
				}
			}
		}
	}

	return results, errs
}
