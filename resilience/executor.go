package resilience

import (
	"context"
)

// Executor composes the retry policy with a circuit breaker guarding the
// downstream target. Each attempt consults the breaker before the
// operation runs; a breaker rejection classifies as non-retryable, so
// retries never hammer an open breaker.
type Executor struct {
	retry   *Retry
	breaker *CircuitBreaker
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an execution wrapper from the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry sets the retry executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithCircuitBreaker sets the circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.breaker = cb
	}
}

// Breaker returns the configured circuit breaker, or nil.
func (e *Executor) Breaker() *CircuitBreaker {
	return e.breaker
}

// Execute runs the operation. The chain, outside in, is:
// retry -> circuit breaker -> per-attempt timeout (from the retry policy)
// -> operation.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.breaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.breaker.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		return e.retry.Execute(ctx, execute)
	}
	return execute(ctx)
}
