package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_RetriesThroughBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 10})
	exec := NewExecutor(
		WithRetry(NewRetry(Policy{MaxRetries: 2, BaseDelay: time.Millisecond})),
		WithCircuitBreaker(cb),
	)

	attempts := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &StatusError{Code: 503}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestExecutor_OpenBreakerShortCircuitsRetries(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})

	// Trip the breaker.
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})

	exec := NewExecutor(
		WithRetry(NewRetry(Policy{MaxRetries: 5, BaseDelay: time.Millisecond})),
		WithCircuitBreaker(cb),
	)

	invocations := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		invocations++
		return nil
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if invocations != 0 {
		t.Errorf("invocations = %d, want 0 (breaker open is non-retryable)", invocations)
	}
}

func TestExecutor_FailuresFeedBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3})
	exec := NewExecutor(
		WithRetry(NewRetry(Policy{MaxRetries: 2, BaseDelay: time.Millisecond})),
		WithCircuitBreaker(cb),
	)

	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		return &StatusError{Code: 503}
	})
	if err == nil {
		t.Fatal("Execute() error = nil, want failure")
	}

	// 3 attempts, each counted by the breaker.
	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want open after retries exhausted", cb.State())
	}
}

func TestExecutor_NoPatterns(t *testing.T) {
	exec := NewExecutor()

	called := false
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if !called {
		t.Error("operation not invoked")
	}
}
