package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/mspops/predictgate/observe"
)

// Policy configures retry behavior for a single call. A Policy is immutable
// once handed to NewRetry; construct a fresh one per call site or start from
// a named preset.
type Policy struct {
	// MaxRetries is the number of additional attempts beyond the first.
	// Zero means a single attempt. Negative values are treated as zero.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// BackoffFactor is the exponential backoff multiplier. Must be > 1.
	// Default: 2.0
	BackoffFactor float64

	// MaxDelay caps the delay between attempts.
	// Default: 30s
	MaxDelay time.Duration

	// RetryIf decides whether an error is worth another attempt. When it
	// returns false the error is returned immediately without consuming
	// remaining retries.
	// Default: Retryable (the shared transient classification).
	RetryIf func(err error) bool

	// OnRetry is invoked before each backoff wait with the observed error
	// and the 1-based attempt number that just failed. It is best-effort:
	// a panic inside the hook is recovered and logged, never propagated.
	OnRetry func(err error, attempt int)

	// Label names the call site for logs and metrics.
	Label string

	// AttemptTimeout bounds each individual attempt. Zero means no
	// per-attempt timeout.
	AttemptTimeout time.Duration

	// OverallTimeout bounds the whole retry sequence including backoff
	// waits. Zero means no overall deadline.
	OverallTimeout time.Duration

	// Logger receives diagnostics (hook panics, deadline exhaustion).
	// Optional; nil drops them.
	Logger observe.Logger
}

// Named presets.
const (
	// PresetExternalServiceDefault is the standard policy for calls into
	// the external prediction service.
	PresetExternalServiceDefault = "external-service-default"

	// PresetInteractive is a tight policy for latency-sensitive paths.
	PresetInteractive = "interactive"
)

// Preset returns a named policy. The boolean reports whether the name is
// known.
func Preset(name string) (Policy, bool) {
	switch name {
	case PresetExternalServiceDefault:
		return Policy{
			MaxRetries:     3,
			BaseDelay:      100 * time.Millisecond,
			BackoffFactor:  2.0,
			MaxDelay:       10 * time.Second,
			AttemptTimeout: 30 * time.Second,
			Label:          name,
		}, true
	case PresetInteractive:
		return Policy{
			MaxRetries:     1,
			BaseDelay:      50 * time.Millisecond,
			BackoffFactor:  2.0,
			MaxDelay:       500 * time.Millisecond,
			AttemptTimeout: 2 * time.Second,
			Label:          name,
		}, true
	default:
		return Policy{}, false
	}
}

// Retry executes operations under a Policy.
type Retry struct {
	policy Policy
}

// NewRetry creates a retry executor, applying defaults to unset fields.
func NewRetry(policy Policy) *Retry {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 100 * time.Millisecond
	}
	if policy.BackoffFactor <= 1 {
		policy.BackoffFactor = 2.0
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	if policy.RetryIf == nil {
		policy.RetryIf = Retryable
	}

	return &Retry{policy: policy}
}

// Policy returns the normalized policy.
func (r *Retry) Policy() Policy {
	return r.policy
}

// Execute runs the operation with at most MaxRetries+1 attempts. Attempts
// are strictly sequential: attempt N+1 never starts before attempt N's
// backoff delay has elapsed. On exhaustion the error from the last attempt
// is returned.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	p := r.policy

	if p.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.OverallTimeout)
		defer cancel()
	}

	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return errors.Join(ErrDeadlineExhausted, lastErr)
			}
			return err
		}

		err := r.attempt(ctx, op)
		if err == nil {
			return nil
		}
		lastErr = err

		// Fail fast on non-retryable errors without consuming retries.
		if !p.RetryIf(err) {
			return err
		}

		if attempt == p.MaxRetries {
			break
		}

		delay := r.delay(attempt)

		r.fireOnRetry(ctx, err, attempt+1)

		// Never sleep past the overall deadline.
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
			r.logDeadline(ctx, attempt+1, lastErr)
			return errors.Join(ErrDeadlineExhausted, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return lastErr
}

func (r *Retry) attempt(ctx context.Context, op func(context.Context) error) error {
	if r.policy.AttemptTimeout <= 0 {
		return op(ctx)
	}
	return runWithTimeout(ctx, r.policy.AttemptTimeout, op)
}

// delay computes the backoff before the retry following the given 0-based
// attempt: min(BaseDelay x BackoffFactor^attempt + jitter, MaxDelay), where
// jitter is uniform in [0, 0.1 x delay] to desynchronize concurrent
// retrying callers.
func (r *Retry) delay(attempt int) time.Duration {
	p := r.policy

	raw := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt)))
	if raw <= 0 || raw > p.MaxDelay {
		return p.MaxDelay
	}

	// #nosec G404 -- jitter is non-cryptographic timing variance.
	jitter := time.Duration(rand.Int64N(int64(raw)/10 + 1))

	delay := raw + jitter
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func (r *Retry) fireOnRetry(ctx context.Context, err error, attempt int) {
	if r.policy.OnRetry == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil && r.policy.Logger != nil {
			r.policy.Logger.Error(ctx, "retry hook panicked",
				observe.Field{Key: "label", Value: r.policy.Label},
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "panic", Value: rec},
			)
		}
	}()
	r.policy.OnRetry(err, attempt)
}

func (r *Retry) logDeadline(ctx context.Context, attempt int, err error) {
	if r.policy.Logger == nil {
		return
	}
	r.policy.Logger.Warn(ctx, "overall deadline exhausted mid-backoff",
		observe.Field{Key: "label", Value: r.policy.Label},
		observe.Field{Key: "attempt", Value: attempt},
		observe.Field{Key: "error", Value: err.Error()},
	)
}
