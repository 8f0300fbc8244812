// Package resilience provides the retry, circuit breaking and failure
// classification primitives behind every call into the external prediction
// service.
//
// # Patterns
//
//   - Retry: bounded attempts with exponential backoff and uniform jitter,
//     a pluggable retry predicate and a best-effort per-attempt hook.
//     Run and RunBatch add typed and concurrency-limited variants.
//
//   - Circuit Breaker: a three-state breaker (closed/open/half-open) per
//     logical downstream target. Half-open admits exactly one probe.
//
//   - Classification: a shared taxonomy (Classify, Retryable) so the retry
//     predicate and the error aggregator agree on what counts as transient.
//
// # Usage
//
//	policy, _ := resilience.Preset(resilience.PresetExternalServiceDefault)
//	retry := resilience.NewRetry(policy)
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:         "prediction-service",
//	    MaxFailures:  5,
//	    OpenDuration: 30 * time.Second,
//	})
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRetry(retry),
//	    resilience.WithCircuitBreaker(cb),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return callPredictionService(ctx)
//	})
package resilience
