package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels how a gateway request concluded.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeCached   Outcome = "cached"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// Registry owns every instrument the gateway records to. All counters
// and histograms are created once at startup; recording methods are safe
// for concurrent use and never panic.
type Registry struct {
	requestTotal  metric.Int64Counter
	requestErrors metric.Int64Counter
	durationHist  metric.Float64Histogram
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	retries       metric.Int64Counter
	fallbacks     metric.Int64Counter
	breakerState  metric.Int64Gauge
	predictions   metric.Int64Counter
}

// NewRegistry creates all gateway instruments on the given meter.
func NewRegistry(meter metric.Meter) (*Registry, error) {
	r := &Registry{}
	var err error

	if r.requestTotal, err = meter.Int64Counter(
		"gateway.request.total",
		metric.WithDescription("Total number of prediction requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if r.requestErrors, err = meter.Int64Counter(
		"gateway.request.errors",
		metric.WithDescription("Prediction requests that ended in error or fallback"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if r.durationHist, err = meter.Float64Histogram(
		"gateway.request.duration_ms",
		metric.WithDescription("Prediction request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if r.cacheHits, err = meter.Int64Counter(
		"gateway.cache.hits",
		metric.WithDescription("Prediction cache hits"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, err
	}
	if r.cacheMisses, err = meter.Int64Counter(
		"gateway.cache.misses",
		metric.WithDescription("Prediction cache misses"),
		metric.WithUnit("{miss}"),
	); err != nil {
		return nil, err
	}
	if r.retries, err = meter.Int64Counter(
		"gateway.retry.attempts",
		metric.WithDescription("Retry attempts against the prediction service"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}
	if r.fallbacks, err = meter.Int64Counter(
		"gateway.fallback.served",
		metric.WithDescription("Fallback responses served"),
		metric.WithUnit("{response}"),
	); err != nil {
		return nil, err
	}
	if r.breakerState, err = meter.Int64Gauge(
		"gateway.breaker.state",
		metric.WithDescription("Circuit breaker state (0 closed, 1 open, 2 half-open)"),
	); err != nil {
		return nil, err
	}
	if r.predictions, err = meter.Int64Counter(
		"gateway.predictions.served",
		metric.WithDescription("Predictions served to business code, by model and source"),
		metric.WithUnit("{prediction}"),
	); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordRequest records one completed gateway request.
func (r *Registry) RecordRequest(ctx context.Context, model, operation string, outcome Outcome, d time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
		attribute.String("outcome", string(outcome)),
	)
	r.requestTotal.Add(ctx, 1, opt)
	r.durationHist.Record(ctx, float64(d.Milliseconds()), opt)
	if outcome == OutcomeError || outcome == OutcomeFallback {
		r.requestErrors.Add(ctx, 1, opt)
	}
	r.predictions.Add(ctx, 1, opt)
}

// RecordCache records a cache lookup result for a model.
func (r *Registry) RecordCache(ctx context.Context, model string, hit bool) {
	opt := metric.WithAttributes(attribute.String("model", model))
	if hit {
		r.cacheHits.Add(ctx, 1, opt)
	} else {
		r.cacheMisses.Add(ctx, 1, opt)
	}
}

// RecordRetry records one retry attempt with its error class.
func (r *Registry) RecordRetry(ctx context.Context, model, class string) {
	r.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("error_class", class),
	))
}

// RecordFallback records a served fallback and the reason class.
func (r *Registry) RecordFallback(ctx context.Context, category, class string) {
	r.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("error_class", class),
	))
}

// SetBreakerState publishes the breaker's current state.
func (r *Registry) SetBreakerState(ctx context.Context, name string, state int64) {
	r.breakerState.Record(ctx, state, metric.WithAttributes(
		attribute.String("breaker", name),
	))
}
