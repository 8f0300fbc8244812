package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RequestMeta describes one gateway call for telemetry purposes.
type RequestMeta struct {
	CorrelationID string // Request correlation id (required at the gateway boundary)
	Model         string // Prediction model type (e.g. ticket-resolution)
	Operation     string // Gateway operation (e.g. invoke, batch)
	Category      string // Fallback/cache category (optional)
}

// SpanName returns the deterministic span name for this request.
// Format: gateway.<operation>.<model> or gateway.<operation>
func (m RequestMeta) SpanName() string {
	op := m.Operation
	if op == "" {
		op = "invoke"
	}
	if m.Model != "" {
		return "gateway." + op + "." + m.Model
	}
	return "gateway." + op
}

// Tracer starts spans for gateway calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Tracer interface {
	// StartSpan starts a span for the request and returns the derived
	// context and a finish function that records the outcome.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, SpanFinisher)
}

// SpanFinisher finishes a span with the outcome of the call.
type SpanFinisher interface {
	// End finishes the span, recording err as the span status when non-nil.
	End(err error)
}

// otelTracer adapts an OpenTelemetry tracer to the Tracer interface.
type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(tracer trace.Tracer) Tracer {
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &otelTracer{tracer: tracer}
}

func (t *otelTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, SpanFinisher) {
	attrs := []attribute.KeyValue{
		attribute.String("request.correlation_id", meta.CorrelationID),
	}
	if meta.Model != "" {
		attrs = append(attrs, attribute.String("request.model", meta.Model))
	}
	if meta.Category != "" {
		attrs = append(attrs, attribute.String("request.category", meta.Category))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(), trace.WithAttributes(attrs...))
	return ctx, &spanFinisher{span: span}
}

type spanFinisher struct {
	span trace.Span
}

func (f *spanFinisher) End(err error) {
	if err != nil {
		f.span.RecordError(err)
		f.span.SetStatus(codes.Error, err.Error())
	} else {
		f.span.SetStatus(codes.Ok, "")
	}
	f.span.End()
}

// NopTracer returns a Tracer that records nothing.
func NopTracer() Tracer {
	return NewTracer(nil)
}

// Ensure otelTracer implements Tracer
var _ Tracer = (*otelTracer)(nil)
