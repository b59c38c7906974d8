package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps OpenTelemetry tracing with cache-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for one cache operation. Operation and
	// field identify the logical request being resolved.
	StartSpan(ctx context.Context, spanName, operation, field string) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, spanName, operation, field string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.Bool("cache.error", false),
	}
	if operation != "" {
		attrs = append(attrs, attribute.String("query.operation", operation))
	}
	if field != "" {
		attrs = append(attrs, attribute.String("query.field", field))
	}

	return t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// nopTracer is a tracer that does nothing.
type nopTracer struct {
	tracer trace.Tracer
}

// NopTracer returns a tracer that records nothing.
func NopTracer() Tracer {
	return &nopTracer{tracer: noopTracerProvider.Tracer("noop")}
}

func (t *nopTracer) StartSpan(ctx context.Context, spanName, _, _ string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName)
}

func (t *nopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
