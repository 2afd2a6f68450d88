package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the loopstate tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("loopstate")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartResumeSpan starts a span covering checkpoint load at construction.
	StartResumeSpan(ctx context.Context, path, sessionID string) (context.Context, trace.Span)

	// StartSaveSpan starts a span covering checkpoint persistence.
	StartSaveSpan(ctx context.Context, path, sessionID, mode string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartResumeSpan starts a span covering checkpoint load.
func (m *otelSpanManager) StartResumeSpan(ctx context.Context, path, sessionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "loopstate.resume",
		trace.WithAttributes(
			attribute.String("checkpoint.path", path),
			attribute.String("session.id", sessionID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartSaveSpan starts a span covering checkpoint persistence.
func (m *otelSpanManager) StartSaveSpan(ctx context.Context, path, sessionID, mode string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "loopstate.save",
		trace.WithAttributes(
			attribute.String("checkpoint.path", path),
			attribute.String("session.id", sessionID),
			attribute.String("checkpoint.mode", mode),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
