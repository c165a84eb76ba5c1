package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// scopeName names both the tracer and the meter.
const scopeName = "github.com/MrWong99/haulvoice"

// Surfaces a transcript can arrive on.
const (
	SurfaceSession = "session"
	SurfaceREST    = "rest"
	SurfaceMCP     = "mcp"
)

// Span attributes set on interpretation spans.
const (
	AttrSurface    = attribute.Key("haulvoice.surface")
	AttrSessionID  = attribute.Key("haulvoice.session.id")
	AttrIntent     = attribute.Key("haulvoice.intent")
	AttrOutcome    = attribute.Key("haulvoice.outcome")
	AttrConfidence = attribute.Key("haulvoice.confidence")
)

// Tracer returns the haulvoice tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}

// StartInterpret starts the span that covers one transcript on surface.
// sessionID may be empty for stateless surfaces. Finish it with
// [EndInterpret].
func StartInterpret(ctx context.Context, surface, sessionID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrSurface.String(surface)}
	if sessionID != "" {
		attrs = append(attrs, AttrSessionID.String(sessionID))
	}
	return Tracer().Start(ctx, "interpret."+surface, trace.WithAttributes(attrs...))
}

// EndInterpret records the resolution on span and ends it. A transcript that
// matched no command marks the span as failed.
func EndInterpret(span trace.Span, intent, outcome string, confidence float64) {
	span.SetAttributes(
		AttrIntent.String(intent),
		AttrOutcome.String(outcome),
		AttrConfidence.Float64(confidence),
	)
	if outcome == "unrecognized" {
		span.SetStatus(codes.Error, "no command matched")
	}
	span.End()
}

// CorrelationID is the trace ID of the span in ctx, or "" without one.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger with trace_id and span_id attached when
// ctx carries a span.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
