package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carlet-notify/internal/observability/logging"
)

// TracerName is the instrumentation name of every span this application emits.
const TracerName = "carlet-notify"

// GetTracer returns the tracer of the currently installed global provider.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts an internal span named name with the given attributes.
// The request ID in ctx, if any, is added as "request.id" so spans can be
// matched with log lines.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if id := logging.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("request.id", id))
	}
	return GetTracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span (when non-nil), marks it as failed and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
