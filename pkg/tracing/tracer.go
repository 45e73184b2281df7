// Package tracing is the span entry point for domain code. With no
// TracerProvider registered the global no-op provider answers, so calls
// are safe in tests and untraced deployments.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "stixgraph"

// Start opens a span named spanName as a child of the span in ctx, root
// when there is none. The caller must end it, normally via defer
// span.End().
func Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}
