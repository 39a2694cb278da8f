package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "patchpal"

// StartReviewSpan starts a span covering one request from queueing to decision.
func StartReviewSpan(ctx context.Context, requestID, connID string, files int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("conn.id", connID),
			attribute.Int("patch.files", files),
		),
	)
}

// StartSubmitSpan starts a span for one submitter round trip.
func StartSubmitSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "submit",
		trace.WithAttributes(attribute.String("diff.source", source)),
	)
}
