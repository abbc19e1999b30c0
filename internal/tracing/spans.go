package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "mockgps.replay"

// StartSessionSpan starts the span covering one replay session
func StartSessionSpan(ctx context.Context, track string, startIndex int) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "replay.session",
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	span.SetAttributes(
		attribute.String(AttrTrack, track),
		attribute.Int(AttrStartIndex, startIndex),
	)
	return ctx, span
}

// SetSessionID tags a session span once the session has an ID
func SetSessionID(span trace.Span, sessionID string) {
	span.SetAttributes(attribute.String(AttrSessionID, sessionID))
}

// AddEmitEvent records an emitted location on the session span
func AddEmitEvent(span trace.Span, index int, lat, lon, alt float64) {
	span.AddEvent("location.emitted", trace.WithAttributes(
		attribute.Int(AttrIndex, index),
		attribute.Float64(AttrLatitude, lat),
		attribute.Float64(AttrLongitude, lon),
		attribute.Float64(AttrAltitude, alt),
	))
}

// EndSessionSpan closes a session span with its terminal state
func EndSessionSpan(span trace.Span, state string, emitted, skipped int64, err error) {
	span.SetAttributes(
		attribute.String(AttrState, state),
		attribute.Int64(AttrEmitted, emitted),
		attribute.Int64(AttrSkipped, skipped),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
