package hedge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startExecuteSpan starts the span covering one Execute call, mirroring
// the teacher's per-operation span in httpclient/trace.go. A nil tracer
// yields trace.SpanFromContext's noop implementation (never a span already
// carried by ctx), so callers that don't configure tracing pay only the
// cost of a couple of no-op calls.
func startExecuteSpan(ctx context.Context, tracer trace.Tracer, maxAttempts int, mode HedgingMode) (trace.Span, context.Context) {
	if tracer == nil {
		return trace.SpanFromContext(context.Background()), ctx
	}
	spanCtx, span := tracer.Start(ctx, "hedge.Execute",
		trace.WithAttributes(
			attribute.Int("hedge.max_attempts", maxAttempts),
			attribute.String("hedge.mode", modeName(mode)),
		),
	)
	return span, spanCtx
}

func modeName(m HedgingMode) string {
	switch m.kind {
	case kindParallel:
		return "parallel"
	case kindSerial:
		return "serial"
	default:
		return "after_delay"
	}
}

func traceAttemptStarted[T any, S any](span trace.Span, a *AttemptExecution[T, S]) {
	span.AddEvent("attempt.started", trace.WithAttributes(
		attribute.String("attempt.type", a.Type.String()),
		attribute.Int("attempt.index", a.Index),
	))
}

func traceAttemptRejected[T any, S any](span trace.Span, a *AttemptExecution[T, S]) {
	span.AddEvent("attempt.rejected", trace.WithAttributes(
		attribute.String("attempt.type", a.Type.String()),
		attribute.Int("attempt.index", a.Index),
	))
}

func traceExecuteAccepted[T any, S any](span trace.Span, a *AttemptExecution[T, S]) {
	span.SetAttributes(
		attribute.String("hedge.winner.type", a.Type.String()),
		attribute.Int("hedge.winner.index", a.Index),
	)
	span.SetStatus(codes.Ok, "")
}

func traceExecuteCancelled(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
