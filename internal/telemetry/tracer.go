package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/vtcode-go/vtcode/internal/model"
)

// NewTracerProvider builds an SDK trace provider with no span
// processor/exporter attached: spans are created, sampled, and ended
// through the normal OTel API, but nothing ships them anywhere. This is
// the "local tracing only, never shipped anywhere" default spec.md's
// domain-stack note calls for; a caller that wants spans shipped can
// attach its own exporter to the returned provider with
// RegisterSpanProcessor (for example sdktrace.NewBatchSpanProcessor)
// before installing it globally.
func NewTracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider()
}

// Tracer returns the named tracer from whatever TracerProvider is
// currently installed globally (otel.SetTracerProvider). If none was
// installed, OTel's own default no-op provider is used, so calling
// Tracer/StartSpan is always safe even when telemetry was never set up.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartTurnSpan opens a span for one RunTurn call.
func StartTurnSpan(ctx context.Context, tracer trace.Tracer, turnNumber int, sessionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "turn",
		trace.WithAttributes(
			attribute.Int("turn_number", turnNumber),
			attribute.String("session_id", sessionID),
		),
	)
}

// StartToolSpan opens a child span for one executor dispatch, carrying
// the invocation id / parent invocation id / attempt spec.md §5 already
// threads through model.ExecutionContext.
func StartToolSpan(ctx context.Context, tracer trace.Tracer, toolName string, execCtx model.ExecutionContext) (context.Context, trace.Span) {
	return tracer.Start(ctx, "tool_call",
		trace.WithAttributes(
			attribute.String("tool_name", toolName),
			attribute.String("invocation_id", execCtx.InvocationID),
			attribute.String("parent_invocation_id", execCtx.ParentInvocationID),
			attribute.Int("attempt", execCtx.Attempt),
			attribute.Int("turn_number", execCtx.TurnNumber),
		),
	)
}

// StartLLMSpan opens a child span for one provider round trip.
func StartLLMSpan(ctx context.Context, tracer trace.Tracer, provider, model string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "llm_call",
		trace.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("model", model),
		),
	)
}

// EndSpan closes span, recording err as a failed status when non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
