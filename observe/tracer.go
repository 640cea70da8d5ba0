package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// AccountMeta identifies the account an ABI operation is about.
type AccountMeta struct {
	Account string // Canonical account name (required)
	Chain   string // Chain label or endpoint (optional)
	Source  string // cache|fetch|inject (optional)
}

// SpanName returns the deterministic span name for a fetch of this account.
// Format: abi.fetch.<account>
func (m AccountMeta) SpanName() string {
	return "abi.fetch." + m.Account
}

// Validate reports ErrMissingAccount when Account is empty.
func (m AccountMeta) Validate() error {
	if m.Account == "" {
		return ErrMissingAccount
	}
	return nil
}

func (m AccountMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("abi.account", m.Account),
	}
	if m.Chain != "" {
		attrs = append(attrs, attribute.String("abi.chain", m.Chain))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with per-account fetch spans.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context carrying the new span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a remote fetch.
	StartSpan(ctx context.Context, meta AccountMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a client span with account attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta AccountMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("abi.error", false))
	if meta.Source != "" {
		attrs = append(attrs, attribute.String("abi.source", meta.Source))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("abi.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NoopTracer returns a tracer whose spans are never recorded.
func NoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta AccountMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
