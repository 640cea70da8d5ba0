package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// TestAccountMeta_SpanName verifies the span naming scheme.
func TestAccountMeta_SpanName(t *testing.T) {
	if got := (AccountMeta{Account: "eosio.token"}).SpanName(); got != "abi.fetch.eosio.token" {
		t.Errorf("expected abi.fetch.eosio.token, got %q", got)
	}
}

// TestAccountMeta_Validate verifies Account is required.
func TestAccountMeta_Validate(t *testing.T) {
	if err := (AccountMeta{}).Validate(); !errors.Is(err, ErrMissingAccount) {
		t.Errorf("expected ErrMissingAccount, got %v", err)
	}
	if err := (AccountMeta{Account: "eosio"}).Validate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

// TestTracer_SpanAttributes verifies attributes and kind of a fetch span.
func TestTracer_SpanAttributes(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), AccountMeta{Account: "eosio", Chain: "jungle", Source: "fetch"})
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "abi.fetch.eosio" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", s.SpanKind())
	}
	for key, want := range map[attribute.Key]string{"abi.account": "eosio", "abi.chain": "jungle", "abi.source": "fetch"} {
		v, ok := spanAttr(s, key)
		if !ok || v.AsString() != want {
			t.Errorf("attribute %s = %v, want %s", key, v.AsString(), want)
		}
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

// TestTracer_EndSpanWithError verifies error status and event.
func TestTracer_EndSpanWithError(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), AccountMeta{Account: "ghost.account"})
	tr.EndSpan(span, errors.New("abi not found"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "abi not found" {
		t.Errorf("status = %+v", s.Status())
	}
	if v, ok := spanAttr(s, "abi.error"); !ok || !v.AsBool() {
		t.Error("expected abi.error=true")
	}
	if len(s.Events()) == 0 {
		t.Error("expected a recorded error event")
	}
}

// TestTracer_ChildSpan verifies spans nest under the caller's context.
func TestTracer_ChildSpan(t *testing.T) {
	tr, recorder := newRecordingTracer()

	ctx, parent := tr.StartSpan(context.Background(), AccountMeta{Account: "parent"})
	_, child := tr.StartSpan(ctx, AccountMeta{Account: "child"})
	tr.EndSpan(child, nil)
	tr.EndSpan(parent, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("child span is not parented to the outer span")
	}
}
