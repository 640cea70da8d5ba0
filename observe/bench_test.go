package observe

import (
	"context"
	"io"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// BenchmarkLogger_Info measures logging throughput.
func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_Filtered measures the cost of a dropped debug message.
func BenchmarkLogger_Filtered(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "dropped")
	}
}

// BenchmarkLogger_WithAccount measures creating account-scoped loggers.
func BenchmarkLogger_WithAccount(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	meta := AccountMeta{Account: "eosio.token", Chain: "jungle"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = logger.WithAccount(meta)
	}
}

// BenchmarkMetrics_RecordLookup measures lookup counter overhead.
func BenchmarkMetrics_RecordLookup(b *testing.B) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := NewMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	meta := AccountMeta{Account: "eosio"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordLookup(ctx, meta, OutcomeHit)
	}
}

// BenchmarkMiddleware_Wrap measures the full fetch instrumentation path.
func BenchmarkMiddleware_Wrap(b *testing.B) {
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := NewMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	mw := NewMiddleware(NewTracer(tp.Tracer("bench")), m, NewLoggerWithWriter("info", io.Discard))
	fetch := mw.Wrap(func(context.Context, AccountMeta) (any, error) {
		return nil, nil
	})
	ctx := context.Background()
	meta := AccountMeta{Account: "eosio"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = fetch(ctx, meta)
	}
}
