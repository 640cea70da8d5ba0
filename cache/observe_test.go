package cache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/abicache/health"
	"github.com/jonwraymond/abicache/observe"
)

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

// TestSchemaCache_Telemetry verifies one span and one fetch metric per coalesced fetch.
func TestSchemaCache_Telemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	var logs bytes.Buffer
	logger := observe.NewLoggerWithWriter("debug", &logs)

	f := newFakeFetcher().set("eosio.token", tokenJSON(t)).hold()
	c := New(f,
		WithLogger(logger),
		WithMetrics(metrics),
		WithMiddleware(observe.NewMiddleware(observe.NewTracer(tp.Tracer("test")), metrics, logger)),
	)

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetABI(context.Background(), "eosio.token")
		}()
	}
	waitFor(t, "all callers to wait", func() bool { return waiters(c) == n })
	f.release()
	wg.Wait()

	if _, err := c.GetABI(context.Background(), "eosio.token"); err != nil {
		t.Fatalf("GetABI: %v", err)
	}
	if err := c.SetABI("foo", `{}`, true); err != nil {
		t.Fatalf("SetABI: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "abi.fetch.eosio.token" {
		t.Fatalf("expected one abi.fetch.eosio.token span, got %d", len(spans))
	}
	if got := counterTotal(t, reader, "abi.fetch.total"); got != 1 {
		t.Errorf("abi.fetch.total = %d, want 1", got)
	}
	if got := counterTotal(t, reader, "abi.lookup.total"); got != n+1 {
		t.Errorf("abi.lookup.total = %d, want %d", got, n+1)
	}
	if got := counterTotal(t, reader, "abi.inject.total"); got != 1 {
		t.Errorf("abi.inject.total = %d, want 1", got)
	}

	out := logs.String()
	for _, want := range []string{"abi fetch completed", "abi resolved", "abi injected"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

// TestSchemaCache_TelemetryOnFailure verifies failed fetches are logged as warnings.
func TestSchemaCache_TelemetryOnFailure(t *testing.T) {
	var logs bytes.Buffer
	c := New(newFakeFetcher().fail("alice", errors.New("dial tcp: refused")),
		WithLogger(observe.NewLoggerWithWriter("warn", &logs)))

	if _, err := c.GetABI(context.Background(), "alice"); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(logs.String(), `"abi lookup failed"`) || !strings.Contains(logs.String(), "dial tcp: refused") {
		t.Errorf("unexpected log output: %s", logs.String())
	}
}

// TestSchemaCache_HealthChecker verifies health status and details.
func TestSchemaCache_HealthChecker(t *testing.T) {
	c := New(newFakeFetcher())
	_ = c.SetABI("eosio", `{}`, false)

	res := c.HealthChecker().Check(context.Background())
	if res.Status != health.StatusHealthy {
		t.Errorf("status = %v, want healthy", res.Status)
	}
	if res.Details["entries"] != 1 {
		t.Errorf("entries = %v, want 1", res.Details["entries"])
	}
	if c.HealthChecker().Name() != "abi-cache" {
		t.Errorf("name = %q", c.HealthChecker().Name())
	}

	res = New(nil).HealthChecker().Check(context.Background())
	if res.Status != health.StatusDegraded {
		t.Errorf("status without fetcher = %v, want degraded", res.Status)
	}
}
