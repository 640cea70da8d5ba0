package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Lookup outcomes recorded by RecordLookup.
const (
	OutcomeHit       = "hit"       // served from the resolved store
	OutcomeMiss      = "miss"      // started a remote fetch
	OutcomeCoalesced = "coalesced" // joined a fetch already in flight
)

// Metrics records ABI cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup counts a resolve call by outcome.
	RecordLookup(ctx context.Context, meta AccountMeta, outcome string)

	// RecordFetch records a remote fetch with duration and error status.
	RecordFetch(ctx context.Context, meta AccountMeta, duration time.Duration, err error)

	// RecordInject counts a local injection.
	RecordInject(ctx context.Context, meta AccountMeta, merge bool)
}

type metricsImpl struct {
	lookupCount  metric.Int64Counter
	fetchCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	injectCount  metric.Int64Counter
}

// NewMetrics creates the ABI cache instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookupCount, err := meter.Int64Counter(
		"abi.lookup.total",
		metric.WithDescription("Total number of ABI lookups by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	fetchCount, err := meter.Int64Counter(
		"abi.fetch.total",
		metric.WithDescription("Total number of remote ABI fetches"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"abi.fetch.errors",
		metric.WithDescription("Total number of failed remote ABI fetches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"abi.fetch.duration_ms",
		metric.WithDescription("Remote ABI fetch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	injectCount, err := meter.Int64Counter(
		"abi.inject.total",
		metric.WithDescription("Total number of local ABI injections"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookupCount:  lookupCount,
		fetchCount:   fetchCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		injectCount:  injectCount,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta AccountMeta, outcome string) {
	attrs := append(meta.attributes(), attribute.String("outcome", outcome))
	m.lookupCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordFetch(ctx context.Context, meta AccountMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.fetchCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordInject(ctx context.Context, meta AccountMeta, merge bool) {
	attrs := append(meta.attributes(), attribute.Bool("merge", merge))
	m.injectCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordLookup(context.Context, AccountMeta, string)              {}
func (noopMetrics) RecordFetch(context.Context, AccountMeta, time.Duration, error) {}
func (noopMetrics) RecordInject(context.Context, AccountMeta, bool)                {}
