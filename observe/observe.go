package observe

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/abicache/observe/exporters"
)

// Observer hands out the telemetry primitives of one process.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Shutdown honors ctx, flushes providers in reverse start order, and
// returns every error. Later calls return nil.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	mu    sync.Mutex
	stops []func(context.Context) error
}

// NewObserver validates cfg and starts the enabled sections. Started
// providers also become the otel globals; disabled sections get no-ops.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NoopLogger(),
	}
	if cfg.Logging.Enabled {
		o.logger = NewLogger(cfg.Logging.Level)
	}
	if !cfg.Tracing.Enabled && !cfg.Metrics.Enabled {
		return o, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		if err := o.startTracing(ctx, cfg, res); err != nil {
			return nil, errors.Join(err, o.Shutdown(ctx))
		}
	}
	if cfg.Metrics.Enabled {
		if err := o.startMetrics(ctx, cfg, res); err != nil {
			return nil, errors.Join(err, o.Shutdown(ctx))
		}
	}
	return o, nil
}

func (o *observer) startTracing(ctx context.Context, cfg Config, res *resource.Resource) error {
	exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
	if err != nil {
		return fmt.Errorf("observe: tracing: %w", err)
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.Tracing.SamplePct)),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	o.tracer = tp.Tracer(cfg.ServiceName)
	o.stops = append(o.stops, tp.Shutdown)
	return nil
}

func (o *observer) startMetrics(ctx context.Context, cfg Config, res *resource.Resource) error {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
	if err != nil {
		return fmt.Errorf("observe: metrics: %w", err)
	}
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	o.meter = mp.Meter(cfg.ServiceName)
	o.stops = append(o.stops, mp.Shutdown)
	return nil
}

// sampler is parent based so a sampled incoming request keeps its fetch
// spans.
func sampler(pct float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case pct >= MaxSamplePct:
		root = sdktrace.AlwaysSample()
	case pct <= MinSamplePct:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(pct)
	}
	return sdktrace.ParentBased(root)
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	stops := o.stops
	o.stops = nil
	o.mu.Unlock()

	var errs []error
	for _, stop := range slices.Backward(stops) {
		errs = append(errs, stop(ctx))
	}
	return errors.Join(errs...)
}
