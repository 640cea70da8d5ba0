// Package exporters builds the OpenTelemetry exporters named in observe.Config.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownExporter indicates an exporter name this package cannot build.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrEndpointNotConfigured indicates a required endpoint environment variable is not set.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")
)

type options struct {
	writer io.Writer
}

// Option configures exporter construction.
type Option func(*options)

// WithWriter sets the destination of the stdout exporters. Default os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// builder makes one exporter. endpointEnv lists the variables of which one
// must be set; the first one set is passed as endpoint.
type builder[T any] struct {
	endpointEnv []string
	build       func(ctx context.Context, o options, endpoint string) (T, error)
}

var tracing = map[string]builder[sdktrace.SpanExporter]{
	"stdout": {build: func(_ context.Context, o options, _ string) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(o.writer))
	}},
	"otlp": {
		endpointEnv: []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"},
		build: func(ctx context.Context, _ options, _ string) (sdktrace.SpanExporter, error) {
			return otlptracegrpc.New(ctx)
		},
	},
	// Jaeger ingests OTLP natively.
	"jaeger": {
		endpointEnv: []string{"OTEL_EXPORTER_JAEGER_ENDPOINT"},
		build: func(ctx context.Context, _ options, endpoint string) (sdktrace.SpanExporter, error) {
			return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(endpoint))
		},
	},
}

var metrics = map[string]builder[sdkmetric.Reader]{
	"stdout": {build: func(_ context.Context, o options, _ string) (sdkmetric.Reader, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.writer))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	}},
	"otlp": {
		endpointEnv: []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"},
		build: func(ctx context.Context, _ options, _ string) (sdkmetric.Reader, error) {
			exp, err := otlpmetricgrpc.New(ctx)
			if err != nil {
				return nil, err
			}
			return sdkmetric.NewPeriodicReader(exp), nil
		},
	},
	// The reader registers with the default prometheus registerer, which
	// the server's /metrics handler serves.
	"prometheus": {build: func(context.Context, options, string) (sdkmetric.Reader, error) {
		return prometheus.New()
	}},
}

// TracingExporters returns the tracing exporter names, sorted. "none" and
// "" are accepted too and build nothing.
func TracingExporters() []string { return slices.Sorted(maps.Keys(tracing)) }

// MetricsExporters returns the metrics exporter names, sorted. "none" and
// "" are accepted too and build nothing.
func MetricsExporters() []string { return slices.Sorted(maps.Keys(metrics)) }

// NewTracingExporter builds the named span exporter. "none" returns nil.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	return create(ctx, "tracing", tracing, name, opts)
}

// NewMetricsReader builds the named metrics reader. "none" returns nil.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	return create(ctx, "metrics", metrics, name, opts)
}

func create[T any](ctx context.Context, kind string, builders map[string]builder[T], name string, opts []Option) (T, error) {
	var zero T
	if name == "none" || name == "" {
		return zero, nil
	}
	b, ok := builders[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s %q", ErrUnknownExporter, kind, name)
	}

	o := options{writer: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	var endpoint string
	if len(b.endpointEnv) > 0 {
		for _, key := range b.endpointEnv {
			if endpoint = os.Getenv(key); endpoint != "" {
				break
			}
		}
		if endpoint == "" {
			return zero, fmt.Errorf("%w: set %s", ErrEndpointNotConfigured, strings.Join(b.endpointEnv, " or "))
		}
	}

	exp, err := b.build(ctx, o, endpoint)
	if err != nil {
		return zero, fmt.Errorf("exporters: %s %s: %w", kind, name, err)
	}
	return exp, nil
}
