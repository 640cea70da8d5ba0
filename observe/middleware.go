package observe

import (
	"context"
	"time"
)

// FetchFunc is the signature of a remote ABI fetch as seen by Middleware.
type FetchFunc func(ctx context.Context, account AccountMeta) (any, error)

// Middleware wraps remote fetches with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe FetchFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NoopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Metrics returns the metrics recorder used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap wraps a FetchFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn FetchFunc) FetchFunc {
	return func(ctx context.Context, account AccountMeta) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, account)

		start := time.Now()
		result, err := fn(ctx, account)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordFetch(ctx, account, duration, err)

		accountLogger := m.logger.WithAccount(account)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			accountLogger.Error(ctx, "abi fetch failed", fields...)
		} else {
			accountLogger.Info(ctx, "abi fetch completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
