package observe

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jonwraymond/abicache/observe/exporters"
)

// Config holds all configuration for the Observer.
type Config struct {
	ServiceName string        `json:"serviceName"`
	Version     string        `json:"version,omitempty"`
	Tracing     TracingConfig `json:"tracing"`
	Metrics     MetricsConfig `json:"metrics"`
	Logging     LoggingConfig `json:"logging"`
}

// TracingConfig configures span export for remote ABI fetches.
type TracingConfig struct {
	Enabled   bool    `json:"enabled"`
	Exporter  string  `json:"exporter"`  // otlp|jaeger|stdout|none
	SamplePct float64 `json:"samplePct"` // 0.0-1.0
}

// MetricsConfig configures the lookup, fetch and inject instruments.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Exporter string `json:"exporter"` // otlp|prometheus|stdout|none
}

// LoggingConfig configures the JSON logger.
type LoggingConfig struct {
	Enabled bool   `json:"enabled"`
	Level   string `json:"level"` // debug|info|warn|error
}

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSamplePct indicates Tracing.SamplePct is outside [0, 1].
	ErrInvalidSamplePct = errors.New("observe: sample percentage must be between 0.0 and 1.0")

	// ErrInvalidTracingExporter indicates an unknown tracing exporter name.
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")

	// ErrInvalidMetricsExporter indicates an unknown metrics exporter name.
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")
)

// Sampling bounds for TracingConfig.SamplePct.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// Accepted names. The empty string selects the default ("none", "info").
var (
	ValidTracingExporters = append(exporters.TracingExporters(), "none", "")
	ValidMetricsExporters = append(exporters.MetricsExporters(), "none", "")
	ValidLogLevels        = []string{"debug", "info", "warn", "error", ""}
)

// Validate checks the enabled sections only, and reports every problem.
func (c *Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, ErrMissingServiceName)
	}
	if c.Tracing.Enabled {
		errs = append(errs, oneOf(ErrInvalidTracingExporter, c.Tracing.Exporter, ValidTracingExporters))
		if pct := c.Tracing.SamplePct; pct < MinSamplePct || pct > MaxSamplePct {
			errs = append(errs, fmt.Errorf("%w: got %g", ErrInvalidSamplePct, pct))
		}
	}
	if c.Metrics.Enabled {
		errs = append(errs, oneOf(ErrInvalidMetricsExporter, c.Metrics.Exporter, ValidMetricsExporters))
	}
	if c.Logging.Enabled {
		errs = append(errs, oneOf(ErrInvalidLogLevel, c.Logging.Level, ValidLogLevels))
	}
	return errors.Join(errs...)
}

func oneOf(sentinel error, v string, allowed []string) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%w: %q", sentinel, v)
}
