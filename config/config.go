package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"dario.cat/mergo"
	"sigs.k8s.io/yaml"

	"github.com/jonwraymond/abicache/abi"
	"github.com/jonwraymond/abicache/auth"
	"github.com/jonwraymond/abicache/cache"
	"github.com/jonwraymond/abicache/observe"
	"github.com/jonwraymond/abicache/secret"
)

// Config is the service configuration.
type Config struct {
	Server  ServerConfig     `json:"server"`
	Chain   ChainConfig      `json:"chain"`
	Cache   CacheConfig      `json:"cache"`
	Health  HealthConfig     `json:"health"`
	Auth    auth.Config      `json:"auth"`
	Observe observe.Config   `json:"observe"`
	Secrets []SecretProvider `json:"secrets,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string `json:"addr"`
	MaxBodyBytes int64  `json:"maxBodyBytes,omitempty"`
	MaxPrefetch  int    `json:"maxPrefetch,omitempty"`
}

// ChainConfig configures the chain API client. An empty URL runs the
// cache without a fetcher: only seeded and injected ABIs are served.
type ChainConfig struct {
	URL          string   `json:"url,omitempty"`
	APIKeyHeader string   `json:"apiKeyHeader,omitempty"`
	APIKey       string   `json:"apiKey,omitempty"`
	Timeout      Duration `json:"timeout,omitempty"`
	RetryMax     int      `json:"retryMax,omitempty"`
	RetryWaitMin Duration `json:"retryWaitMin,omitempty"`
	RetryWaitMax Duration `json:"retryWaitMax,omitempty"`

	// RequestTimeout bounds one request including retries.
	RequestTimeout Duration         `json:"requestTimeout,omitempty"`
	MaxConcurrent  int              `json:"maxConcurrent,omitempty"`
	CircuitBreaker *BreakerConfig   `json:"circuitBreaker,omitempty"`
	RateLimit      *RateLimitConfig `json:"rateLimit,omitempty"`
}

// BreakerConfig configures the chain circuit breaker.
type BreakerConfig struct {
	MaxFailures  int      `json:"maxFailures,omitempty"`
	ResetTimeout Duration `json:"resetTimeout,omitempty"`
}

// RateLimitConfig configures the chain request rate limit.
type RateLimitConfig struct {
	Rate    float64  `json:"rate"`
	Burst   int      `json:"burst,omitempty"`
	Wait    bool     `json:"wait,omitempty"`
	MaxWait Duration `json:"maxWait,omitempty"`
}

// CacheConfig configures the schema cache.
type CacheConfig struct {
	// Merge is "concat" or "dedupe".
	Merge               string   `json:"merge,omitempty"`
	FetchTimeout        Duration `json:"fetchTimeout,omitempty"`
	PrefetchConcurrency int      `json:"prefetchConcurrency,omitempty"`

	// Preload lists accounts fetched at startup.
	Preload []string `json:"preload,omitempty"`

	// PreloadTimeout bounds how long startup keeps retrying Preload while
	// the node is unreachable.
	PreloadTimeout Duration `json:"preloadTimeout,omitempty"`

	// Seeds are ABI files injected at startup, before Preload.
	Seeds []Seed `json:"seeds,omitempty"`
}

// Seed injects the ABI in File (JSON or binary) for Account.
type Seed struct {
	Account string `json:"account"`
	File    string `json:"file"`
	Merge   bool   `json:"merge,omitempty"`
}

// HealthConfig configures the health checks.
type HealthConfig struct {
	CheckTimeout   Duration `json:"checkTimeout,omitempty"`
	MemoryWarning  float64  `json:"memoryWarning,omitempty"`
	MemoryCritical float64  `json:"memoryCritical,omitempty"`
	MaxAllocBytes  uint64   `json:"maxAllocBytes,omitempty"`
	MaxEntries     int      `json:"maxEntries,omitempty"`
}

// SecretProvider enables a provider from secret.DefaultRegistry.
type SecretProvider struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

// Default returns the configuration used for every unset value.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Cache: CacheConfig{
			Merge:               "concat",
			PrefetchConcurrency: cache.DefaultPrefetchConcurrency,
			PreloadTimeout:      Duration(30 * time.Second),
		},
		Health: HealthConfig{CheckTimeout: Duration(5 * time.Second), MemoryWarning: 0.8, MemoryCritical: 0.95},
		Auth:   auth.Config{AllowAnonymous: true},
		Observe: observe.Config{
			ServiceName: "abicache",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Load reads and merges the files at paths, then validates the result.
func Load(paths ...string) (*Config, error) {
	docs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		docs = append(docs, data)
	}
	return Parse(docs...)
}

// Parse decodes YAML documents as Load does. With no documents it returns
// Default.
func Parse(docs ...[]byte) (*Config, error) {
	cfg := Default()
	for i, doc := range docs {
		if i == 0 {
			if err := yaml.UnmarshalStrict(doc, &cfg); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}
			continue
		}
		var overlay Config
		if err := yaml.UnmarshalStrict(doc, &overlay); err != nil {
			return nil, fmt.Errorf("%w: overlay %d: %w", ErrInvalidConfig, i, err)
		}
		if err := mergo.Merge(&cfg, overlay, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("%w: overlay %d: %w", ErrInvalidConfig, i, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem in c, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}

	if c.Chain.URL != "" {
		if u, err := url.Parse(c.Chain.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("chain.url %q must be an absolute http(s) URL", c.Chain.URL)
		}
	}
	if c.Chain.RetryMax < 0 {
		add("chain.retryMax must not be negative")
	}
	if c.Chain.RateLimit != nil && c.Chain.RateLimit.Rate <= 0 {
		add("chain.rateLimit.rate must be positive")
	}

	if _, err := cache.ParseMergeMode(c.Cache.Merge); err != nil {
		add("cache.merge: %v", err)
	}
	for _, account := range c.Cache.Preload {
		if account == "" {
			add("cache.preload: empty account")
		} else if _, err := abi.ParseName(account); err != nil {
			add("cache.preload: %v", err)
		}
	}
	for i, s := range c.Cache.Seeds {
		if s.Account == "" {
			add("cache.seeds[%d].account is required", i)
		} else if _, err := abi.ParseName(s.Account); err != nil {
			add("cache.seeds[%d].account: %v", i, err)
		}
		if s.File == "" {
			add("cache.seeds[%d].file is required", i)
		}
	}

	h := c.Health
	if h.MemoryWarning < 0 || h.MemoryWarning >= 1 || h.MemoryCritical < 0 || h.MemoryCritical >= 1 {
		add("health memory thresholds must be in [0, 1)")
	} else if h.MemoryCritical != 0 && h.MemoryCritical < h.MemoryWarning {
		add("health.memoryCritical must not be below memoryWarning")
	}

	known := secret.DefaultRegistry.List()
	for i, p := range c.Secrets {
		if !slices.Contains(known, p.Name) {
			add("secrets[%d]: unknown provider %q (have %v)", i, p.Name, known)
		}
	}

	if err := c.Observe.Validate(); err != nil {
		add("observe: %v", err)
	}

	return errors.Join(errs...)
}
