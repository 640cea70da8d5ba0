package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/abicache/auth"
	"github.com/jonwraymond/abicache/cache"
	"github.com/jonwraymond/abicache/chain"
	"github.com/jonwraymond/abicache/config"
	"github.com/jonwraymond/abicache/health"
	"github.com/jonwraymond/abicache/observe"
	"github.com/jonwraymond/abicache/server"
)

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configs stringList
	fs.Var(&configs, "config", "YAML config `file`; repeat to overlay")
	addr := fs.String("addr", "", "listen address, overriding server.addr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: serve takes no arguments", errUsage)
	}

	cfg, err := config.Load(configs...)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	baseDir := "."
	if len(configs) > 0 {
		baseDir = filepath.Dir(configs[0])
	}

	srv, shutdown, err := buildServer(ctx, cfg, baseDir)
	if err != nil {
		return err
	}
	defer shutdown()

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// buildServer wires the service from cfg. shutdown flushes telemetry and
// releases secret providers.
func buildServer(ctx context.Context, cfg *config.Config, baseDir string) (*server.Server, func(), error) {
	cfg.Observe.Version = version
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, nil, fmt.Errorf("observe: %w", err)
	}
	resolver, err := cfg.Resolver()
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, nil, err
	}
	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(sctx)
		_ = resolver.Close()
	}
	fail := func(err error) (*server.Server, func(), error) {
		shutdown()
		return nil, nil, err
	}

	logger := obs.Logger()
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fail(err)
	}

	policy, err := cfg.Cache.Policy()
	if err != nil {
		return fail(err)
	}
	agg := health.NewAggregator(cfg.Health.Aggregator())

	var fetcher cache.Fetcher
	if cfg.Chain.URL != "" {
		client, err := chain.NewFromConfig(ctx, cfg.Chain.ClientConfig(), resolver,
			chain.WithLogger(logger),
			chain.WithUserAgent(chain.DefaultUserAgent+"/"+version),
		)
		if err != nil {
			return fail(err)
		}
		fetcher = client
		agg.Register("chain", chain.NewChecker(client))
	} else {
		logger.Warn(ctx, "no chain url configured; serving injected ABIs only")
	}

	sc := cache.New(fetcher,
		cache.WithPolicy(policy),
		cache.WithLogger(logger),
		cache.WithMetrics(mw.Metrics()),
		cache.WithMiddleware(mw),
	)
	agg.Register("abi-cache", sc.HealthChecker())
	agg.Register("memory", health.NewMemoryChecker(cfg.Health.Memory(sc.Len)))

	if err := cfg.Cache.ApplySeeds(sc, baseDir); err != nil {
		return fail(err)
	}
	if err := preload(ctx, sc, cfg.Cache.Preload, cfg.Cache.PreloadTimeout.D(), logger); err != nil {
		logger.Warn(ctx, "preload incomplete", observe.Field{Key: "error", Value: err})
	}

	stack, err := auth.Build(ctx, cfg.Auth, resolver)
	if err != nil {
		return fail(err)
	}

	opts := []server.Option{
		server.WithAuth(stack),
		server.WithHealth(agg),
		server.WithLogger(logger),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithMaxPrefetch(cfg.Server.MaxPrefetch),
	}
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		opts = append(opts, server.WithMetricsHandler(promhttp.Handler()))
	}

	logger.Info(ctx, "abicache configured",
		observe.Field{Key: "version", Value: version},
		observe.Field{Key: "chain", Value: cfg.Chain.URL},
		observe.Field{Key: "entries", Value: sc.Len()},
	)
	return server.New(sc, opts...), shutdown, nil
}
