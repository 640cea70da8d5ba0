// Package health provides health checks for the ABI cache service.
//
// A Checker reports a Status (Healthy, Degraded or Unhealthy) with optional
// details. The service registers the cache, the upstream chain endpoint and
// a memory checker with an Aggregator and exposes them over HTTP:
//
//	agg := health.NewAggregator()
//	agg.Register("abi-cache", schemaCache.HealthChecker())
//	agg.Register("chain", chain.NewChecker(client))
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{
//	    Entries: schemaCache.Len,
//	}))
//
//	health.RegisterHandlers(mux, agg)
//
// RegisterHandlers mounts /healthz (liveness), /readyz (readiness), /health
// (detailed JSON) and /health/{name} (single check).
package health
