package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/abicache/health"
)

type upstream struct{ err error }

func (u upstream) Ping(context.Context) error { return u.err }

func ExampleNewPingChecker() {
	up := health.NewPingChecker("chain", upstream{})
	down := health.NewPingChecker("chain", upstream{err: errors.New("connection refused")})

	ctx := context.Background()
	r := up.Check(ctx)
	fmt.Println(r.Status, r.Message)
	r = down.Check(ctx)
	fmt.Println(r.Status, r.Message)
	fmt.Println(r.Error)
	// Output:
	// healthy chain reachable
	// unhealthy chain unreachable
	// health: check failed: connection refused
}

func ExampleNewCheckerFunc() {
	entries := 3
	checker := health.NewCheckerFunc("abi-cache", func(ctx context.Context) health.Result {
		return health.Healthy("serving").WithDetails(map[string]any{"entries": entries})
	})

	result := checker.Check(context.Background())
	fmt.Println(checker.Name(), result.Status, result.Details["entries"])
	// Output:
	// abi-cache healthy 3
}

func ExampleMemoryCheckerConfig_entries() {
	checker := health.NewMemoryChecker(health.MemoryCheckerConfig{
		MaxAlloc:   1 << 40,
		Entries:    func() int { return 1000 },
		MaxEntries: 500,
	})

	result := checker.Check(context.Background())
	fmt.Println(result.Status)
	fmt.Println(result.Message)
	// Output:
	// degraded
	// abi cache holds 1000 entries (limit 500)
}

func ExampleAggregator_CheckAll() {
	agg := health.NewAggregator()
	agg.Register("abi-cache", health.NewCheckerFunc("abi-cache", func(context.Context) health.Result {
		return health.Healthy("serving")
	}))
	agg.Register("chain", health.NewCheckerFunc("chain", func(context.Context) health.Result {
		return health.Degraded("slow responses")
	}))

	results := agg.CheckAll(context.Background())
	for _, name := range agg.CheckerNames() {
		fmt.Printf("%s: %s\n", name, results[name].Status)
	}
	fmt.Println("overall:", health.Worst(results))
	// Output:
	// abi-cache: healthy
	// chain: degraded
	// overall: degraded
}

func ExampleRegisterHandlers() {
	agg := health.NewAggregator()
	agg.Register("abi-cache", health.NewCheckerFunc("abi-cache", func(context.Context) health.Result {
		return health.Healthy("serving")
	}))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)

	for _, path := range []string{"/healthz", "/readyz", "/health", "/health/abi-cache", "/health/chain"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		fmt.Printf("%s: %d\n", path, rec.Code)
	}
	// Output:
	// /healthz: 200
	// /readyz: 200
	// /health: 200
	// /health/abi-cache: 200
	// /health/chain: 404
}

func ExampleDetailedHandler() {
	agg := health.NewAggregator()
	agg.Register("chain", health.NewCheckerFunc("chain", func(context.Context) health.Result {
		return health.Unhealthy("chain unreachable", health.ErrCheckFailed)
	}))

	rec := httptest.NewRecorder()
	health.DetailedHandler(agg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp health.Report
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	fmt.Println(rec.Code, resp.Status)
	fmt.Println(resp.Checks["chain"].Error)
	// Output:
	// 503 unhealthy
	// health: check failed
}
