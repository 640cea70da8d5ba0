package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Time budgets of the handlers, on top of the aggregator's per-check
// timeout.
const (
	readinessTimeout = 5 * time.Second
	detailedTimeout  = 10 * time.Second
)

// Report is the body of GET /health.
type Report struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckReport `json:"checks,omitempty"`
}

// CheckReport is one check in a Report, and the body of GET /health/{name}.
type CheckReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewCheckReport renders r.
func NewCheckReport(r Result) CheckReport {
	c := CheckReport{
		Status:   r.Status.String(),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		c.Error = r.Error.Error()
	}
	return c
}

// StatusCode maps s to an HTTP status. Degraded still takes traffic.
func StatusCode(s Status) int {
	if s >= StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

var readyBodies = [...]string{"OK", "DEGRADED", "UNHEALTHY"}

func respond(w http.ResponseWriter, code int, contentType string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		respond(w, http.StatusInternalServerError, "text/plain; charset=utf-8", []byte(err.Error()))
		return
	}
	respond(w, code, "application/json", append(body, '\n'))
}

// LivenessHandler answers OK while the process serves HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, "text/plain; charset=utf-8", []byte(readyBodies[StatusHealthy]))
	}
}

// ReadinessHandler runs every check and answers OK, DEGRADED or UNHEALTHY.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		s := min(Worst(agg.CheckAll(ctx)), StatusUnhealthy)
		respond(w, StatusCode(s), "text/plain; charset=utf-8", []byte(readyBodies[s]))
	}
}

// DetailedHandler runs every check and answers a Report.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), detailedTimeout)
		defer cancel()

		results := agg.CheckAll(ctx)
		s := Worst(results)
		report := Report{
			Status:    s.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckReport, len(results)),
		}
		for name, res := range results {
			report.Checks[name] = NewCheckReport(res)
		}
		respondJSON(w, StatusCode(s), report)
	}
}

// SingleCheckHandler runs the check called name, or the {name} path value
// when name is empty, and answers its CheckReport.
func SingleCheckHandler(agg *Aggregator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		check := name
		if check == "" {
			check = r.PathValue("name")
		}
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		res, err := agg.Check(ctx, check)
		if errors.Is(err, ErrCheckerNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		respondJSON(w, StatusCode(res.Status), NewCheckReport(res))
	}
}

// RegisterHandlers mounts /healthz, /readyz, /health and /health/{name}.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc("GET /healthz", LivenessHandler())
	mux.HandleFunc("GET /readyz", ReadinessHandler(agg))
	mux.HandleFunc("GET /health", DetailedHandler(agg))
	mux.HandleFunc("GET /health/{name}", SingleCheckHandler(agg, ""))
}
