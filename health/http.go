package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mspops/predictgate/errstats"
	"github.com/mspops/predictgate/resilience"
)

// Report is the JSON body of the detailed health endpoint.
type Report struct {
	HealthStatus    string                         `json:"health_status"`
	Timestamp       string                         `json:"timestamp"`
	ErrorStats      *errstats.Stats                `json:"error_stats,omitempty"`
	CircuitBreakers map[string]resilience.Snapshot `json:"circuit_breakers,omitempty"`
	Checks          map[string]CheckReport         `json:"checks,omitempty"`
}

// CheckReport is one check's slice of the report.
type CheckReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Reporter assembles the full health report: overall status, error
// statistics, and circuit breaker states in one response.
type Reporter struct {
	agg      *Aggregator
	errs     *errstats.Aggregator
	breakers []*resilience.CircuitBreaker
}

// NewReporter creates a reporter. errs and breakers may be nil/empty;
// the corresponding report sections are then omitted.
func NewReporter(agg *Aggregator, errs *errstats.Aggregator, breakers ...*resilience.CircuitBreaker) *Reporter {
	return &Reporter{agg: agg, errs: errs, breakers: breakers}
}

// Report runs all checks and assembles the detailed report.
func (r *Reporter) Report(ctx context.Context) Report {
	results := r.agg.CheckAll(ctx)
	status := r.agg.OverallStatus(results)

	report := Report{
		HealthStatus: status.String(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Checks:       make(map[string]CheckReport, len(results)),
	}
	for name, result := range results {
		check := CheckReport{
			Status:   result.Status.String(),
			Message:  result.Message,
			Duration: result.Duration.String(),
			Details:  result.Details,
		}
		if result.Error != nil {
			check.Error = result.Error.Error()
		}
		report.Checks[name] = check
	}

	if r.errs != nil {
		stats := r.errs.Stats()
		report.ErrorStats = &stats
	}
	if len(r.breakers) > 0 {
		report.CircuitBreakers = make(map[string]resilience.Snapshot, len(r.breakers))
		for _, cb := range r.breakers {
			snap := cb.Snapshot()
			report.CircuitBreakers[snap.Name] = snap
		}
	}
	return report
}

// LivenessHandler answers liveness probes: the process is up.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler answers readiness probes from the aggregate status.
// Warning still reports ready: the gateway serves fallbacks rather than
// failing.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := agg.OverallStatus(agg.CheckAll(ctx))

		w.Header().Set("Content-Type", "text/plain")
		switch status {
		case StatusCritical:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("CRITICAL"))
		case StatusWarning:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("WARNING"))
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		}
	}
}

// Handler serves the detailed JSON report. Critical maps to 503,
// everything else to 200.
func (r *Reporter) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
		defer cancel()

		report := r.Report(ctx)

		w.Header().Set("Content-Type", "application/json")
		if report.HealthStatus == StatusCritical.String() {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// RegisterHandlers mounts the health endpoints on the mux.
func RegisterHandlers(mux *http.ServeMux, reporter *Reporter) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(reporter.agg))
	mux.HandleFunc("/health", reporter.Handler())
}
