package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHandler serves the Prometheus exposition format for the
// given gatherer. Pair it with the otel prometheus reader registered on
// the same prometheus.Registry.
func PrometheusHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// SummaryHandler serves the trailing-window performance summary as JSON.
func (t *Tracker) SummaryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(t.Summary()); err != nil {
			http.Error(w, "encode summary", http.StatusInternalServerError)
		}
	})
}
