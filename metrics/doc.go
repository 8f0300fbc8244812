// Package metrics owns the gateway's OpenTelemetry instruments and a
// short-window in-memory request tracker.
//
// The Registry holds every counter, histogram and gauge the gateway
// records to; it is created once at startup from an otel meter. The
// Tracker keeps the last hour of requests so PerformanceSummary can
// answer operational "right now" questions without a metrics backend.
// Exposition is Prometheus pull plus a JSON summary endpoint.
package metrics
