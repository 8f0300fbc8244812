// Package health grades the gateway on a three-level scale (healthy,
// warning, critical) from its error statistics, circuit breaker states
// and process memory, and serves the standard probe endpoints plus a
// detailed JSON report.
package health
