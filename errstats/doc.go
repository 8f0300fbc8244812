// Package errstats records every gateway failure with its call context
// and derives a health status from the rolling error rate.
//
// Records older than the 24h retention window are pruned lazily on each
// write; Start adds an optional periodic sweep. The health thresholds are
// rate-based: below 0.1 errors/min is healthy, below 0.5 is warning,
// anything above is critical.
package errstats
