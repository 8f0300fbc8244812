package gateway

import (
	"context"

	"github.com/mspops/predictgate/health"
)

// HealthReporter builds the standard health surface for this gateway:
// error-rate grading, the prediction-service breaker, and process
// memory, assembled into one reporter for the HTTP endpoints.
func (g *Gateway) HealthReporter() *health.Reporter {
	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(health.NewErrStatsChecker(g.errors))
	agg.Register(health.NewBreakerChecker(g.breaker))
	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	return health.NewReporter(agg, g.errors, g.breaker)
}

// Health runs the full health report once.
func (g *Gateway) Health(ctx context.Context) health.Report {
	return g.HealthReporter().Report(ctx)
}
