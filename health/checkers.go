package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/mspops/predictgate/errstats"
	"github.com/mspops/predictgate/resilience"
)

// ErrStatsChecker grades the gateway by the error aggregator's rolling
// error rate.
type ErrStatsChecker struct {
	agg *errstats.Aggregator
}

// NewErrStatsChecker creates a checker backed by the error aggregator.
func NewErrStatsChecker(agg *errstats.Aggregator) *ErrStatsChecker {
	return &ErrStatsChecker{agg: agg}
}

// Name returns "errors".
func (c *ErrStatsChecker) Name() string { return "errors" }

// Check maps the aggregator's health grade onto a check result.
func (c *ErrStatsChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Critical("context cancelled", ctx.Err())
	default:
	}

	stats := c.agg.Stats()
	details := map[string]any{
		"total_errors":          stats.Total,
		"window_count":          stats.WindowCount,
		"error_rate_per_minute": stats.ErrorRatePerMinute,
		"by_type":               stats.ByType,
		"by_service":            stats.ByService,
	}

	msg := fmt.Sprintf("error rate %.2f/min", stats.ErrorRatePerMinute)
	switch stats.HealthStatus {
	case errstats.StatusCritical:
		return Critical(msg, ErrCheckFailed).WithDetails(details)
	case errstats.StatusWarning:
		return Warning(msg).WithDetails(details)
	default:
		return Healthy(msg).WithDetails(details)
	}
}

// BreakerChecker grades the gateway by a circuit breaker's state: open
// is critical, half-open is warning, closed is healthy.
type BreakerChecker struct {
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker backed by a circuit breaker.
func NewBreakerChecker(breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{breaker: breaker}
}

// Name returns "breaker:<breaker name>".
func (c *BreakerChecker) Name() string {
	return "breaker:" + c.breaker.Name()
}

// Check reports the breaker's current state.
func (c *BreakerChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Critical("context cancelled", ctx.Err())
	default:
	}

	snap := c.breaker.Snapshot()
	details := map[string]any{
		"state":                snap.State,
		"consecutive_failures": snap.ConsecutiveFailures,
	}
	if !snap.OpenedAt.IsZero() {
		details["opened_at"] = snap.OpenedAt
	}

	// Snapshot carries the state pre-rendered for JSON.
	switch snap.State {
	case resilience.StateOpen.String():
		return Critical("circuit open, requests short-circuit to fallback", ErrCheckFailed).WithDetails(details)
	case resilience.StateHalfOpen.String():
		return Warning("circuit half-open, probing recovery").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}

// MemoryCheckerConfig configures the memory checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the allocated fraction that triggers warning.
	// Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the allocated fraction that triggers critical.
	// Default: 0.95
	CriticalThreshold float64

	// MaxAlloc is the allocation ceiling in bytes. If zero, the
	// runtime's reported Sys is used.
	MaxAlloc uint64
}

// MemoryChecker grades process memory pressure.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a memory checker with defaults applied.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold
	}
	return &MemoryChecker{config: config}
}

// Name returns "memory".
func (c *MemoryChecker) Name() string { return "memory" }

// Check reads runtime memory stats and grades usage against thresholds.
func (c *MemoryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Critical("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	maxAlloc := c.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}

	details := map[string]any{
		"alloc_bytes": stats.Alloc,
		"sys_bytes":   stats.Sys,
		"num_gc":      stats.NumGC,
		"goroutines":  runtime.NumGoroutine(),
	}
	if maxAlloc == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	ratio := float64(stats.Alloc) / float64(maxAlloc)
	details["usage_percent"] = ratio * 100

	msg := fmt.Sprintf("memory usage %.1f%%", ratio*100)
	switch {
	case ratio >= c.config.CriticalThreshold:
		return Critical(msg, ErrCheckFailed).WithDetails(details)
	case ratio >= c.config.WarningThreshold:
		return Warning(msg).WithDetails(details)
	default:
		return Healthy(msg).WithDetails(details)
	}
}
