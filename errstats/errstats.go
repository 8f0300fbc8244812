package errstats

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mspops/predictgate/correlation"
	"github.com/mspops/predictgate/resilience"
)

// HealthStatus is the derived health of the gateway based on error rate.
type HealthStatus string

const (
	// StatusHealthy means the error rate is below 0.1/min.
	StatusHealthy HealthStatus = "healthy"
	// StatusWarning means the error rate is below 0.5/min.
	StatusWarning HealthStatus = "warning"
	// StatusCritical means the error rate is 0.5/min or above.
	StatusCritical HealthStatus = "critical"
)

// Health status thresholds in errors per minute.
const (
	warningRatePerMinute  = 0.1
	criticalRatePerMinute = 0.5
)

// ErrorRecord is one recorded failure with its call context.
type ErrorRecord struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	Service       string    `json:"service,omitempty"`
	Endpoint      string    `json:"endpoint,omitempty"`
	Operation     string    `json:"operation,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Attempt       int       `json:"attempt,omitempty"`
	MaxRetries    int       `json:"max_retries,omitempty"`
}

// Context carries the call context recorded alongside an error.
type Context struct {
	Service    string
	Endpoint   string
	Operation  string
	Attempt    int
	MaxRetries int
}

// Stats is the derived aggregate over the rolling window. It is a value
// snapshot; it is never persisted.
type Stats struct {
	Total              int64          `json:"total"`
	ByType             map[string]int `json:"by_type"`
	ByService          map[string]int `json:"by_service"`
	ByEndpoint         map[string]int `json:"by_endpoint"`
	WindowCount        int            `json:"window_count"`
	ErrorRatePerMinute float64        `json:"error_rate_per_minute"`
	HealthStatus       HealthStatus   `json:"health_status"`
}

// AggregatorConfig configures the error aggregator.
type AggregatorConfig struct {
	// Retention is how long records stay in the rolling window.
	// Default: 24h
	Retention time.Duration

	// RateWindow is the trailing window used for the per-minute error
	// rate and the derived health status.
	// Default: 10m
	RateWindow time.Duration

	// SweepInterval is the cadence of the optional background prune
	// started by Start. Zero keeps pruning lazy (on write only).
	SweepInterval time.Duration
}

// Aggregator records every failure with context and maintains
// rolling-window counts by type, service and endpoint.
//
// Construct one per process and inject it; there is no package-level
// instance.
type Aggregator struct {
	config AggregatorConfig

	mu      sync.Mutex
	records []ErrorRecord
	total   int64

	stop chan struct{}
	once sync.Once
}

// NewAggregator creates an error aggregator, applying defaults to unset
// fields.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Retention <= 0 {
		config.Retention = 24 * time.Hour
	}
	if config.RateWindow <= 0 {
		config.RateWindow = 10 * time.Minute
	}

	return &Aggregator{
		config: config,
		stop:   make(chan struct{}),
	}
}

// Record appends an error record, stamps it with the correlation id from
// ctx, and prunes entries older than the retention window.
func (a *Aggregator) Record(ctx context.Context, err error, callCtx Context) ErrorRecord {
	rec := ErrorRecord{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		Type:          resilience.Classify(err).String(),
		Message:       err.Error(),
		Service:       callCtx.Service,
		Endpoint:      callCtx.Endpoint,
		Operation:     callCtx.Operation,
		CorrelationID: correlation.IDFromContext(ctx),
		Attempt:       callCtx.Attempt,
		MaxRetries:    callCtx.MaxRetries,
	}

	a.mu.Lock()
	a.pruneLocked(time.Now())
	a.records = append(a.records, rec)
	a.total++
	a.mu.Unlock()

	return rec
}

// Stats computes the aggregate over the current window.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	a.pruneLocked(now)

	stats := Stats{
		Total:      a.total,
		ByType:     make(map[string]int),
		ByService:  make(map[string]int),
		ByEndpoint: make(map[string]int),
	}

	rateCutoff := now.Add(-a.config.RateWindow)
	rateCount := 0

	for _, rec := range a.records {
		stats.ByType[rec.Type]++
		if rec.Service != "" {
			stats.ByService[rec.Service]++
		}
		if rec.Endpoint != "" {
			stats.ByEndpoint[rec.Endpoint]++
		}
		if rec.Timestamp.After(rateCutoff) {
			rateCount++
		}
	}

	stats.WindowCount = rateCount
	stats.ErrorRatePerMinute = float64(rateCount) / a.config.RateWindow.Minutes()
	stats.HealthStatus = statusForRate(stats.ErrorRatePerMinute)

	return stats
}

// Retryable reports whether the error counts as transient. The
// classification is shared with the retry executor's default predicate so
// both agree on what is worth retrying: network-level failures plus HTTP
// 408, 429, 500, 502, 503 and 504.
func (a *Aggregator) Retryable(err error) bool {
	return resilience.Retryable(err)
}

// Start launches the periodic prune sweep when SweepInterval is set.
// Stop it by cancelling ctx or calling Close.
func (a *Aggregator) Start(ctx context.Context) {
	if a.config.SweepInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(a.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-a.stop:
				return
			case <-ticker.C:
				a.mu.Lock()
				a.pruneLocked(time.Now())
				a.mu.Unlock()
			}
		}
	}()
}

// Close stops the background sweep, if any.
func (a *Aggregator) Close() {
	a.once.Do(func() { close(a.stop) })
}

// pruneLocked drops records older than the retention window. The window
// only ever slides forward.
func (a *Aggregator) pruneLocked(now time.Time) {
	cutoff := now.Add(-a.config.Retention)

	// Records are appended in time order; find the first one to keep.
	keep := 0
	for keep < len(a.records) && !a.records[keep].Timestamp.After(cutoff) {
		keep++
	}
	if keep > 0 {
		a.records = append(a.records[:0:0], a.records[keep:]...)
	}
}

func statusForRate(ratePerMinute float64) HealthStatus {
	switch {
	case ratePerMinute < warningRatePerMinute:
		return StatusHealthy
	case ratePerMinute < criticalRatePerMinute:
		return StatusWarning
	default:
		return StatusCritical
	}
}
