package errstats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mspops/predictgate/correlation"
	"github.com/mspops/predictgate/resilience"
)

func TestRecord_CapturesContext(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	ctx := correlation.WithID(context.Background(), "req-42")

	rec := agg.Record(ctx, &resilience.StatusError{Code: 503}, Context{
		Service:    "prediction-service",
		Endpoint:   "/predict",
		Operation:  "invoke",
		Attempt:    2,
		MaxRetries: 3,
	})

	if rec.ID == "" {
		t.Error("ID is empty")
	}
	if rec.Type != "downstream_server" {
		t.Errorf("Type = %q, want downstream_server", rec.Type)
	}
	if rec.CorrelationID != "req-42" {
		t.Errorf("CorrelationID = %q, want req-42", rec.CorrelationID)
	}
	if rec.Service != "prediction-service" || rec.Endpoint != "/predict" {
		t.Errorf("Service/Endpoint = %q/%q", rec.Service, rec.Endpoint)
	}
	if rec.Attempt != 2 || rec.MaxRetries != 3 {
		t.Errorf("Attempt/MaxRetries = %d/%d, want 2/3", rec.Attempt, rec.MaxRetries)
	}
}

func TestStats_Counters(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	ctx := context.Background()

	agg.Record(ctx, &resilience.StatusError{Code: 503}, Context{Service: "ps", Endpoint: "/a"})
	agg.Record(ctx, &resilience.StatusError{Code: 503}, Context{Service: "ps", Endpoint: "/b"})
	agg.Record(ctx, &resilience.StatusError{Code: 429}, Context{Service: "ps", Endpoint: "/a"})

	stats := agg.Stats()

	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByType["downstream_server"] != 2 {
		t.Errorf("ByType[downstream_server] = %d, want 2", stats.ByType["downstream_server"])
	}
	if stats.ByType["rate_limited"] != 1 {
		t.Errorf("ByType[rate_limited] = %d, want 1", stats.ByType["rate_limited"])
	}
	if stats.ByService["ps"] != 3 {
		t.Errorf("ByService[ps] = %d, want 3", stats.ByService["ps"])
	}
	if stats.ByEndpoint["/a"] != 2 {
		t.Errorf("ByEndpoint[/a] = %d, want 2", stats.ByEndpoint["/a"])
	}
}

func TestStats_HealthThresholds(t *testing.T) {
	// 10 minute rate window: 0 errors -> healthy, 1 error (0.1/min) ->
	// warning, 5 errors (0.5/min) -> critical.
	agg := NewAggregator(AggregatorConfig{RateWindow: 10 * time.Minute})
	ctx := context.Background()

	if got := agg.Stats().HealthStatus; got != StatusHealthy {
		t.Errorf("HealthStatus = %q, want healthy", got)
	}

	agg.Record(ctx, errors.New("boom"), Context{})
	if got := agg.Stats().HealthStatus; got != StatusWarning {
		t.Errorf("HealthStatus after 1 error = %q, want warning", got)
	}

	for range 4 {
		agg.Record(ctx, errors.New("boom"), Context{})
	}
	stats := agg.Stats()
	if stats.HealthStatus != StatusCritical {
		t.Errorf("HealthStatus after 5 errors = %q, want critical", stats.HealthStatus)
	}
	if stats.ErrorRatePerMinute != 0.5 {
		t.Errorf("ErrorRatePerMinute = %f, want 0.5", stats.ErrorRatePerMinute)
	}
}

func TestPrune_DropsExpiredRecords(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Retention: time.Hour})
	ctx := context.Background()

	agg.Record(ctx, errors.New("old"), Context{})
	agg.Record(ctx, errors.New("older"), Context{})

	// Backdate both records past the retention window.
	agg.mu.Lock()
	for i := range agg.records {
		agg.records[i].Timestamp = time.Now().Add(-2 * time.Hour)
	}
	agg.mu.Unlock()

	agg.Record(ctx, errors.New("fresh"), Context{})

	stats := agg.Stats()
	if stats.WindowCount != 1 {
		t.Errorf("WindowCount = %d, want 1 (expired records pruned)", stats.WindowCount)
	}
	// Total is cumulative and survives pruning.
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
}

func TestRetryable_SharedClassification(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !agg.Retryable(&resilience.StatusError{Code: code}) {
			t.Errorf("Retryable(status %d) = false, want true", code)
		}
	}
	if agg.Retryable(&resilience.StatusError{Code: 404}) {
		t.Error("Retryable(status 404) = true, want false")
	}
	if agg.Retryable(resilience.ErrCircuitOpen) {
		t.Error("Retryable(ErrCircuitOpen) = true, want false")
	}
}

func TestStart_SweepStopsOnCancel(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{SweepInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	agg.Start(ctx)

	agg.Record(ctx, errors.New("boom"), Context{})
	time.Sleep(20 * time.Millisecond)
	cancel()

	// No assertion beyond not deadlocking or leaking; record stays within
	// retention.
	if got := agg.Stats().WindowCount; got != 1 {
		t.Errorf("WindowCount = %d, want 1", got)
	}
}
