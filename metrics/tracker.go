package metrics

import (
	"sync"
	"time"
)

// Defaults for the short-window request tracker.
const (
	// DefaultSummaryWindow is the trailing window PerformanceSummary
	// reports over.
	DefaultSummaryWindow = 5 * time.Minute
	// DefaultSweepInterval is how often completed entries are swept.
	DefaultSweepInterval = 10 * time.Minute
	// DefaultMaxAge is how long a completed entry is kept before the
	// sweep drops it.
	DefaultMaxAge = time.Hour
)

// TrackerConfig tunes the short-window request tracker.
type TrackerConfig struct {
	// SummaryWindow is the trailing window for PerformanceSummary.
	// Default: 5m
	SummaryWindow time.Duration

	// SweepInterval is how often expired entries are dropped.
	// Default: 10m
	SweepInterval time.Duration

	// MaxAge is how long completed entries survive.
	// Default: 1h
	MaxAge time.Duration
}

type request struct {
	model     string
	operation string
	startedAt time.Time
	endedAt   time.Time
	outcome   Outcome
	done      bool
}

// Tracker keeps a short-lived in-memory record of recent requests so the
// gateway can answer "how are we doing right now" without a metrics
// backend. It complements, not replaces, the Registry instruments.
type Tracker struct {
	cfg  TrackerConfig
	mu   sync.Mutex
	reqs map[string]*request
	stop chan struct{}
	once sync.Once
}

// NewTracker creates a tracker with defaults applied.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.SummaryWindow <= 0 {
		cfg.SummaryWindow = DefaultSummaryWindow
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &Tracker{
		cfg:  cfg,
		reqs: make(map[string]*request),
		stop: make(chan struct{}),
	}
}

// StartRequest registers an in-flight request under its correlation id.
func (t *Tracker) StartRequest(id, model, operation string) {
	t.mu.Lock()
	t.reqs[id] = &request{
		model:     model,
		operation: operation,
		startedAt: time.Now(),
	}
	t.mu.Unlock()
}

// EndRequest marks the request finished with its outcome. Unknown ids
// are ignored.
func (t *Tracker) EndRequest(id string, outcome Outcome) {
	t.mu.Lock()
	if r, ok := t.reqs[id]; ok && !r.done {
		r.endedAt = time.Now()
		r.outcome = outcome
		r.done = true
	}
	t.mu.Unlock()
}

// PerformanceSummary is a point-in-time view over the trailing window.
type PerformanceSummary struct {
	Window        time.Duration `json:"window"`
	Total         int           `json:"total"`
	InFlight      int           `json:"in_flight"`
	Errors        int           `json:"errors"`
	Fallbacks     int           `json:"fallbacks"`
	CacheHits     int           `json:"cache_hits"`
	ErrorRate     float64       `json:"error_rate"`
	AvgDurationMS float64       `json:"avg_duration_ms"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// Summary computes the trailing-window performance summary.
func (t *Tracker) Summary() PerformanceSummary {
	now := time.Now()
	cutoff := now.Add(-t.cfg.SummaryWindow)

	s := PerformanceSummary{
		Window:      t.cfg.SummaryWindow,
		GeneratedAt: now,
	}

	staleCutoff := now.Add(-t.cfg.MaxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	var totalDur time.Duration
	var completed int
	for _, r := range t.reqs {
		if !r.done {
			// Abandoned starts awaiting the next sweep are not in flight.
			if r.startedAt.After(staleCutoff) {
				s.InFlight++
			}
			continue
		}
		if r.endedAt.Before(cutoff) {
			continue
		}
		s.Total++
		completed++
		totalDur += r.endedAt.Sub(r.startedAt)
		switch r.outcome {
		case OutcomeError:
			s.Errors++
		case OutcomeFallback:
			s.Fallbacks++
		case OutcomeCached:
			s.CacheHits++
		}
	}
	if completed > 0 {
		s.AvgDurationMS = float64(totalDur.Milliseconds()) / float64(completed)
		s.ErrorRate = float64(s.Errors+s.Fallbacks) / float64(completed)
	}
	return s
}

// Start launches the periodic sweep. It returns immediately; the sweep
// stops when done is closed or Close is called.
func (t *Tracker) Start(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(t.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.sweep(time.Now())
			case <-done:
				return
			case <-t.stop:
				return
			}
		}
	}()
}

// Close stops the sweep goroutine. Safe to call more than once.
func (t *Tracker) Close() {
	t.once.Do(func() { close(t.stop) })
}

// sweep drops entries older than MaxAge, completed or not. An unmatched
// start (the caller crashed before EndRequest) would otherwise sit in the
// store forever.
func (t *Tracker) sweep(now time.Time) {
	cutoff := now.Add(-t.cfg.MaxAge)
	t.mu.Lock()
	for id, r := range t.reqs {
		at := r.startedAt
		if r.done {
			at = r.endedAt
		}
		if at.Before(cutoff) {
			delete(t.reqs, id)
		}
	}
	t.mu.Unlock()
}
