package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through normally.
	StateClosed State = iota
	// StateOpen means calls are rejected immediately.
	StateOpen
	// StateHalfOpen means a single probe call is testing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the logical downstream target this breaker guards.
	Name string

	// MaxFailures is the number of consecutive failures before opening.
	// Default: 5
	MaxFailures int

	// OpenDuration is how long the breaker stays open before allowing a
	// half-open probe.
	// Default: 30s
	OpenDuration time.Duration

	// FailureWindow resets the consecutive-failure count when the previous
	// failure is older than this. Zero disables the window.
	FailureWindow time.Duration

	// OnStateChange is called after every state transition.
	OnStateChange func(name string, from, to State)

	// IsFailure decides whether an error counts toward opening the
	// breaker. Default: every non-nil error counts.
	IsFailure func(err error) bool
}

// CircuitBreaker guards one logical downstream target. One instance lives
// for the whole process; state is mutated only by the breaker's own
// transition logic.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	openedAt      time.Time
	probeInFlight bool
}

// Snapshot is a point-in-time view of breaker state, exposed to metrics
// and the health surface.
type Snapshot struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitzero"`
	ProbeInFlight       bool      `json:"probe_in_flight"`
}

// NewCircuitBreaker creates a circuit breaker, applying defaults to unset
// fields.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.Name == "" {
		config.Name = "default"
	}
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.OpenDuration <= 0 {
		config.OpenDuration = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Name returns the breaker's target name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Execute runs the operation through the breaker. While open it rejects
// with ErrCircuitOpen without invoking the operation; while half-open it
// admits exactly one probe and rejects concurrent callers until the probe
// resolves.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	probe, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	err = op(ctx)
	cb.afterRequest(err, probe)
	return err
}

// State returns the current state, applying the open-duration transition
// if it is due.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Snapshot returns a point-in-time view of the breaker.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.currentStateLocked()
	return Snapshot{
		Name:                cb.config.Name,
		State:               state.String(),
		ConsecutiveFailures: cb.failures,
		OpenedAt:            cb.openedAt,
		ProbeInFlight:       cb.probeInFlight,
	}
}

// Reset forces the breaker back to closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probeInFlight = false
	cb.openedAt = time.Time{}
	cb.mu.Unlock()

	if from != StateClosed {
		cb.notify(from, StateClosed)
	}
}

// beforeRequest admits or rejects the call. The returned flag reports
// whether this call is the half-open probe.
func (cb *CircuitBreaker) beforeRequest() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if cb.probeInFlight {
			return false, ErrCircuitOpen
		}
		cb.probeInFlight = true
		return true, nil
	default:
		return false, nil
	}
}

func (cb *CircuitBreaker) afterRequest(err error, probe bool) {
	isFailure := cb.config.IsFailure(err)

	cb.mu.Lock()
	from := cb.state

	switch cb.state {
	case StateClosed:
		if isFailure {
			now := time.Now()
			if cb.config.FailureWindow > 0 && now.Sub(cb.lastFailure) > cb.config.FailureWindow {
				cb.failures = 0
			}
			cb.failures++
			cb.lastFailure = now
			if cb.failures >= cb.config.MaxFailures {
				cb.state = StateOpen
				cb.openedAt = now
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if !probe {
			// A non-probe call that slipped through a state change;
			// it does not decide the probe's outcome.
			break
		}
		cb.probeInFlight = false
		if isFailure {
			// Probe failed: reopen and restart the open-duration timer.
			cb.state = StateOpen
			cb.openedAt = time.Now()
		} else {
			cb.state = StateClosed
			cb.failures = 0
			cb.openedAt = time.Time{}
		}
	}

	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.OpenDuration {
		cb.state = StateHalfOpen
		cb.probeInFlight = false
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(cb.config.Name, StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
