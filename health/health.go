package health

import (
	"context"
	"errors"
	"time"
)

// Status grades a component on the same three-level scale the error
// aggregator uses: healthy, warning, critical.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusWarning indicates elevated error rates or degraded operation.
	StatusWarning
	// StatusCritical indicates the component is not functioning.
	StatusCritical
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Sentinel errors for health checks.
var (
	ErrCheckFailed     = errors.New("health: check failed")
	ErrCheckTimeout    = errors.New("health: check timeout")
	ErrCheckerNotFound = errors.New("health: checker not found")
)

// Result is the outcome of a single health check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Warning creates a warning result.
func Warning(message string) Result {
	return Result{Status: StatusWarning, Message: message, Timestamp: time.Now()}
}

// Critical creates a critical result.
func Critical(message string, err error) Result {
	return Result{Status: StatusCritical, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails attaches metadata to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is one component health check.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts an ordinary function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the checker's name.
func (f *CheckerFunc) Name() string { return f.name }

// Check runs the wrapped function.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
