package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without attempting the downstream operation.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrTimeout is returned when a single attempt exceeds its timeout.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrDeadlineExhausted is returned when the overall deadline across all
	// attempts is reached before the operation could complete.
	ErrDeadlineExhausted = errors.New("resilience: overall deadline exhausted")

	// ErrBatchAborted marks batch positions that were never attempted
	// because an earlier failure aborted the batch.
	ErrBatchAborted = errors.New("resilience: batch aborted after earlier failure")
)
