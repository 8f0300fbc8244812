package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Class is the failure classification shared by the retry predicate and the
// error aggregator, so both agree on what counts as transient.
type Class int

const (
	// ClassUnknown covers errors with no recognized classification.
	ClassUnknown Class = iota
	// ClassTransientNetwork covers connection refused/reset, DNS failures
	// and timeouts. Always retryable.
	ClassTransientNetwork
	// ClassRateLimited covers HTTP 429. Retryable with backoff.
	ClassRateLimited
	// ClassDownstreamServer covers HTTP 5xx. Retryable.
	ClassDownstreamServer
	// ClassDownstreamClient covers HTTP 4xx other than 408/429.
	// Not retryable; surfaced immediately.
	ClassDownstreamClient
	// ClassBreakerOpen covers circuit breaker rejections. Not retryable,
	// immediately eligible for fallback.
	ClassBreakerOpen
	// ClassMapping covers request-side normalization failures. Not
	// retryable and never eligible for fallback.
	ClassMapping
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassTransientNetwork:
		return "transient_network"
	case ClassRateLimited:
		return "rate_limited"
	case ClassDownstreamServer:
		return "downstream_server"
	case ClassDownstreamClient:
		return "downstream_client"
	case ClassBreakerOpen:
		return "breaker_open"
	case ClassMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Retryable reports whether errors of this class are worth retrying.
func (c Class) Retryable() bool {
	switch c {
	case ClassTransientNetwork, ClassRateLimited, ClassDownstreamServer:
		return true
	default:
		return false
	}
}

// Classifier lets error types outside this package declare their own class.
type Classifier interface {
	ResilienceClass() Class
}

// StatusError carries a downstream HTTP-style status code through the
// generic call primitive.
type StatusError struct {
	// Code is the HTTP-style status code reported by the downstream service.
	Code int

	// Op names the operation that failed (optional).
	Op string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("resilience: %s: downstream status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("resilience: downstream status %d", e.Code)
}

// Unwrap returns the underlying error.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// ResilienceClass classifies the status code.
func (e *StatusError) ResilienceClass() Class {
	switch {
	case e.Code == 429:
		return ClassRateLimited
	case e.Code == 408:
		return ClassTransientNetwork
	case e.Code >= 500:
		return ClassDownstreamServer
	case e.Code >= 400:
		return ClassDownstreamClient
	default:
		return ClassUnknown
	}
}

// RetryableStatus reports whether a downstream status code counts as
// transient. The fixed set is 408, 429 and all 5xx (including 500, 502,
// 503, 504).
func RetryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}

// Classify derives the failure class of an error.
//
// Order matters: explicit self-classification wins, then breaker
// rejections, then status codes, then network-level inspection.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var classifier Classifier
	if errors.As(err, &classifier) {
		return classifier.ResilienceClass()
	}

	if errors.Is(err, ErrCircuitOpen) {
		return ClassBreakerOpen
	}

	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTransientNetwork
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassTransientNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransientNetwork
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return ClassTransientNetwork
	}

	return ClassUnknown
}

// Retryable reports whether the error is worth retrying. This is the
// default predicate for external-service calls: it retries on connection
// failures, timeouts, DNS failures, HTTP 5xx and HTTP 429, and never
// retries other 4xx or breaker rejections.
func Retryable(err error) bool {
	return Classify(err).Retryable()
}
