package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Entry is a cached prediction result with its storage metadata.
type Entry struct {
	Value     any
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Cache stores successful prediction results keyed by the mapper's
// deterministic, time-bucketed key.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (Entry{}, false) on miss or
//   expiry.
type Cache interface {
	// Get retrieves a cached entry. Returns (Entry{}, false) on miss.
	Get(ctx context.Context, key string) (Entry, bool)

	// Set stores a value with the given TTL. TTL<=0 means no caching.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a cached entry. Idempotent, no error on miss.
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks that a key is usable for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
