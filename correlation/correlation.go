package correlation

import (
	"context"

	"github.com/google/uuid"
)

// Context keys for correlation values.
type contextKey int

const (
	idKey contextKey = iota
	metaKey
)

// IDPrefix is prepended to every generated correlation id.
const IDPrefix = "req-"

// NewID generates a new correlation id.
// Format: req-<uuid-v4>
func NewID() string {
	return IDPrefix + uuid.NewString()
}

// WithID returns a new context carrying the given correlation id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// IDFromContext retrieves the correlation id from the context.
// Returns empty string if none is present.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(idKey).(string)
	return id
}

// EnsureID returns a context that is guaranteed to carry a correlation id,
// along with the id itself. If the context already has one, it is returned
// unchanged; otherwise a fresh id is generated and attached.
//
// This is the request-boundary rule: callers may supply their own id, and
// the gateway generates one when they do not.
func EnsureID(ctx context.Context) (context.Context, string) {
	if id := IDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return WithID(ctx, id), id
}

// WithMeta returns a new context with the key/value pair added to the
// correlation metadata bag. The bag is copied on write so sibling call
// chains never observe each other's additions.
func WithMeta(ctx context.Context, key, value string) context.Context {
	existing := MetaFromContext(ctx)
	meta := make(map[string]string, len(existing)+1)
	for k, v := range existing {
		meta[k] = v
	}
	meta[key] = value
	return context.WithValue(ctx, metaKey, meta)
}

// MetaFromContext retrieves the correlation metadata bag from the context.
// Returns nil if no metadata is present. The returned map must not be
// mutated by callers.
func MetaFromContext(ctx context.Context) map[string]string {
	m, _ := ctx.Value(metaKey).(map[string]string)
	return m
}

// MetaValue retrieves a single metadata value from the context.
// Returns empty string if the key is not present.
func MetaValue(ctx context.Context, key string) string {
	return MetaFromContext(ctx)[key]
}
