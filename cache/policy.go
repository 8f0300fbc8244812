package cache

import "time"

// Policy configures prediction caching per model.
type Policy struct {
	// DefaultTTL applies to models without a per-model override.
	// If zero, caching is disabled by default.
	DefaultTTL time.Duration

	// MaxTTL caps every TTL. If zero, no maximum is enforced.
	MaxTTL time.Duration

	// PerModel overrides the TTL for specific model names.
	PerModel map[string]time.Duration
}

// DefaultPolicy returns the standard prediction caching policy.
// Predictions are considered fresh for the mapper's cache-key time
// bucket, so the TTL matches the default bucket width.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 6 * time.Hour,
		MaxTTL:     24 * time.Hour,
	}
}

// NoCachePolicy disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache reports whether this policy caches anything at all.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0 || len(p.PerModel) > 0
}

// TTLFor returns the effective TTL for a model, applying the per-model
// override and clamping to MaxTTL.
func (p Policy) TTLFor(model string) time.Duration {
	ttl := p.DefaultTTL
	if override, ok := p.PerModel[model]; ok {
		ttl = override
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
