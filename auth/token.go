package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token minting.
var (
	ErrMissingSigningKey = errors.New("auth: signing key is required")
	ErrMissingIssuer     = errors.New("auth: issuer is required")
	ErrMissingAudience   = errors.New("auth: audience is required")
)

// TokenConfig configures the outbound service-token source.
type TokenConfig struct {
	// SigningKey is the HS256 shared secret with the prediction service.
	SigningKey []byte

	// Issuer is the iss claim identifying this gateway.
	Issuer string

	// Audience is the aud claim naming the prediction service.
	Audience string

	// Subject is the sub claim; identifies the calling workload.
	// Default: the Issuer value.
	Subject string

	// TTL is how long each minted token is valid.
	// Default: 15 minutes
	TTL time.Duration

	// RefreshMargin renews the cached token this long before expiry.
	// Default: 1 minute
	RefreshMargin time.Duration
}

// Validate checks the config for required fields.
func (c TokenConfig) Validate() error {
	if len(c.SigningKey) == 0 {
		return ErrMissingSigningKey
	}
	if c.Issuer == "" {
		return ErrMissingIssuer
	}
	if c.Audience == "" {
		return ErrMissingAudience
	}
	return nil
}

// TokenSource mints and caches signed service tokens for outbound calls
// to the prediction service. Tokens are reused until close to expiry;
// minting is cheap but callers on the hot path should not pay for it per
// request.
type TokenSource struct {
	config TokenConfig

	mu      sync.Mutex
	token   string
	expires time.Time

	// now is swapped in tests.
	now func() time.Time
}

// NewTokenSource creates a token source with defaults applied.
func NewTokenSource(config TokenConfig) (*TokenSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Subject == "" {
		config.Subject = config.Issuer
	}
	if config.TTL <= 0 {
		config.TTL = 15 * time.Minute
	}
	if config.RefreshMargin <= 0 {
		config.RefreshMargin = time.Minute
	}
	return &TokenSource{
		config: config,
		now:    time.Now,
	}, nil
}

// Token returns a valid signed token, minting a fresh one when the
// cached token is absent or within the refresh margin of expiry.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires.Add(-s.config.RefreshMargin)) {
		return s.token, nil
	}

	expires := now.Add(s.config.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   s.config.Subject,
		Audience:  jwt.ClaimStrings{s.config.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.SigningKey)
	if err != nil {
		return "", fmt.Errorf("auth: sign service token: %w", err)
	}

	s.token = signed
	s.expires = expires
	return signed, nil
}

// Invalidate drops the cached token so the next Token call mints fresh.
// Used after the prediction service rejects a token as expired or
// revoked.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expires = time.Time{}
	s.mu.Unlock()
}
