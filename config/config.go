package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Sentinel errors for config validation.
var (
	ErrMissingPredictionURL = errors.New("config: prediction service URL is required")
	ErrInvalidPredictionURL = errors.New("config: prediction service URL is invalid")
	ErrMissingSigningKey    = errors.New("config: token signing key is required")
)

// Config carries every tunable of the gateway. Zero values mean "use the
// documented default" wherever one exists; Validate rejects the rest.
type Config struct {
	// ServiceName identifies this gateway in telemetry.
	// Default: "predictgate"
	ServiceName string

	// ServiceVersion is stamped on telemetry resources.
	ServiceVersion string

	// PredictionURL is the base URL of the external prediction service.
	// Required.
	PredictionURL string

	// TokenSigningKey is the HS256 shared secret for outbound service
	// tokens. Supports strict ${VAR} expansion. Required.
	TokenSigningKey string

	// TokenIssuer is the iss claim of minted tokens.
	// Default: ServiceName
	TokenIssuer string

	// TokenAudience is the aud claim of minted tokens.
	// Default: "prediction-service"
	TokenAudience string

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3
	MaxRetries int

	// BaseDelay is the first retry backoff delay.
	// Default: 100ms
	BaseDelay time.Duration

	// AttemptTimeout bounds each individual attempt.
	// Default: 30s
	AttemptTimeout time.Duration

	// BreakerMaxFailures opens the circuit after this many consecutive
	// failures. Default: 5
	BreakerMaxFailures int

	// BreakerOpenDuration is how long the circuit stays open before a
	// probe is allowed. Default: 30s
	BreakerOpenDuration time.Duration

	// CacheTTL is how long successful predictions stay cached.
	// Default: 6h
	CacheTTL time.Duration

	// CacheBucketHours is the cache-key time bucket width.
	// Default: 6
	CacheBucketHours int

	// TracingExporter selects the trace exporter (stdout, otlp, none).
	// Default: "none"
	TracingExporter string

	// MetricsExporter selects the metrics exporter (prometheus, otlp,
	// stdout, none). Default: "prometheus"
	MetricsExporter string

	// LogLevel sets the minimum log level (debug, info, warn, error).
	// Default: "info"
	LogLevel string
}

// envPrefix namespaces every environment variable read by FromEnv.
const envPrefix = "PREDICTGATE_"

// FromEnv builds a Config from PREDICTGATE_* environment variables,
// applying defaults and strict ${VAR} expansion on secret-bearing
// values.
func FromEnv() (Config, error) {
	cfg := Config{
		ServiceName:     envStr("SERVICE_NAME", "predictgate"),
		ServiceVersion:  envStr("SERVICE_VERSION", ""),
		PredictionURL:   envStr("PREDICTION_URL", ""),
		TokenSigningKey: envStr("TOKEN_SIGNING_KEY", ""),
		TokenIssuer:     envStr("TOKEN_ISSUER", ""),
		TokenAudience:   envStr("TOKEN_AUDIENCE", "prediction-service"),
		TracingExporter: envStr("TRACING_EXPORTER", "none"),
		MetricsExporter: envStr("METRICS_EXPORTER", "prometheus"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.MaxRetries, err = envInt("MAX_RETRIES", 3); err != nil {
		return Config{}, err
	}
	if cfg.CacheBucketHours, err = envInt("CACHE_BUCKET_HOURS", 6); err != nil {
		return Config{}, err
	}
	if cfg.BreakerMaxFailures, err = envInt("BREAKER_MAX_FAILURES", 5); err != nil {
		return Config{}, err
	}
	if cfg.BaseDelay, err = envDur("BASE_DELAY", 100*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.AttemptTimeout, err = envDur("ATTEMPT_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.BreakerOpenDuration, err = envDur("BREAKER_OPEN_DURATION", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = envDur("CACHE_TTL", 6*time.Hour); err != nil {
		return Config{}, err
	}

	// The signing key commonly references another variable, e.g.
	// PREDICTGATE_TOKEN_SIGNING_KEY='${PREDICTION_SHARED_SECRET}'.
	if cfg.TokenSigningKey != "" {
		if cfg.TokenSigningKey, err = ExpandEnvStrict(cfg.TokenSigningKey); err != nil {
			return Config{}, fmt.Errorf("config: expand TOKEN_SIGNING_KEY: %w", err)
		}
	}

	if cfg.TokenIssuer == "" {
		cfg.TokenIssuer = cfg.ServiceName
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	if c.PredictionURL == "" {
		return ErrMissingPredictionURL
	}
	u, err := url.Parse(c.PredictionURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPredictionURL, c.PredictionURL)
	}
	if c.TokenSigningKey == "" {
		return ErrMissingSigningKey
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.BreakerMaxFailures < 1 {
		return fmt.Errorf("config: breaker max failures must be >= 1, got %d", c.BreakerMaxFailures)
	}
	if c.CacheBucketHours < 1 {
		return fmt.Errorf("config: cache bucket hours must be >= 1, got %d", c.CacheBucketHours)
	}
	return nil
}

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
	}
	return n, nil
}

func envDur(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
	}
	return d, nil
}
