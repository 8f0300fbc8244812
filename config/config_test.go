package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("PREDICTGATE_PREDICTION_URL", "https://predict.example.com")
	t.Setenv("PREDICTGATE_TOKEN_SIGNING_KEY", "s3cret")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.ServiceName != "predictgate" {
		t.Errorf("ServiceName = %q, want predictgate", cfg.ServiceName)
	}
	if cfg.TokenIssuer != "predictgate" {
		t.Errorf("TokenIssuer = %q, want ServiceName default", cfg.TokenIssuer)
	}
	if cfg.TokenAudience != "prediction-service" {
		t.Errorf("TokenAudience = %q, want prediction-service", cfg.TokenAudience)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.BaseDelay != 100*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 100ms", cfg.BaseDelay)
	}
	if cfg.BreakerMaxFailures != 5 || cfg.BreakerOpenDuration != 30*time.Second {
		t.Errorf("breaker defaults = %d/%v, want 5/30s", cfg.BreakerMaxFailures, cfg.BreakerOpenDuration)
	}
	if cfg.CacheTTL != 6*time.Hour || cfg.CacheBucketHours != 6 {
		t.Errorf("cache defaults = %v/%d, want 6h/6", cfg.CacheTTL, cfg.CacheBucketHours)
	}
	if cfg.MetricsExporter != "prometheus" {
		t.Errorf("MetricsExporter = %q, want prometheus", cfg.MetricsExporter)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PREDICTGATE_PREDICTION_URL", "https://predict.example.com")
	t.Setenv("PREDICTGATE_TOKEN_SIGNING_KEY", "s3cret")
	t.Setenv("PREDICTGATE_MAX_RETRIES", "5")
	t.Setenv("PREDICTGATE_ATTEMPT_TIMEOUT", "10s")
	t.Setenv("PREDICTGATE_CACHE_TTL", "1h")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.AttemptTimeout != 10*time.Second {
		t.Errorf("AttemptTimeout = %v, want 10s", cfg.AttemptTimeout)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
}

func TestFromEnv_SigningKeyExpansion(t *testing.T) {
	t.Setenv("PREDICTGATE_PREDICTION_URL", "https://predict.example.com")
	t.Setenv("SHARED_SECRET", "from-vault")
	t.Setenv("PREDICTGATE_TOKEN_SIGNING_KEY", "${SHARED_SECRET}")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.TokenSigningKey != "from-vault" {
		t.Errorf("TokenSigningKey = %q, want from-vault", cfg.TokenSigningKey)
	}
}

func TestFromEnv_SigningKeyExpansionMissingVar(t *testing.T) {
	t.Setenv("PREDICTGATE_PREDICTION_URL", "https://predict.example.com")
	t.Setenv("PREDICTGATE_TOKEN_SIGNING_KEY", "${PREDICTGATE_TEST_ABSENT_VAR}")

	_, err := FromEnv()
	if err == nil || !strings.Contains(err.Error(), "PREDICTGATE_TEST_ABSENT_VAR") {
		t.Errorf("FromEnv() error = %v, want missing-variable error naming the var", err)
	}
}

func TestFromEnv_BadDuration(t *testing.T) {
	t.Setenv("PREDICTGATE_PREDICTION_URL", "https://predict.example.com")
	t.Setenv("PREDICTGATE_TOKEN_SIGNING_KEY", "s3cret")
	t.Setenv("PREDICTGATE_BASE_DELAY", "not-a-duration")

	if _, err := FromEnv(); err == nil {
		t.Error("FromEnv() error = nil for bad duration, want error")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		PredictionURL:      "https://predict.example.com",
		TokenSigningKey:    "k",
		BreakerMaxFailures: 5,
		CacheBucketHours:   6,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing url", func(c *Config) { c.PredictionURL = "" }, ErrMissingPredictionURL},
		{"relative url", func(c *Config) { c.PredictionURL = "predict.example.com/api" }, ErrInvalidPredictionURL},
		{"missing key", func(c *Config) { c.TokenSigningKey = "" }, ErrMissingSigningKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}

	bad := valid
	bad.MaxRetries = -1
	if err := bad.Validate(); err == nil {
		t.Error("Validate() error = nil for negative retries, want error")
	}
}

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("CFG_TEST_VALUE", "abc")

	got, err := ExpandEnvStrict("key=${CFG_TEST_VALUE}")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if got != "key=abc" {
		t.Errorf("ExpandEnvStrict() = %q, want key=abc", got)
	}

	got, err = ExpandEnvStrict("cost=$$5")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if got != "cost=$5" {
		t.Errorf("ExpandEnvStrict() = %q, want cost=$5", got)
	}

	if _, err := ExpandEnvStrict("${CFG_TEST_MISSING_ONE} ${CFG_TEST_MISSING_TWO}"); err == nil {
		t.Error("ExpandEnvStrict() error = nil for missing vars, want error")
	}
}
