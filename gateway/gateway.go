package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mspops/predictgate/auth"
	"github.com/mspops/predictgate/cache"
	"github.com/mspops/predictgate/correlation"
	"github.com/mspops/predictgate/errstats"
	"github.com/mspops/predictgate/fallback"
	"github.com/mspops/predictgate/mapping"
	"github.com/mspops/predictgate/metrics"
	"github.com/mspops/predictgate/observe"
	"github.com/mspops/predictgate/resilience"
)

// ErrNilCaller is returned by New when no Caller is configured.
var ErrNilCaller = errors.New("gateway: caller is required")

// serviceName labels the downstream dependency in error records.
const serviceName = "prediction-service"

// Caller performs one attempt against the external prediction service.
// token may be empty when no token source is configured. The caller
// should return *resilience.StatusError for HTTP-level failures so the
// retry predicate and error aggregator classify them correctly.
type Caller func(ctx context.Context, req mapping.ExternalRequest, token string) (mapping.ExternalResponse, error)

// Config assembles a Gateway. Caller is required; every other component
// has a working default.
type Config struct {
	// Caller performs the actual remote call. Required.
	Caller Caller

	// Endpoint labels the remote endpoint in error records.
	// Default: "/predict"
	Endpoint string

	// Mappers resolves the per-model mappers.
	// Default: mapping.DefaultRegistry()
	Mappers *mapping.Registry

	// Fallbacks serves degraded responses. Default: empty provider
	// (unregistered categories yield generic entries).
	Fallbacks *fallback.Provider

	// Cache stores successful predictions. Default: in-memory cache.
	Cache cache.Cache

	// CachePolicy sets per-model TTLs. Default: cache.DefaultPolicy()
	CachePolicy cache.Policy

	// DisableCache turns prediction caching off entirely.
	DisableCache bool

	// BucketHours is the cache-key time bucket width passed to mappers.
	// Default: mapper default (6)
	BucketHours int

	// Tokens mints outbound service tokens. Optional; without it calls
	// carry an empty token.
	Tokens *auth.TokenSource

	// Retry is the retry policy for remote calls.
	// Default: the external-service preset.
	Retry resilience.Policy

	// Breaker configures the circuit breaker guarding the service.
	// Default: name "prediction-service" with breaker defaults.
	Breaker resilience.CircuitBreakerConfig

	// Errors aggregates failures for health grading.
	// Default: a fresh aggregator with default retention.
	Errors *errstats.Aggregator

	// Metrics records counters and histograms. Optional.
	Metrics *metrics.Registry

	// Tracker keeps the short-window request store. Optional.
	Tracker *metrics.Tracker

	// Tracer starts request spans. Default: no-op tracer.
	Tracer observe.Tracer

	// Logger is the structured logger. Default: no-op logger.
	Logger observe.Logger
}

// Gateway is the resilient front door to the external prediction
// service: mapping, caching, retry, circuit breaking, fallback and
// error accounting behind one Invoke call.
type Gateway struct {
	config   Config
	retry    resilience.Policy
	executor *resilience.Executor
	breaker  *resilience.CircuitBreaker
	errors   *errstats.Aggregator
}

// New assembles a gateway, applying defaults for every component the
// config leaves unset.
func New(config Config) (*Gateway, error) {
	if config.Caller == nil {
		return nil, ErrNilCaller
	}
	if config.Endpoint == "" {
		config.Endpoint = "/predict"
	}
	if config.Mappers == nil {
		config.Mappers = mapping.DefaultRegistry()
	}
	if config.Fallbacks == nil {
		config.Fallbacks = fallback.NewProvider()
	}
	if config.Cache == nil {
		config.Cache = cache.NewMemoryCache()
	}
	switch {
	case config.DisableCache:
		config.CachePolicy = cache.NoCachePolicy()
	case !config.CachePolicy.ShouldCache():
		config.CachePolicy = cache.DefaultPolicy()
	}
	if config.Errors == nil {
		config.Errors = errstats.NewAggregator(errstats.AggregatorConfig{})
	}
	if config.Tracer == nil {
		config.Tracer = observe.NopTracer()
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	g := &Gateway{
		config: config,
		errors: config.Errors,
	}

	retryPolicy := config.Retry
	if retryPolicy.MaxRetries == 0 && retryPolicy.BaseDelay == 0 {
		retryPolicy, _ = resilience.Preset(resilience.PresetExternalServiceDefault)
	}
	retryPolicy.Label = serviceName
	retryPolicy.Logger = config.Logger
	userOnRetry := retryPolicy.OnRetry
	retryPolicy.OnRetry = func(err error, attempt int) {
		g.onRetry(err, attempt)
		if userOnRetry != nil {
			userOnRetry(err, attempt)
		}
	}

	breakerCfg := config.Breaker
	if breakerCfg.Name == "" {
		breakerCfg.Name = serviceName
	}
	userOnState := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		g.onBreakerState(name, from, to)
		if userOnState != nil {
			userOnState(name, from, to)
		}
	}

	g.retry = retryPolicy
	g.breaker = resilience.NewCircuitBreaker(breakerCfg)
	g.executor = resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(retryPolicy)),
		resilience.WithCircuitBreaker(g.breaker),
	)
	return g, nil
}

// Breaker returns the circuit breaker guarding the prediction service.
func (g *Gateway) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

// Errors returns the error aggregator.
func (g *Gateway) Errors() *errstats.Aggregator {
	return g.errors
}

// SeedFallbacks registers startup fallback payloads per model and then
// verifies every known category is covered.
func (g *Gateway) SeedFallbacks(seeds map[mapping.ModelType]any) error {
	for model, payload := range seeds {
		g.config.Fallbacks.SetWithReason(categoryFor(model), payload,
			"prediction service unavailable, serving configured fallback")
	}
	return g.config.Fallbacks.VerifyRegistered(fallback.Categories()...)
}

// Result is the outcome of one Invoke: either a live (or cached)
// prediction or a fallback entry, never neither.
type Result struct {
	// Prediction is the normalized result; nil when a fallback was
	// served.
	Prediction *mapping.InternalResult

	// Fallback is the degraded substitute; nil when a real prediction
	// was produced.
	Fallback *fallback.Entry

	// FromCache marks predictions served from the cache.
	FromCache bool

	// CorrelationID ties the result to logs and error records.
	CorrelationID string

	// Duration is the total time Invoke took.
	Duration time.Duration
}

// IsFallback reports whether the result is a degraded substitute.
func (r Result) IsFallback() bool { return r.Fallback != nil }

// Invoke requests a prediction for the record. Record-validation
// failures return an error: they are caller bugs. Downstream failures
// never do; the gateway degrades to the registered fallback instead.
func (g *Gateway) Invoke(ctx context.Context, model mapping.ModelType, record any, opts mapping.Options) (Result, error) {
	start := time.Now()
	ctx, id := correlation.EnsureID(ctx)
	if opts.BucketHours == 0 {
		opts.BucketHours = g.config.BucketHours
	}

	meta := observe.RequestMeta{
		CorrelationID: id,
		Model:         model.String(),
		Operation:     "invoke",
	}
	log := g.config.Logger.WithRequest(meta)
	ctx, span := g.config.Tracer.StartSpan(ctx, meta)

	if g.config.Tracker != nil {
		g.config.Tracker.StartRequest(id, model.String(), "invoke")
	}

	result, err := g.invoke(ctx, model, record, opts, id, log)
	result.CorrelationID = id
	result.Duration = time.Since(start)

	outcome := outcomeOf(result, err)
	if g.config.Tracker != nil {
		g.config.Tracker.EndRequest(id, outcome)
	}
	if g.config.Metrics != nil {
		g.config.Metrics.RecordRequest(ctx, model.String(), "invoke", outcome, result.Duration)
	}
	span.End(err)
	return result, err
}

func (g *Gateway) invoke(ctx context.Context, model mapping.ModelType, record any, opts mapping.Options, id string, log observe.Logger) (Result, error) {
	mapper, err := g.config.Mappers.Lookup(model)
	if err != nil {
		return Result{}, err
	}

	// Record validation fails loud: a bad record is a caller bug, not a
	// downstream outage.
	req, err := mapper.ToExternal(record, opts)
	if err != nil {
		log.Error(ctx, "record rejected by mapper",
			observe.Field{Key: "error", Value: err.Error()})
		g.errors.Record(ctx, err, g.errContext("map_request", 0))
		return Result{}, err
	}
	req.CorrelationID = id

	key, err := mapper.CacheKey(record, opts)
	if err == nil {
		if entry, ok := g.config.Cache.Get(ctx, key); ok {
			if cached, ok := entry.Value.(mapping.InternalResult); ok {
				g.recordCache(ctx, model, true)
				log.Debug(ctx, "prediction served from cache",
					observe.Field{Key: "cache_key", Value: key})
				return Result{Prediction: &cached, FromCache: true}, nil
			}
		}
		g.recordCache(ctx, model, false)
	}

	resp, callErr := g.call(ctx, req)
	if callErr == nil {
		prediction, mapErr := mapper.FromExternal(resp, opts)
		if mapErr == nil {
			g.storeResult(ctx, model, key, prediction, log)
			log.Info(ctx, "prediction served",
				observe.Field{Key: "value", Value: prediction.Value},
				observe.Field{Key: "quality", Value: string(prediction.Quality)})
			return Result{Prediction: &prediction}, nil
		}
		// The service answered with an unusable body: degrade like any
		// other downstream failure.
		callErr = mapErr
	}

	g.errors.Record(ctx, callErr, g.errContext("invoke", g.maxRetries()))
	class := resilience.Classify(callErr).String()
	category := categoryFor(model)
	if g.config.Metrics != nil {
		g.config.Metrics.RecordFallback(ctx, string(category), class)
	}
	log.Warn(ctx, "serving fallback",
		observe.Field{Key: "error", Value: callErr.Error()},
		observe.Field{Key: "error_class", Value: class})

	entry := g.config.Fallbacks.Get(ctx, category)
	return Result{Fallback: &entry}, nil
}

// call runs the remote attempt through retry and circuit breaker,
// minting a token per attempt so a near-expiry token cannot outlive a
// long backoff.
func (g *Gateway) call(ctx context.Context, req mapping.ExternalRequest) (mapping.ExternalResponse, error) {
	var resp mapping.ExternalResponse
	err := g.executor.Execute(ctx, func(ctx context.Context) error {
		token, err := g.token(ctx)
		if err != nil {
			return err
		}
		r, err := g.config.Caller(ctx, req, token)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

func (g *Gateway) token(ctx context.Context) (string, error) {
	if g.config.Tokens == nil {
		return "", nil
	}
	token, err := g.config.Tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("gateway: mint service token: %w", err)
	}
	return token, nil
}

func (g *Gateway) storeResult(ctx context.Context, model mapping.ModelType, key string, prediction mapping.InternalResult, log observe.Logger) {
	if key != "" && g.config.CachePolicy.ShouldCache() {
		ttl := g.config.CachePolicy.TTLFor(model.String())
		if err := g.config.Cache.Set(ctx, key, prediction, ttl); err != nil {
			log.Warn(ctx, "cache store failed",
				observe.Field{Key: "error", Value: err.Error()})
		}
	}
	// Refresh the fallback with the last known good prediction so the
	// next outage serves something recent.
	g.config.Fallbacks.SetWithReason(categoryFor(model), prediction,
		"prediction service unavailable, serving last known good prediction")
}

func (g *Gateway) recordCache(ctx context.Context, model mapping.ModelType, hit bool) {
	if g.config.Metrics != nil {
		g.config.Metrics.RecordCache(ctx, model.String(), hit)
	}
}

// onRetry runs between attempts; the per-request context is not
// available inside the hook, so recording uses a background context.
func (g *Gateway) onRetry(err error, attempt int) {
	ctx := context.Background()
	if g.config.Metrics != nil {
		g.config.Metrics.RecordRetry(ctx, serviceName, resilience.Classify(err).String())
	}
	g.errors.Record(ctx, err, g.errContext("invoke", attempt))
}

func (g *Gateway) onBreakerState(name string, from, to resilience.State) {
	ctx := context.Background()
	if g.config.Metrics != nil {
		g.config.Metrics.SetBreakerState(ctx, name, int64(to))
	}
	g.config.Logger.Warn(ctx, "circuit breaker state changed",
		observe.Field{Key: "breaker", Value: name},
		observe.Field{Key: "from", Value: from.String()},
		observe.Field{Key: "to", Value: to.String()})
}

func (g *Gateway) errContext(operation string, attempt int) errstats.Context {
	return errstats.Context{
		Service:    serviceName,
		Endpoint:   g.config.Endpoint,
		Operation:  operation,
		Attempt:    attempt,
		MaxRetries: g.maxRetries(),
	}
}

func (g *Gateway) maxRetries() int {
	return g.retry.MaxRetries
}

func outcomeOf(result Result, err error) metrics.Outcome {
	switch {
	case err != nil:
		return metrics.OutcomeError
	case result.IsFallback():
		return metrics.OutcomeFallback
	case result.FromCache:
		return metrics.OutcomeCached
	default:
		return metrics.OutcomeSuccess
	}
}

func categoryFor(model mapping.ModelType) fallback.Category {
	return fallback.Category(model.String())
}
