package paneflow

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/connectkit/paneflow/callback"
	"github.com/connectkit/paneflow/internal/schema"
	"github.com/connectkit/paneflow/session"
)

// Builder defines a public type used by paneflow APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	provider  Provider
	eventSink EventSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProvider describes the withprovider operation and its observable behavior.
//
// WithProvider may return an error when input validation, dependency calls, or security checks fail.
// WithProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithProvider(p Provider) *Builder {
	b.provider = p
	return b
}

// WithEventSink describes the witheventsink operation and its observable behavior.
//
// WithEventSink may return an error when input validation, dependency calls, or security checks fail.
// WithEventSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, errors.New("provider required")
	}

	// -------- SCHEMA REGISTRY --------
	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, err
	}

	// -------- FLOW STORE --------
	store := session.NewStore(
		b.redis,
		cfg.Session.RedisPrefix,
		cfg.Flow.SlidingExpiration,
	)

	engine := &Engine{
		config:    cfg,
		provider:  b.provider,
		schemas:   registry,
		flowStore: store,
	}

	engine.challengeStore = newTwoFactorChallengeStore(b.redis)
	if cfg.Security.EnableSubmitThrottle {
		engine.submitLimiter = newSubmitLimiter(b.redis, cfg.Security)
	}
	engine.events = newEventDispatcher(cfg.Events, b.eventSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	if len(cfg.Redirect.StateSecret) > 0 {
		cm, err := callback.NewManager(callback.Config{
			Secret:   cloneBytes(cfg.Redirect.StateSecret),
			Issuer:   cfg.Redirect.Issuer,
			Audience: cfg.Redirect.Audience,
			TTL:      cfg.Redirect.StateTTL,
			Leeway:   cfg.Redirect.Leeway,
		})
		if err != nil {
			return nil, err
		}
		engine.callbackManager = cm
	}

	b.built = true

	return engine, nil
}
