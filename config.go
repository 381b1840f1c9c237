package paneflow

import (
	"errors"
	"time"
)

// Config defines a public type used by paneflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Flow      FlowConfig
	TwoFactor TwoFactorConfig
	Redirect  RedirectConfig
	Session   SessionConfig
	Events    EventsConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
}

/*
====================================
FLOW CONFIG
====================================
*/

// FlowConfig defines a public type used by paneflow APIs.
//
// FlowConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FlowConfig struct {
	TTL               time.Duration
	SlidingExpiration bool
	LoadingMessage    string
}

/*
====================================
TWO FACTOR CONFIG
====================================
*/

// TwoFactorConfig defines a public type used by paneflow APIs.
//
// TwoFactorConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TwoFactorConfig struct {
	ChallengeTTL time.Duration
	MaxAttempts  int
}

/*
====================================
REDIRECT CONFIG
====================================
*/

// RedirectConfig defines a public type used by paneflow APIs.
//
// RedirectConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RedirectConfig struct {
	StateSecret []byte
	StateTTL    time.Duration
	Issuer      string
	Audience    string
	Leeway      time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by paneflow APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
}

// EventsConfig defines a public type used by paneflow APIs.
//
// EventsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by paneflow APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by paneflow APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	EnableSubmitThrottle   bool
	MaxSubmitAttempts      int
	SubmitCooldownDuration time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration [New] starts from. Callers adjust
// the copy and pass it back through [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Flow: FlowConfig{
			TTL:               30 * time.Minute,
			SlidingExpiration: true,
			LoadingMessage:    "Connecting your account...",
		},
		TwoFactor: TwoFactorConfig{
			ChallengeTTL: 5 * time.Minute,
			MaxAttempts:  5,
		},
		Redirect: RedirectConfig{
			StateTTL: 10 * time.Minute,
			Issuer:   "paneflow",
			Leeway:   30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "pf",
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			EnableSubmitThrottle:   true,
			MaxSubmitAttempts:      30,
			SubmitCooldownDuration: time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Redirect.StateSecret = cloneBytes(cfg.Redirect.StateSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if c.Flow.TTL <= 0 {
		return errors.New("Flow TTL must be positive")
	}
	if c.TwoFactor.ChallengeTTL <= 0 {
		return errors.New("TwoFactor ChallengeTTL must be positive")
	}
	if c.TwoFactor.MaxAttempts <= 0 {
		return errors.New("TwoFactor MaxAttempts must be positive")
	}
	if len(c.Redirect.StateSecret) > 0 {
		if len(c.Redirect.StateSecret) < 32 {
			return errors.New("Redirect StateSecret must be at least 32 bytes")
		}
		if c.Redirect.StateTTL <= 0 {
			return errors.New("Redirect StateTTL must be positive")
		}
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Security.EnableSubmitThrottle {
		if c.Security.MaxSubmitAttempts <= 0 {
			return errors.New("Security MaxSubmitAttempts must be positive when throttling is enabled")
		}
		if c.Security.SubmitCooldownDuration <= 0 {
			return errors.New("Security SubmitCooldownDuration must be positive when throttling is enabled")
		}
	}
	return nil
}
