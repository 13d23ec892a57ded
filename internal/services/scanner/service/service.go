// Package service runs scan workers: one state machine per account, sharing
// a registry of per-account tables and a pool-wide login limiter
package service

import (
	"context"
	"time"

	"nocscan/internal/platform/logger"
	ptime "nocscan/internal/platform/time"
	"nocscan/internal/services/scanner/domain"
)

// Config carries the worker timing and threshold knobs
type Config struct {
	ScanDelay        time.Duration
	InitDelay        time.Duration
	SpeedbanRetry    time.Duration
	Runtime          time.Duration
	SoftbanThreshold int
	ChallengeRetries int
	LoginRPS         float64
	LoginBurst       int
}

// Defaults mirror the remote service's expectations
const (
	DefaultScanDelay        = 30 * time.Second
	DefaultInitDelay        = 15 * time.Second
	DefaultSpeedbanRetry    = 60 * time.Second
	DefaultChallengeRetries = 10
	DefaultLoginRPS         = 0.5
	DefaultLoginBurst       = 1
)

func withDefaults(cfg Config) Config {
	if cfg.ScanDelay <= 0 {
		cfg.ScanDelay = DefaultScanDelay
	}
	if cfg.InitDelay <= 0 {
		cfg.InitDelay = DefaultInitDelay
	}
	if cfg.SpeedbanRetry <= 0 {
		cfg.SpeedbanRetry = DefaultSpeedbanRetry
	}
	if cfg.ChallengeRetries <= 0 {
		cfg.ChallengeRetries = DefaultChallengeRetries
	}
	if cfg.LoginRPS <= 0 {
		cfg.LoginRPS = DefaultLoginRPS
	}
	if cfg.LoginBurst <= 0 {
		cfg.LoginBurst = DefaultLoginBurst
	}
	return cfg
}

// Pacer gates logins; *rate.Limiter satisfies it
type Pacer interface {
	Wait(ctx context.Context) error
}

// Env is the set of collaborators every worker in a pool shares.
// Onboarding, Rotator, Notifier, KV, Sink and Proxies are optional
type Env struct {
	Dialer     domain.Dialer
	Tiler      domain.Tiler
	Strategies domain.StrategyFactory

	Onboarding domain.Onboarding
	Rotator    domain.Rotator
	Notifier   domain.Notifier
	KV         domain.KV
	Sink       domain.SightingSink
	Proxies    domain.ProxyPool

	Registry *Registry
	Pacer    Pacer
	Clock    ptime.Clock
	Log      *logger.Logger
}

func (e Env) withDefaults() Env {
	e.Clock = ptime.Or(e.Clock)
	if e.Registry == nil {
		e.Registry = NewRegistry(nil, nil, e.Clock)
	}
	if e.Log == nil {
		e.Log = logger.Named("scanner")
	}
	return e
}
