// Package module wires the scanner pool and exposes its ports
package module

import (
	"context"

	"nocscan/internal/adapters/circuit"
	"nocscan/internal/adapters/notify"
	"nocscan/internal/adapters/onboarding"
	"nocscan/internal/adapters/proxy"
	"nocscan/internal/adapters/simtransport"
	"nocscan/internal/adapters/strategy"
	"nocscan/internal/adapters/tiles"
	"nocscan/internal/core/account"
	"nocscan/internal/core/challenge"
	"nocscan/internal/core/speedgate"
	"nocscan/internal/modkit"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/platform/logger"
	phttp "nocscan/internal/platform/net/http"
	"nocscan/internal/services/scanner/domain"
	"nocscan/internal/services/scanner/repo"
	"nocscan/internal/services/scanner/service"

	"github.com/paulmach/orb/maptile"
)

// Module defines the scanner module
type Module struct {
	opts  Options
	svc   *service.Svc
	ports Ports
}

var _ modkit.Runner = (*Module)(nil)

// New loads the account roster and builds one worker per account
func New(ctx context.Context, deps modkit.Deps, overrides Options) (*Module, error) {
	opts := FromConfig(deps.Cfg).merge(overrides)

	roster, err := LoadAccounts(opts.AccountsFile)
	if err != nil {
		return nil, err
	}
	return NewWithAccounts(ctx, deps, opts, roster)
}

// NewWithAccounts builds the pool from an already parsed roster; opts are used as given
func NewWithAccounts(ctx context.Context, deps modkit.Deps, opts Options, roster AccountsFile) (*Module, error) {
	st := deps.StoreOrEmpty()
	log := logger.Named("scanner")

	kv, err := repo.NewKV(ctx, opts.KVBackend, st)
	if err != nil {
		return nil, err
	}
	pools, err := proxy.New(roster.ProxyPools)
	if err != nil {
		return nil, err
	}

	dialer := opts.Dialer
	if dialer == nil {
		if !opts.DryRun {
			return nil, perr.InvalidArgf("no transport configured; set NOCSCAN_DRY_RUN=true to use the simulator")
		}
		dialer = simtransport.NewDialer(simtransport.Options{
			ChallengeEvery: opts.SimChallengeEvery,
			Seed:           opts.SimSeed,
		})
	}

	env := service.Env{
		Dialer:     dialer,
		Tiler:      tiles.New(maptile.Zoom(opts.CellZoom), maptile.Zoom(opts.RegionZoom), opts.CellRing),
		Strategies: spiralFactory(opts),
		Onboarding: onboarding.New(nil),
		Notifier:   notify.New(opts.NotifyWebhook, opts.NotifyTimeout),
		KV:         kv,
		Proxies:    pools,
		Registry: service.NewRegistry(
			speedgate.New(speedgate.Options{MaxSpeedKmh: opts.MaxSpeedKmh}),
			challenge.New(nil),
			nil,
		),
		Log: log,
	}
	if anyCircuit(roster.Accounts) {
		env.Rotator = circuit.NewTor(opts.CircuitTimeout)
	}
	// a nil *Sightings in the interface would read as configured
	if opts.RecordSightings && st.CH != nil {
		env.Sink = repo.NewSightings(st.CH)
	}

	svc := service.New(env, opts.serviceConfig())
	for _, a := range roster.Accounts {
		if _, err := svc.Add(a); err != nil {
			return nil, err
		}
	}
	log.Info().
		Int("accounts", len(roster.Accounts)).
		Str("kv", opts.KVBackend).
		Bool("dry_run", opts.DryRun).
		Bool("sightings", env.Sink != nil).
		Msg("scanner module ready")

	return &Module{
		opts:  opts,
		svc:   svc,
		ports: Ports{Worker: svc, Supervisor: svc},
	}, nil
}

func spiralFactory(opts Options) domain.StrategyFactory {
	return func(account.Account) domain.Strategy {
		return strategy.NewSpiral(strategy.SpiralOptions{
			Centre: opts.Start,
			StepM:  opts.StepM,
			Rings:  opts.Rings,
			Loop:   opts.Loop,
		})
	}
}

func anyCircuit(accts []account.Account) bool {
	for _, a := range accts {
		if a.HasCircuit() {
			return true
		}
	}
	return false
}

// Name returns the module name
func (m *Module) Name() string { return "scanner" }

// Ports returns the module ports (Worker, Supervisor)
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; the supervisor API lives in its own module
func (m *Module) MountRoutes(phttp.Router) {}

// Run blocks until every worker has finished or ctx is done
func (m *Module) Run(ctx context.Context) error { return m.svc.Run(ctx) }
