package service

import (
	"context"
	"sync"

	"nocscan/internal/core/account"
	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/services/scanner/domain"

	"golang.org/x/time/rate"
)

// Svc is a pool of workers sharing one Env. It implements the worker and
// supervisor ports
type Svc struct {
	cfg Config
	env Env

	mu      sync.RWMutex
	workers map[account.ID]*Worker
	order   []account.ID
}

var (
	_ domain.WorkerPort     = (*Svc)(nil)
	_ domain.SupervisorPort = (*Svc)(nil)
)

// New builds an empty pool. Logins across the pool share one token bucket
func New(env Env, cfg Config) *Svc {
	if env.Dialer == nil || env.Tiler == nil || env.Strategies == nil {
		panic("scanner.Service requires a Dialer, a Tiler and a StrategyFactory")
	}
	cfg = withDefaults(cfg)
	env = env.withDefaults()
	if env.Pacer == nil {
		env.Pacer = rate.NewLimiter(rate.Limit(cfg.LoginRPS), cfg.LoginBurst)
	}
	return &Svc{
		cfg:     cfg,
		env:     env,
		workers: make(map[account.ID]*Worker),
	}
}

// Registry exposes the shared per-account tables
func (s *Svc) Registry() *Registry { return s.env.Registry }

// Add registers one worker per account identity
func (s *Svc) Add(acct account.Account) (*Worker, error) {
	id := acct.ID()
	if id == "" {
		return nil, perr.WithField(perr.New(perr.ErrorCodeValidation, "username is required"), "username")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.workers[id]; dup {
		return nil, perr.Conflictf("account %s already has a worker", acct)
	}
	w := NewWorker(acct, s.env.Strategies(acct), s.env, s.cfg)
	s.workers[id] = w
	s.order = append(s.order, id)
	return w, nil
}

// Remove finishes the account's worker and drops its registry entries
func (s *Svc) Remove(name string) error {
	id := account.Key(name)
	s.mu.Lock()
	w, ok := s.workers[id]
	if ok {
		delete(s.workers, id)
		for i, o := range s.order {
			if o == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return perr.NotFoundf("scanner %q not found", name)
	}
	w.finish("removed")
	s.env.Registry.Forget(id)
	return nil
}

// Run starts every worker and blocks until all have finished or ctx is done
func (s *Svc) Run(ctx context.Context) error {
	ws := s.workersInOrder()
	if len(ws) == 0 {
		return perr.InvalidArgf("no accounts configured")
	}

	var wg sync.WaitGroup
	for _, w := range ws {
		wg.Add(1)
		w.OnFinish(func(domain.Status) { wg.Done() })
		if err := w.Start(ctx); err != nil {
			s.env.Log.Warn().Err(err).Str("account", w.acct.Username).Msg("worker not started")
		}
	}
	s.env.Log.Info().Int("workers", len(ws)).Msg("scanner pool running")

	all := make(chan struct{})
	go func() {
		wg.Wait()
		close(all)
	}()

	select {
	case <-all:
		s.env.Log.Info().Msg("every worker finished")
	case <-ctx.Done():
		for _, w := range ws {
			w.finish("shutdown")
		}
		<-all
		s.env.Log.Info().Msg("scanner pool stopped")
	}
	return nil
}

// Worker looks a worker up by (case-insensitive) username
func (s *Svc) Worker(name string) (*Worker, error) {
	s.mu.RLock()
	w, ok := s.workers[account.Key(name)]
	s.mu.RUnlock()
	if !ok {
		return nil, perr.NotFoundf("scanner %q not found", name)
	}
	return w, nil
}

func (s *Svc) workersInOrder() []*Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Worker, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.workers[id])
	}
	return out
}

// List returns every worker's status in insertion order
func (s *Svc) List() []domain.Status {
	ws := s.workersInOrder()
	out := make([]domain.Status, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Status())
	}
	return out
}

// Status returns one worker's status
func (s *Svc) Status(name string) (domain.Status, error) {
	w, err := s.Worker(name)
	if err != nil {
		return domain.Status{}, err
	}
	return w.Status(), nil
}

// Position returns one worker's last accepted position
func (s *Svc) Position(name string) (geo.Position, error) {
	w, err := s.Worker(name)
	if err != nil {
		return geo.Position{}, err
	}
	p, ok := w.Position()
	if !ok {
		return geo.Position{}, perr.NotFoundf("scanner %q has no position yet", name)
	}
	return p, nil
}

// MapObjects returns one worker's last full scan
func (s *Svc) MapObjects(name string) (domain.MapObjects, error) {
	w, err := s.Worker(name)
	if err != nil {
		return domain.MapObjects{}, err
	}
	mo, ok := w.LastMapObjects()
	if !ok {
		return domain.MapObjects{}, perr.NotFoundf("scanner %q has not scanned yet", name)
	}
	return mo, nil
}

// Encounters snapshots one worker's encounter cache
func (s *Svc) Encounters(name string) ([]encounters.Encounter, error) {
	w, err := s.Worker(name)
	if err != nil {
		return nil, err
	}
	return w.Encounters(), nil
}

// SupplyToken hands a solved challenge token to the account's worker
func (s *Svc) SupplyToken(name, token string) error {
	w, err := s.Worker(name)
	if err != nil {
		return err
	}
	if err := s.env.Registry.Challenges.SupplyToken(w.id, token); err != nil {
		return perr.WithOp(err, "scanner.supply_token")
	}
	w.logger().Info().Msg("challenge token supplied")
	return nil
}

// Finish stops one worker
func (s *Svc) Finish(name string) error {
	w, err := s.Worker(name)
	if err != nil {
		return err
	}
	w.Finish()
	return nil
}
