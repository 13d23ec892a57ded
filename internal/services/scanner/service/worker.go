package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"nocscan/internal/core/account"
	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
	"nocscan/internal/core/softban"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/platform/logger"
	"nocscan/internal/services/scanner/domain"

	"github.com/google/uuid"
)

// next is what a step hands back to the loop: the state to run and when.
// A stalled next keeps the state but arms no timer
type next struct {
	state domain.State
	delay time.Duration
	stall bool
}

func after(s domain.State, d time.Duration) next { return next{state: s, delay: d} }

func stallAt(s domain.State) next { return next{state: s, stall: true} }

var terminal = next{state: domain.StateFinished}

type stepFunc func(ctx context.Context) next

// Worker drives one account through login, init and the scan loop.
// All steps run on the worker goroutine; the accessors are safe from anywhere
type Worker struct {
	acct  account.Account
	id    account.ID
	cfg   Config
	env   Env
	strat domain.Strategy
	cache *encounters.Cache
	steps map[domain.State]stepFunc

	// owned by the worker goroutine
	client         domain.Client
	pending        *geo.Position
	resume         domain.State
	challengeTries int

	mu         sync.RWMutex
	state      domain.State
	authed     bool
	stalled    bool
	runID      string
	log        *logger.Logger
	restarts   int
	reason     string
	pos        *geo.Position
	last       *domain.MapObjects
	softban    *softban.Detector
	startedAt  time.Time
	lastScanAt time.Time
	callbacks  []func(domain.Status)
	budget     *time.Timer

	started      atomic.Bool
	finished     atomic.Bool
	shutdownOnce sync.Once
	done         chan struct{}

	hook func(domain.State)
}

// NewWorker builds an idle worker; Start begins the run
func NewWorker(acct account.Account, strat domain.Strategy, env Env, cfg Config) *Worker {
	if env.Dialer == nil || env.Tiler == nil {
		panic("scanner.Worker requires a Dialer and a Tiler")
	}
	if strat == nil {
		panic("scanner.Worker requires a Strategy")
	}
	env = env.withDefaults()
	cfg = withDefaults(cfg)

	w := &Worker{
		acct:    acct,
		id:      acct.ID(),
		cfg:     cfg,
		env:     env,
		strat:   strat,
		cache:   env.Registry.Encounters(acct.ID()),
		state:   domain.StateIdle,
		softban: softban.New(cfg.SoftbanThreshold),
		done:    make(chan struct{}),
	}
	w.log = logger.ForAccount(acct.Username, "")
	w.steps = map[domain.State]stepFunc{
		domain.StateLoggingIn:      w.login,
		domain.StateAuthenticated:  w.placeInitial,
		domain.StateInitStep1:      w.initStep1,
		domain.StateInitStep2:      w.initStep2,
		domain.StateScanning:       w.performScan,
		domain.StateCaptchaPending: w.resumeAfterChallenge,
	}
	return w
}

// Start launches the worker goroutine and arms the runtime budget
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return perr.Conflictf("worker %s already started", w.acct)
	}
	if w.finished.Load() {
		return perr.Conflictf("worker %s already finished", w.acct)
	}

	w.mu.Lock()
	w.startedAt = w.env.Clock.Now()
	if w.cfg.Runtime > 0 {
		w.budget = time.AfterFunc(w.cfg.Runtime, func() { w.finish("runtime budget exhausted") })
	}
	w.mu.Unlock()

	w.newRun()
	w.logger().Info().Dur("runtime", w.cfg.Runtime).Msg("worker starting")

	go w.loop(ctx)
	return nil
}

// loop owns the single live timer. Closing done wakes it
func (w *Worker) loop(ctx context.Context) {
	nx := after(domain.StateLoggingIn, 0)
	for {
		w.setState(nx)
		if nx.stall {
			select {
			case <-w.done:
			case <-ctx.Done():
				w.finish("context canceled")
			}
			return
		}

		t := time.NewTimer(nx.delay)
		select {
		case <-t.C:
		case <-w.done:
			t.Stop()
			return
		case <-ctx.Done():
			t.Stop()
			w.finish("context canceled")
			return
		}
		if w.finished.Load() {
			return
		}

		step, ok := w.steps[nx.state]
		if !ok {
			w.finish("no step for state " + string(nx.state))
			return
		}
		nx = step(ctx)
		if nx.state == domain.StateFinished {
			return
		}
	}
}

// Finish stops the worker; safe to call any number of times from any goroutine
func (w *Worker) Finish() { w.finish("finish requested") }

func (w *Worker) finish(reason string) bool {
	if !w.finished.CompareAndSwap(false, true) {
		return false
	}

	w.mu.Lock()
	w.state = domain.StateFinished
	w.reason = reason
	w.authed = false
	cbs := w.callbacks
	w.callbacks = nil
	budget := w.budget
	w.mu.Unlock()

	close(w.done)
	if budget != nil {
		budget.Stop()
	}
	w.shutdownOnce.Do(w.strat.Shutdown)
	w.logger().Info().Str("reason", reason).Msg("worker finished")

	if w.hook != nil {
		w.hook(domain.StateFinished)
	}
	st := w.Status()
	for _, cb := range cbs {
		cb(st)
	}
	return true
}

// end finishes from inside a step
func (w *Worker) end(reason string) next {
	w.finish(reason)
	return terminal
}

// OnFinish registers cb to run once when the worker finishes; cb runs
// immediately if it already has
func (w *Worker) OnFinish(cb func(domain.Status)) {
	if cb == nil {
		return
	}
	w.mu.Lock()
	if !w.finished.Load() {
		w.callbacks = append(w.callbacks, cb)
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	cb(w.Status())
}

// Done is closed once the worker finishes
func (w *Worker) Done() <-chan struct{} { return w.done }

// Account returns the worker's account
func (w *Worker) Account() account.Account { return w.acct }

// IsFinished reports the terminal flag
func (w *Worker) IsFinished() bool { return w.finished.Load() }

// State returns the scheduled state
func (w *Worker) State() domain.State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Restarts counts RPC driven restarts since Start
func (w *Worker) Restarts() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.restarts
}

// Position returns the last accepted position
func (w *Worker) Position() (geo.Position, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.pos == nil {
		return geo.Position{}, false
	}
	return *w.pos, true
}

// LastMapObjects returns the last successful map query result
func (w *Worker) LastMapObjects() (domain.MapObjects, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return domain.MapObjects{}, false
	}
	return *w.last, true
}

// Encounters snapshots the account's encounter cache
func (w *Worker) Encounters() []encounters.Encounter { return w.cache.Snapshot() }

// Status snapshots everything the supervisor shows
func (w *Worker) Status() domain.Status {
	w.mu.RLock()
	st := domain.Status{
		Account:       w.acct.Username,
		State:         w.state,
		Finished:      w.finished.Load(),
		Reason:        w.reason,
		RunID:         w.runID,
		Restarts:      w.restarts,
		Stalled:       w.stalled,
		SoftbanStreak: w.softban.Streak(),
		StartedAt:     w.startedAt,
		LastScanAt:    w.lastScanAt,
	}
	if w.pos != nil {
		p := *w.pos
		st.Position = &p
	}
	w.mu.RUnlock()

	st.Encounters = w.cache.Len()
	st.Challenge = w.env.Registry.Challenges.State(w.id)
	return st
}

func (w *Worker) logger() *logger.Logger {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.log
}

// newRun stamps a fresh run id on the worker and its logger
func (w *Worker) newRun() {
	id := uuid.NewString()
	w.mu.Lock()
	w.runID = id
	w.log = logger.ForAccount(w.acct.Username, id)
	w.mu.Unlock()
}

func (w *Worker) setState(nx next) {
	w.mu.Lock()
	if w.finished.Load() {
		w.mu.Unlock()
		return
	}
	w.state = nx.state
	w.stalled = nx.stall
	w.mu.Unlock()

	if w.hook != nil {
		w.hook(nx.state)
	}
}

func (w *Worker) setAuthed(v bool) {
	w.mu.Lock()
	w.authed = v
	w.mu.Unlock()
}

func (w *Worker) isAuthed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.authed
}

func (w *Worker) setPosition(p geo.Position) {
	w.mu.Lock()
	w.pos = &p
	w.mu.Unlock()
}

func (w *Worker) setLast(mo domain.MapObjects) {
	w.mu.Lock()
	w.last = &mo
	w.lastScanAt = mo.At
	w.mu.Unlock()
}
