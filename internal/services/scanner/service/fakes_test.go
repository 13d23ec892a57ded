package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nocscan/internal/core/account"
	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
	"nocscan/internal/core/speedgate"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/services/scanner/domain"
)

var home = geo.Position{Lat: 40.7128, Lng: -74.0060}

type fakeClient struct {
	mu       sync.Mutex
	token    string
	pos      geo.Position
	endpoint string
	settings *domain.Settings
	verified []string

	loginErr    error
	playerInfo  func(n int) (domain.PlayerInfo, error)
	initialErr  error
	mapObjects  func(n int) (domain.MapObjects, error)
	verifyOK    bool
	verifyErr   error
	newEndpoint string

	playerCalls atomic.Int32
	mapCalls    atomic.Int32
}

func (c *fakeClient) Login(context.Context, string, string) (string, error) {
	if c.loginErr != nil {
		return "", c.loginErr
	}
	return "tok", nil
}

func (c *fakeClient) SetAuthInfo(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *fakeClient) SetPosition(p geo.Position) {
	c.mu.Lock()
	c.pos = p
	c.mu.Unlock()
}

func (c *fakeClient) Position() geo.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *fakeClient) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

func (c *fakeClient) SetEndpoint(url string) {
	c.mu.Lock()
	c.endpoint = url
	c.mu.Unlock()
}

func (c *fakeClient) PlayerInfo(context.Context) (domain.PlayerInfo, error) {
	n := int(c.playerCalls.Add(1))
	if c.newEndpoint != "" {
		c.SetEndpoint(c.newEndpoint)
	}
	if c.playerInfo != nil {
		return c.playerInfo(n)
	}
	return domain.PlayerInfo{Username: "ash", Level: 5, TutorialState: []int{0, 1}}, nil
}

func (c *fakeClient) InitialData(context.Context) (domain.InitialData, error) {
	if c.initialErr != nil {
		return domain.InitialData{}, c.initialErr
	}
	return domain.InitialData{Settings: domain.Settings{MinRefresh: 10 * time.Second, MapDistanceM: 70}}, nil
}

func (c *fakeClient) ApplySettings(s domain.Settings) {
	c.mu.Lock()
	c.settings = &s
	c.mu.Unlock()
}

func (c *fakeClient) MapObjects(_ context.Context, cellIDs []uint64) (domain.MapObjects, error) {
	n := int(c.mapCalls.Add(1))
	if c.mapObjects != nil {
		return c.mapObjects(n)
	}
	return domain.MapObjects{Cells: []domain.Cell{{ID: cellIDs[0], Nearby: []domain.Nearby{{ID: "n1"}}}}}, nil
}

func (c *fakeClient) VerifyChallenge(_ context.Context, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verified = append(c.verified, token)
	if c.verifyErr != nil {
		return false, c.verifyErr
	}
	return c.verifyOK, nil
}

func (c *fakeClient) CompleteTutorial(context.Context, []int) error { return nil }

func (c *fakeClient) appliedSettings() *domain.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *fakeClient) verifiedTokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.verified...)
}

// fakeDialer hands out the same client every time and counts logins
type fakeDialer struct {
	client  *fakeClient
	proxies []string
	err     error
	mu      sync.Mutex
	dials   atomic.Int32
}

func (d *fakeDialer) Dial(proxy string) (domain.Client, error) {
	d.dials.Add(1)
	d.mu.Lock()
	d.proxies = append(d.proxies, proxy)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.client, nil
}

// fakeStrategy walks a fixed list then repeats the last position, unless
// limit is set, after which it reports exhaustion
type fakeStrategy struct {
	positions []geo.Position
	limit     int32

	calls     atomic.Int32
	backsteps atomic.Int32
	shutdowns atomic.Int32
	nearby    atomic.Int32
	catchable atomic.Int32
}

func (s *fakeStrategy) NextPosition(context.Context, bool) (geo.Position, bool) {
	n := s.calls.Add(1)
	if s.limit > 0 && n > s.limit {
		return geo.Position{}, false
	}
	if len(s.positions) == 0 {
		return home, true
	}
	i := int(n) - 1
	if i >= len(s.positions) {
		i = len(s.positions) - 1
	}
	return s.positions[i], true
}

func (s *fakeStrategy) HandleNearby([]domain.Nearby, string, geo.Position) { s.nearby.Add(1) }
func (s *fakeStrategy) HandleCatchable([]encounters.Catchable, string)     { s.catchable.Add(1) }
func (s *fakeStrategy) Backstep()                                          { s.backsteps.Add(1) }
func (s *fakeStrategy) Shutdown()                                          { s.shutdowns.Add(1) }

type fakeTiler struct{}

func (fakeTiler) CellIDs(geo.Position) []uint64 { return []uint64{42, 43} }
func (fakeTiler) RegionKey(id uint64) string {
	if id == 42 {
		return "r42"
	}
	return "r43"
}

type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func (k *memKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *memKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.m == nil {
		k.m = map[string]string{}
	}
	k.m[key] = value
	return nil
}

func (k *memKV) value(key string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.m[key]
}

type countingRotator struct{ n atomic.Int32 }

func (r *countingRotator) Rotate(context.Context, account.Account) error {
	r.n.Add(1)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(_ context.Context, msg string) error {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type recordingSink struct{ n atomic.Int32 }

func (s *recordingSink) Record(_ context.Context, _ account.ID, batch []encounters.Catchable) error {
	s.n.Add(int32(len(batch)))
	return nil
}

type onboardingFunc func(tutorial []int) error

func (f onboardingFunc) Run(_ context.Context, _ domain.Client, _ account.Account, tutorial []int) error {
	return f(tutorial)
}

// transitions records every state the loop schedules
type transitions struct {
	mu sync.Mutex
	s  []domain.State
}

func (tr *transitions) record(s domain.State) {
	tr.mu.Lock()
	tr.s = append(tr.s, s)
	tr.mu.Unlock()
}

func (tr *transitions) list() []domain.State {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]domain.State(nil), tr.s...)
}

// fastConfig keeps every delay tiny
func fastConfig() Config {
	return Config{
		ScanDelay:     5 * time.Millisecond,
		InitDelay:     time.Millisecond,
		SpeedbanRetry: 5 * time.Millisecond,
	}
}

type rig struct {
	client   *fakeClient
	dialer   *fakeDialer
	strat    *fakeStrategy
	kv       *memKV
	notifier *recordingNotifier
	sink     *recordingSink
	rotator  *countingRotator
	registry *Registry
	trace    *transitions
	env      Env
}

func newRig() *rig {
	c := &fakeClient{verifyOK: true}
	r := &rig{
		client:   c,
		dialer:   &fakeDialer{client: c},
		strat:    &fakeStrategy{},
		kv:       &memKV{},
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
		rotator:  &countingRotator{},
		registry: NewRegistry(speedgate.New(speedgate.Options{Jitter: geo.NoJitter}), nil, nil),
		trace:    &transitions{},
	}
	r.env = Env{
		Dialer:     r.dialer,
		Tiler:      fakeTiler{},
		Strategies: func(account.Account) domain.Strategy { return r.strat },
		KV:         r.kv,
		Notifier:   r.notifier,
		Sink:       r.sink,
		Rotator:    r.rotator,
		Registry:   r.registry,
	}
	return r
}

func (r *rig) worker(t *testing.T, acct account.Account, cfg Config) *Worker {
	t.Helper()
	w := NewWorker(acct, r.strat, r.env, cfg)
	w.hook = r.trace.record
	t.Cleanup(w.Finish)
	return w
}

var ash = account.Account{Username: "Ash", Password: "pikachu"}

func withCircuit(a account.Account) account.Account {
	a.Circuit = &account.Circuit{Control: "127.0.0.1:9051"}
	return a
}

var errSocket = perr.RPCf("socket closed")
