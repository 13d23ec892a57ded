package service

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nocscan/internal/core/account"
	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
	"nocscan/internal/core/speedgate"
	perr "nocscan/internal/platform/errors"
	kit "nocscan/internal/platform/testkit"
	"nocscan/internal/services/scanner/domain"
)

const (
	wait = 2 * time.Second
	tick = 2 * time.Millisecond
)

func TestWorker_HappyPathReachesScanning(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.newEndpoint = "https://pgorelease.example/rpc"
	r.client.mapObjects = func(int) (domain.MapObjects, error) {
		return domain.MapObjects{Cells: []domain.Cell{{
			ID:        42,
			Nearby:    []domain.Nearby{{ID: "n1"}},
			Catchable: []encounters.Catchable{{ID: "c1", Kind: 16, CellID: 42}},
		}}}, nil
	}
	w := r.worker(t, ash, fastConfig())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	kit.Eventually(t, wait, tick, func() bool { return r.sink.n.Load() >= 2 }, "two scans recorded")

	if w.IsFinished() {
		t.Fatalf("worker finished unexpectedly: %+v", w.Status())
	}
	if s := r.client.appliedSettings(); s == nil || s.MapDistanceM != 70 {
		t.Fatalf("settings not applied directly: %+v", s)
	}
	if got := r.kv.value("Ash-endpoint"); got != "https://pgorelease.example/rpc" {
		t.Fatalf("endpoint not cached, got %q", got)
	}
	if _, ok := w.LastMapObjects(); !ok {
		t.Fatalf("last map objects missing")
	}
	if p, ok := w.Position(); !ok || p != home {
		t.Fatalf("position = %v %v", p, ok)
	}
	if encs := w.Encounters(); len(encs) != 1 || encs[0].ID != "c1" {
		t.Fatalf("encounters = %+v", encs)
	}
	if r.strat.nearby.Load() == 0 || r.strat.catchable.Load() == 0 {
		t.Fatalf("strategy not fed")
	}

	seq := r.trace.list()
	want := []domain.State{
		domain.StateLoggingIn,
		domain.StateAuthenticated,
		domain.StateInitStep1,
		domain.StateInitStep2,
		domain.StateScanning,
	}
	if len(seq) < len(want) || !slices.Equal(seq[:len(want)], want) {
		t.Fatalf("transition prefix = %v", seq)
	}
	st := w.Status()
	if st.RunID == "" || st.Account != "Ash" || st.State != domain.StateScanning {
		t.Fatalf("status = %+v", st)
	}
}

func TestWorker_RestoresCachedEndpoint(t *testing.T) {
	t.Parallel()
	r := newRig()
	_ = r.kv.Set(context.Background(), "Ash-endpoint", "https://cached.example/rpc")
	w := r.worker(t, ash, fastConfig())

	_ = w.Start(context.Background())
	kit.Eventually(t, wait, tick, func() bool { return r.client.playerCalls.Load() >= 1 }, "player info")
	kit.Eventually(t, wait, tick, func() bool { return r.client.Endpoint() == "https://cached.example/rpc" }, "endpoint restored")
}

func TestWorker_LoginRejectedFinishes(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.loginErr = perr.Unauthorizedf("bad password")
	w := r.worker(t, ash, fastConfig())

	var calls atomic.Int32
	w.OnFinish(func(domain.Status) { calls.Add(1) })
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, w.IsFinished, "finish on auth error")
	st := w.Status()
	if st.Reason != "login rejected" || st.State != domain.StateFinished {
		t.Fatalf("status = %+v", st)
	}
	if r.dialer.dials.Load() != 1 {
		t.Fatalf("auth errors must not retry, dials=%d", r.dialer.dials.Load())
	}
	if calls.Load() != 1 {
		t.Fatalf("callback calls = %d", calls.Load())
	}
}

func TestWorker_LoginPhaseFailureFinishes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		setup func(r *rig) account.Account
	}{
		{"login unavailable", func(r *rig) account.Account {
			r.client.loginErr = perr.Unavailablef("upstream 503")
			return ash
		}},
		{"dial refused", func(r *rig) account.Account {
			r.dialer.err = perr.Unavailablef("connection refused")
			return ash
		}},
		{"proxy pool missing", func(r *rig) account.Account {
			return account.Account{Username: "Misty", Password: "starmie", ProxyPool: "eu"}
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r := newRig()
			acct := c.setup(r)
			w := r.worker(t, acct, fastConfig())

			_ = w.Start(context.Background())
			kit.Eventually(t, wait, tick, w.IsFinished, "login failure finishes")
			if st := w.Status(); st.Reason != "login failed" {
				t.Fatalf("reason = %q", st.Reason)
			}
			kit.Never(t, 30*time.Millisecond, tick, func() bool { return r.dialer.dials.Load() > 1 }, "login retried")
			if r.client.playerCalls.Load() != 0 {
				t.Fatalf("failed login must not reach init")
			}
		})
	}
}

func TestWorker_RPCFailureRestartsFromLoginKeepingCache(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.mapObjects = func(n int) (domain.MapObjects, error) {
		switch n {
		case 1:
			return domain.MapObjects{Cells: []domain.Cell{{ID: 42, Catchable: []encounters.Catchable{{ID: "c1"}}}}}, nil
		case 2:
			return domain.MapObjects{}, errSocket
		}
		return domain.MapObjects{Cells: []domain.Cell{{ID: 42, Nearby: []domain.Nearby{{ID: "n"}}}}}, nil
	}
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())
	firstRun := ""
	kit.Eventually(t, wait, tick, func() bool {
		if firstRun == "" {
			firstRun = w.Status().RunID
		}
		return w.Restarts() == 1
	}, "one restart")
	kit.Eventually(t, wait, tick, func() bool { return r.client.mapCalls.Load() >= 3 }, "scanning again")

	seq := r.trace.list()
	var scans int
	var afterFail domain.State
	for i, s := range seq {
		if s == domain.StateScanning {
			scans++
			if scans == 2 && i+1 < len(seq) {
				afterFail = seq[i+1]
				break
			}
		}
	}
	if afterFail != domain.StateLoggingIn {
		t.Fatalf("transition after failed scan = %q, seq %v", afterFail, seq)
	}
	if r.dialer.dials.Load() < 2 {
		t.Fatalf("restart should log in again")
	}
	if _, ok := r.registry.Encounters(ash.ID()).Get("c1"); !ok {
		t.Fatalf("encounter cache must survive restart")
	}
	if _, ok := r.registry.Gate.Last(ash.ID()); !ok {
		t.Fatalf("speed log must survive restart")
	}
	if w.Status().RunID == firstRun {
		t.Fatalf("restart should stamp a new run id")
	}
}

func TestWorker_InitStep2FailureIsRPCFailure(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.initialErr = errSocket
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, func() bool { return w.Restarts() >= 2 }, "restarts")
	if w.IsFinished() {
		t.Fatalf("rpc failures must not finish")
	}
}

func TestWorker_ChallengeBackstepsWithoutNetwork(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.mapObjects = func(n int) (domain.MapObjects, error) {
		if n == 1 {
			return domain.MapObjects{ChallengeURL: "https://verify.example/c/1"}, nil
		}
		return domain.MapObjects{Cells: []domain.Cell{{ID: 42, Nearby: []domain.Nearby{{ID: "n"}}}}}, nil
	}
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, func() bool { return r.strat.backsteps.Load() >= 3 }, "backsteps while pending")
	if n := r.client.mapCalls.Load(); n != 1 {
		t.Fatalf("pending challenge must not hit the network, map calls=%d", n)
	}
	if w.State() != domain.StateCaptchaPending {
		t.Fatalf("state = %q", w.State())
	}
	if r.notifier.count() != 1 {
		t.Fatalf("notifications = %d", r.notifier.count())
	}
	if st := w.Status(); !st.Challenge.Required || st.Challenge.URL == "" {
		t.Fatalf("challenge state = %+v", st.Challenge)
	}

	if err := r.registry.Challenges.SupplyToken(ash.ID(), "solved-token"); err != nil {
		t.Fatalf("supply: %v", err)
	}
	kit.Eventually(t, wait, tick, func() bool { return r.client.mapCalls.Load() >= 2 }, "scanning resumed")
	if got := r.client.verifiedTokens(); len(got) != 1 || got[0] != "solved-token" {
		t.Fatalf("verified tokens = %v", got)
	}
	if r.registry.Challenges.IsRequired(ash.ID()) {
		t.Fatalf("challenge should be complete")
	}
}

func TestWorker_FailedVerificationClearsChallenge(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		setup func(c *fakeClient)
	}{
		{"rejected", func(c *fakeClient) { c.verifyOK = false }},
		{"errored", func(c *fakeClient) { c.verifyErr = errSocket }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r := newRig()
			c.setup(r.client)
			r.client.mapObjects = func(n int) (domain.MapObjects, error) {
				if n == 1 {
					return domain.MapObjects{ChallengeURL: "https://verify.example/c/2"}, nil
				}
				return domain.MapObjects{Cells: []domain.Cell{{ID: 42, Nearby: []domain.Nearby{{ID: "n"}}}}}, nil
			}
			w := r.worker(t, ash, fastConfig())
			_ = w.Start(context.Background())

			kit.Eventually(t, wait, tick, func() bool { return r.registry.Challenges.IsRequired(ash.ID()) }, "flagged")
			if err := r.registry.Challenges.SupplyToken(ash.ID(), "bad"); err != nil {
				t.Fatalf("supply: %v", err)
			}
			kit.Eventually(t, wait, tick, func() bool { return r.client.mapCalls.Load() >= 2 }, "server asked again")

			if got := r.client.verifiedTokens(); len(got) != 1 || got[0] != "bad" {
				t.Fatalf("verified tokens = %v", got)
			}
			if r.registry.Challenges.IsRequired(ash.ID()) {
				t.Fatalf("a spent token must clear the flag whatever the verdict")
			}
			if w.IsFinished() {
				t.Fatalf("failed verification must not finish: %+v", w.Status())
			}
		})
	}
}

func TestWorker_FailedVerificationReflagsWhenServerInsists(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.verifyOK = false
	r.client.mapObjects = func(int) (domain.MapObjects, error) {
		return domain.MapObjects{ChallengeURL: "https://verify.example/c/4"}, nil
	}
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, func() bool { return r.registry.Challenges.IsRequired(ash.ID()) }, "flagged")
	_ = r.registry.Challenges.SupplyToken(ash.ID(), "bad")
	kit.Eventually(t, wait, tick, func() bool { return r.client.mapCalls.Load() >= 2 }, "server asked again")
	kit.Eventually(t, wait, tick, func() bool { return r.registry.Challenges.IsRequired(ash.ID()) }, "flagged again")

	if n := len(r.client.verifiedTokens()); n != 1 {
		t.Fatalf("token reused, verifications = %d", n)
	}
	if r.notifier.count() < 2 {
		t.Fatalf("a fresh challenge should notify again, got %d", r.notifier.count())
	}
}

func TestWorker_InitChallengeWaitsForToken(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.playerInfo = func(int) (domain.PlayerInfo, error) {
		return domain.PlayerInfo{ChallengeURL: "https://verify.example/c/3"}, nil
	}
	cfg := fastConfig()
	cfg.ChallengeRetries = 2
	w := r.worker(t, ash, cfg)
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, func() bool { return w.State() == domain.StateCaptchaPending }, "pending")
	kit.Never(t, 100*time.Millisecond, tick, w.IsFinished, "finished without a token")
	if w.State() != domain.StateCaptchaPending {
		t.Fatalf("state = %q", w.State())
	}
	if n := r.client.playerCalls.Load(); n != 1 {
		t.Fatalf("player info should wait for a token, calls=%d", n)
	}
	if r.notifier.count() != 1 {
		t.Fatalf("notifications = %d", r.notifier.count())
	}
}

func TestWorker_InitChallengeRetriesCountTokens(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.playerInfo = func(int) (domain.PlayerInfo, error) {
		return domain.PlayerInfo{ChallengeURL: "https://verify.example/c/3"}, nil
	}
	cfg := fastConfig()
	cfg.ChallengeRetries = 2
	w := r.worker(t, ash, cfg)
	_ = w.Start(context.Background())

	ch := r.registry.Challenges
	kit.Eventually(t, wait, tick, func() bool {
		if st := ch.State(ash.ID()); st.Required && !st.HasToken {
			_ = ch.SupplyToken(ash.ID(), "tok")
		}
		return w.IsFinished()
	}, "gives up after spending its tokens")

	if st := w.Status(); st.Reason != "challenge retries exhausted" {
		t.Fatalf("reason = %q", st.Reason)
	}
	if n := len(r.client.verifiedTokens()); n != 2 {
		t.Fatalf("verifications = %d", n)
	}
}

func TestWorker_InitChallengeVerifiedReschedulesInitStep1(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.playerInfo = func(n int) (domain.PlayerInfo, error) {
		if n == 1 {
			return domain.PlayerInfo{ChallengeURL: "https://verify.example/c/5"}, nil
		}
		return domain.PlayerInfo{Level: 3}, nil
	}
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, func() bool { return w.State() == domain.StateCaptchaPending }, "pending")
	_ = r.registry.Challenges.SupplyToken(ash.ID(), "good")
	kit.Eventually(t, wait, tick, func() bool { return r.client.mapCalls.Load() >= 1 }, "scanning")

	if n := r.client.playerCalls.Load(); n != 3 {
		t.Fatalf("player info calls = %d", n)
	}
	var seq []domain.State
	for _, s := range r.trace.list() {
		if s == domain.StateScanning {
			break
		}
		seq = append(seq, s)
	}
	want := []domain.State{
		domain.StateLoggingIn,
		domain.StateAuthenticated,
		domain.StateInitStep1,
		domain.StateCaptchaPending,
	}
	if len(seq) < len(want) || !slices.Equal(seq[:len(want)], want) {
		t.Fatalf("transition prefix = %v", seq)
	}
	if seq[len(seq)-1] != domain.StateInitStep2 || seq[len(seq)-2] != domain.StateInitStep1 {
		t.Fatalf("verified token should rerun init_step1 before init_step2, got %v", seq)
	}
}

func TestWorker_InitStep1FailureWithoutCircuitStalls(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.playerInfo = func(int) (domain.PlayerInfo, error) { return domain.PlayerInfo{}, errSocket }
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, func() bool { return w.Status().Stalled }, "stalled")
	kit.Never(t, 50*time.Millisecond, tick, func() bool { return r.client.playerCalls.Load() > 1 }, "retried")
	if w.IsFinished() || w.State() != domain.StateInitStep1 {
		t.Fatalf("stall keeps the worker alive in init_step1: %+v", w.Status())
	}
	w.Finish()
	kit.Eventually(t, wait, tick, w.IsFinished, "finish from stall")
}

func TestWorker_InitStep1FailureWithCircuitRotates(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.client.playerInfo = func(n int) (domain.PlayerInfo, error) {
		if n < 3 {
			return domain.PlayerInfo{}, errSocket
		}
		return domain.PlayerInfo{}, nil
	}
	w := r.worker(t, withCircuit(ash), fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, func() bool { return r.client.mapCalls.Load() >= 1 }, "recovered into scanning")
	if r.rotator.n.Load() != 2 {
		t.Fatalf("rotations = %d", r.rotator.n.Load())
	}
}

func TestWorker_OnboardingGetsTutorialStateAndFailureFinishes(t *testing.T) {
	t.Parallel()
	r := newRig()
	var got []int
	var mu sync.Mutex
	r.env.Onboarding = onboardingFunc(func(tutorial []int) error {
		mu.Lock()
		got = tutorial
		mu.Unlock()
		return perr.RPCf("tutorial rejected")
	})
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, w.IsFinished, "onboarding failure finishes")
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(got, []int{0, 1}) {
		t.Fatalf("tutorial state = %v", got)
	}
	if w.Status().Reason != "onboarding failed" {
		t.Fatalf("reason = %q", w.Status().Reason)
	}
}

func TestWorker_SoftbanEscalation(t *testing.T) {
	t.Parallel()
	empty := func(int) (domain.MapObjects, error) {
		return domain.MapObjects{Cells: []domain.Cell{{ID: 42}}}, nil
	}

	t.Run("without circuit finishes", func(t *testing.T) {
		t.Parallel()
		r := newRig()
		r.client.mapObjects = empty
		w := r.worker(t, ash, fastConfig())
		_ = w.Start(context.Background())

		kit.Eventually(t, wait, tick, w.IsFinished, "softban finish")
		if w.Status().Reason != "softban suspected" {
			t.Fatalf("reason = %q", w.Status().Reason)
		}
		if n := r.client.mapCalls.Load(); n != 3 {
			t.Fatalf("escalation should happen on the third empty scan, calls=%d", n)
		}
	})

	t.Run("with circuit rotates and continues", func(t *testing.T) {
		t.Parallel()
		r := newRig()
		r.client.mapObjects = empty
		w := r.worker(t, withCircuit(ash), fastConfig())
		_ = w.Start(context.Background())

		kit.Eventually(t, wait, tick, func() bool { return r.rotator.n.Load() >= 2 }, "rotations")
		if w.IsFinished() {
			t.Fatalf("rotation should keep the worker alive")
		}
	})
}

func TestWorker_StrategyExhaustedFinishesCleanly(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.strat.limit = 3
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, w.IsFinished, "exhausted")
	if w.Status().Reason != "strategy exhausted" {
		t.Fatalf("reason = %q", w.Status().Reason)
	}
	if n := r.client.mapCalls.Load(); n != 2 {
		t.Fatalf("map calls = %d", n)
	}
	if r.strat.shutdowns.Load() != 1 {
		t.Fatalf("strategy shutdown calls = %d", r.strat.shutdowns.Load())
	}
}

func TestWorker_SpeedRejectionRetriesSameCandidate(t *testing.T) {
	t.Parallel()
	r := newRig()
	r.registry = NewRegistry(speedgate.New(speedgate.Options{MaxSpeedKmh: 20, Jitter: geo.NoJitter}), nil, nil)
	r.env.Registry = r.registry
	far := geo.Offset(home, 5000, 0)
	r.strat.positions = []geo.Position{home, far}
	w := r.worker(t, ash, fastConfig())
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, func() bool { return r.strat.calls.Load() == 2 }, "second candidate")
	kit.Never(t, 60*time.Millisecond, tick, func() bool { return r.strat.calls.Load() > 2 }, "new candidate while one is parked")
	if n := r.client.mapCalls.Load(); n != 0 {
		t.Fatalf("rejected positions must not scan, calls=%d", n)
	}
	if p, _ := w.Position(); p != home {
		t.Fatalf("position moved to a rejected candidate: %v", p)
	}
}

func TestWorker_FinishTwiceCallbackOnce(t *testing.T) {
	t.Parallel()
	r := newRig()
	w := r.worker(t, ash, fastConfig())

	var calls atomic.Int32
	w.OnFinish(func(domain.Status) { calls.Add(1) })
	_ = w.Start(context.Background())
	kit.Eventually(t, wait, tick, func() bool { return r.client.mapCalls.Load() >= 1 }, "scanning")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Finish()
		}()
	}
	wg.Wait()
	w.Finish()

	if calls.Load() != 1 {
		t.Fatalf("callback calls = %d", calls.Load())
	}
	if r.strat.shutdowns.Load() != 1 {
		t.Fatalf("shutdown calls = %d", r.strat.shutdowns.Load())
	}
	select {
	case <-w.Done():
	default:
		t.Fatalf("done channel not closed")
	}
	time.Sleep(10 * time.Millisecond)
	n := r.client.mapCalls.Load()
	kit.Never(t, 30*time.Millisecond, tick, func() bool { return r.client.mapCalls.Load() != n }, "scan after finish")

	late := false
	w.OnFinish(func(domain.Status) { late = true })
	if !late {
		t.Fatalf("late OnFinish should fire immediately")
	}
}

func TestWorker_RuntimeBudget(t *testing.T) {
	t.Parallel()
	r := newRig()
	cfg := fastConfig()
	cfg.Runtime = 30 * time.Millisecond
	w := r.worker(t, ash, cfg)
	_ = w.Start(context.Background())

	kit.Eventually(t, wait, tick, w.IsFinished, "budget")
	if w.Status().Reason != "runtime budget exhausted" {
		t.Fatalf("reason = %q", w.Status().Reason)
	}
}

func TestWorker_ContextCancelFinishes(t *testing.T) {
	t.Parallel()
	r := newRig()
	w := r.worker(t, ash, fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	_ = w.Start(ctx)
	kit.Eventually(t, wait, tick, func() bool { return r.client.mapCalls.Load() >= 1 }, "scanning")

	cancel()
	kit.Eventually(t, wait, tick, w.IsFinished, "cancel")
}

func TestWorker_StartTwiceConflicts(t *testing.T) {
	t.Parallel()
	r := newRig()
	w := r.worker(t, ash, fastConfig())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(context.Background()); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("second start err = %v", err)
	}
}

func TestWorker_ProxyResolution(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		acct  account.Account
		pools domain.ProxyPool
		want  string
		err   bool
	}{
		{"none", ash, nil, "", false},
		{"static", account.Account{Username: "a", Proxy: "socks5://10.0.0.1:1080"}, nil, "socks5://10.0.0.1:1080", false},
		{"pool", account.Account{Username: "a", ProxyPool: "eu"}, staticPool("http://p1:8080"), "http://p1:8080", false},
		{"pool missing", account.Account{Username: "a", ProxyPool: "eu"}, nil, "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r := newRig()
			r.env.Proxies = c.pools
			w := NewWorker(c.acct, r.strat, r.env, fastConfig())
			got, err := w.resolveProxy()
			if (err != nil) != c.err || got != c.want {
				t.Fatalf("resolveProxy = %q, %v", got, err)
			}
		})
	}
}

type staticPool string

func (p staticPool) Draw(string) (string, error) { return string(p), nil }

func TestWorker_ScanWithoutSessionStalls(t *testing.T) {
	t.Parallel()
	r := newRig()
	w := NewWorker(ash, r.strat, r.env, fastConfig())
	nx := w.checkNearby(context.Background(), home)
	if !nx.stall || nx.state != domain.StateScanning {
		t.Fatalf("next = %+v", nx)
	}
	if r.client.mapCalls.Load() != 0 {
		t.Fatalf("no session means no network")
	}
}

func TestNewWorker_RequiresCollaborators(t *testing.T) {
	t.Parallel()
	kit.MustPanic(t, func() { NewWorker(ash, &fakeStrategy{}, Env{}, Config{}) })
	kit.MustPanic(t, func() { NewWorker(ash, nil, Env{Dialer: &fakeDialer{}, Tiler: fakeTiler{}}, Config{}) })
}
