package service

import (
	"context"
	"fmt"

	"nocscan/internal/core/geo"
	"nocscan/internal/core/softban"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/services/scanner/domain"
)

// login resolves a proxy, dials a fresh client and authenticates it
func (w *Worker) login(ctx context.Context) next {
	if w.env.Pacer != nil {
		if err := w.env.Pacer.Wait(ctx); err != nil {
			return w.end("context canceled")
		}
	}
	if w.finished.Load() {
		return terminal
	}
	log := w.logger()

	proxy, err := w.resolveProxy()
	if err != nil {
		log.Error().Err(err).Str("pool", w.acct.ProxyPool).Msg("proxy draw failed")
		return w.end("login failed")
	}
	c, err := w.env.Dialer.Dial(proxy)
	if err != nil {
		log.Error().Err(err).Msg("dial failed")
		return w.end("login failed")
	}

	token, err := c.Login(ctx, w.acct.Username, w.acct.Password)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeUnauthorized) {
			log.Error().Err(err).Msg("login rejected")
			return w.end("login rejected")
		}
		log.Error().Err(err).Msg("login failed")
		return w.end("login failed")
	}
	c.SetAuthInfo(token)

	w.client = c
	w.challengeTries = 0
	w.mu.Lock()
	w.authed = true
	w.softban = softban.New(w.cfg.SoftbanThreshold)
	w.mu.Unlock()

	log.Info().Bool("proxied", proxy != "").Msg("logged in")
	return after(domain.StateAuthenticated, 0)
}

func (w *Worker) resolveProxy() (string, error) {
	if w.acct.Proxy != "" {
		return w.acct.Proxy, nil
	}
	if w.acct.ProxyPool == "" {
		return "", nil
	}
	if w.env.Proxies == nil {
		return "", perr.Unavailablef("proxy pool %q requested but no pools configured", w.acct.ProxyPool)
	}
	return w.env.Proxies.Draw(w.acct.ProxyPool)
}

// candidate returns the position held back by the gate, or asks the strategy
func (w *Worker) candidate(ctx context.Context, initial bool) (geo.Position, bool) {
	if w.pending != nil {
		return *w.pending, true
	}
	return w.strat.NextPosition(ctx, initial)
}

// gate runs the safety check; a rejection parks the candidate for retry
func (w *Worker) gate(raw geo.Position) (geo.Position, bool) {
	d := w.env.Registry.Gate.Accept(w.id, raw)
	if !d.Allowed {
		w.pending = &raw
		w.logger().Warn().
			Float64("speed_kmh", d.SpeedKmh).
			Str("position", raw.String()).
			Dur("retry_in", w.cfg.SpeedbanRetry).
			Msg("position rejected by speed gate")
		return geo.Position{}, false
	}
	w.pending = nil
	if w.client != nil {
		w.client.SetPosition(d.Position)
	}
	w.setPosition(d.Position)
	return d.Position, true
}

// placeInitial sends the first position before the init batches
func (w *Worker) placeInitial(ctx context.Context) next {
	raw, ok := w.candidate(ctx, true)
	if !ok {
		w.logger().Warn().Msg("strategy has no initial position, logging in again later")
		return after(domain.StateLoggingIn, w.cfg.ScanDelay)
	}
	if _, ok := w.gate(raw); !ok {
		return after(domain.StateAuthenticated, w.cfg.SpeedbanRetry)
	}
	return after(domain.StateInitStep1, w.cfg.InitDelay)
}

// initStep1 fetches player info, then works any pending challenge before
// onboarding. A verified token reruns the step after a scan delay
func (w *Worker) initStep1(ctx context.Context) next {
	log := w.logger()

	w.restoreEndpoint(ctx)
	info, err := w.client.PlayerInfo(ctx)
	if err != nil {
		if w.acct.HasCircuit() {
			log.Warn().Err(err).Msg("player info failed, rotating circuit")
			w.rotate(ctx)
			return after(domain.StateInitStep1, w.cfg.ScanDelay)
		}
		log.Error().Err(err).Msg("player info failed without a circuit to rotate, worker stalled")
		return stallAt(domain.StateInitStep1)
	}
	w.storeEndpoint(ctx)

	if info.ChallengeURL != "" {
		if w.challengeTries >= w.cfg.ChallengeRetries {
			log.Error().Int("tokens", w.challengeTries).Msg("challenge still demanded after every token")
			return w.end("challenge retries exhausted")
		}
		w.flagChallenge(ctx, info.ChallengeURL)
	}
	if w.env.Registry.Challenges.IsRequired(w.id) {
		if w.solveChallenge(ctx) {
			return after(domain.StateInitStep1, w.cfg.ScanDelay)
		}
		return w.awaitChallenge(domain.StateInitStep1)
	}
	w.challengeTries = 0

	if w.env.Onboarding != nil {
		if err := w.env.Onboarding.Run(ctx, w.client, w.acct, info.TutorialState); err != nil {
			log.Error().Err(err).Ints("tutorial_state", info.TutorialState).Msg("onboarding failed")
			return w.end("onboarding failed")
		}
	}
	log.Info().Int("level", info.Level).Msg("player info loaded")
	return after(domain.StateInitStep2, 0)
}

// initStep2 downloads remote config and settings, then schedules the first scan
func (w *Worker) initStep2(ctx context.Context) next {
	data, err := w.client.InitialData(ctx)
	if err != nil {
		return w.rpcFail(err)
	}
	w.client.ApplySettings(data.Settings)
	w.logger().Info().
		Dur("min_refresh", data.Settings.MinRefresh).
		Float64("map_distance_m", data.Settings.MapDistanceM).
		Msg("settings applied")
	return after(domain.StateScanning, w.cfg.ScanDelay)
}

// performScan moves the worker and then checks what is nearby
func (w *Worker) performScan(ctx context.Context) next {
	raw, ok := w.candidate(ctx, false)
	if !ok {
		return w.end("strategy exhausted")
	}
	pos, ok := w.gate(raw)
	if !ok {
		return after(domain.StateScanning, w.cfg.SpeedbanRetry)
	}
	return w.checkNearby(ctx, pos)
}

// resumeAfterChallenge reruns the interrupted step
func (w *Worker) resumeAfterChallenge(ctx context.Context) next {
	step, ok := w.steps[w.resume]
	if !ok || w.resume == domain.StateCaptchaPending {
		return w.end("challenge interrupted an unknown state")
	}
	// init holds here until a token arrives; scanning backsteps every cycle
	if w.resume == domain.StateInitStep1 {
		if st := w.env.Registry.Challenges.State(w.id); st.Required && !st.HasToken {
			return w.awaitChallenge(domain.StateInitStep1)
		}
	}
	return step(ctx)
}

func (w *Worker) checkNearby(ctx context.Context, pos geo.Position) next {
	if w.finished.Load() {
		return terminal
	}
	log := w.logger()

	if w.env.Registry.Challenges.IsRequired(w.id) {
		tried := w.solveChallenge(ctx)
		w.strat.Backstep()
		if tried {
			return after(domain.StateScanning, w.cfg.ScanDelay)
		}
		return w.awaitChallenge(domain.StateScanning)
	}
	if w.client == nil || !w.isAuthed() {
		log.Error().Msg("scan cycle without a session, worker stalled")
		return stallAt(domain.StateScanning)
	}

	mo, err := w.client.MapObjects(ctx, w.env.Tiler.CellIDs(pos))
	if err != nil {
		return w.rpcFail(err)
	}
	if mo.At.IsZero() {
		mo.At = w.env.Clock.Now()
	}
	w.setLast(mo)

	if mo.ChallengeURL != "" {
		w.flagChallenge(ctx, mo.ChallengeURL)
		w.strat.Backstep()
	}

	if catch := mo.Catchables(); len(catch) > 0 {
		w.cache.Upsert(catch...)
		if w.env.Sink != nil {
			if err := w.env.Sink.Record(ctx, w.id, catch); err != nil {
				log.Warn().Err(err).Int("n", len(catch)).Msg("sighting sink failed")
			}
		}
	}
	for _, cell := range mo.Cells {
		region := w.env.Tiler.RegionKey(cell.ID)
		w.strat.HandleNearby(cell.Nearby, region, pos)
		w.strat.HandleCatchable(cell.Catchable, region)
	}

	if mo.ChallengeURL != "" {
		return w.awaitChallenge(domain.StateScanning)
	}

	nc, nn := mo.Counts()
	log.Debug().Int("catchable", nc).Int("nearby", nn).Str("position", pos.String()).Msg("scan")
	if w.currentSoftban().Record(nc, nn) == softban.Escalate {
		if !w.acct.HasCircuit() {
			log.Error().Msg("empty scans look like a soft-ban, no circuit to rotate")
			return w.end("softban suspected")
		}
		log.Warn().Msg("empty scans look like a soft-ban, rotating circuit")
		w.rotate(ctx)
	}
	return after(domain.StateScanning, w.cfg.ScanDelay)
}

// rpcFail discards the session and restarts from login. The encounter cache
// and speed log live in the registry and survive
func (w *Worker) rpcFail(err error) next {
	w.client = nil
	w.mu.Lock()
	w.authed = false
	w.restarts++
	n := w.restarts
	w.mu.Unlock()

	w.logger().Warn().Err(err).Int("restarts", n).Msg("rpc failure, restarting session")
	w.newRun()
	return after(domain.StateLoggingIn, 0)
}

func (w *Worker) awaitChallenge(resume domain.State) next {
	w.resume = resume
	return after(domain.StateCaptchaPending, w.cfg.ScanDelay)
}

// solveChallenge spends a waiting token and reports whether it did. The
// flag clears whatever the verdict; a server that still wants a challenge
// flags the account again on the next response
func (w *Worker) solveChallenge(ctx context.Context) bool {
	ch := w.env.Registry.Challenges
	if w.client == nil {
		return false
	}
	token, ok := ch.ConsumeToken(w.id)
	if !ok {
		w.logger().Debug().Msg("challenge pending, no token yet")
		return false
	}
	w.challengeTries++
	log := w.logger().With().Int("token", w.challengeTries).Logger()

	verified, err := w.client.VerifyChallenge(ctx, token)
	ch.Complete(w.id)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("challenge verification failed")
	case !verified:
		log.Warn().Msg("challenge token rejected")
	default:
		log.Info().Msg("challenge solved")
	}
	return true
}

func (w *Worker) flagChallenge(ctx context.Context, url string) {
	ch := w.env.Registry.Challenges
	fresh := !ch.IsRequired(w.id)
	ch.MarkRequired(w.id, url)
	if !fresh {
		return
	}
	w.logger().Warn().Str("url", url).Msg("challenge required")
	w.notify(ctx, fmt.Sprintf("challenge required for %s: %s", w.acct, url))
}

func (w *Worker) notify(ctx context.Context, msg string) {
	if w.env.Notifier == nil {
		return
	}
	if err := w.env.Notifier.Notify(ctx, msg); err != nil {
		w.logger().Warn().Err(err).Msg("notification failed")
	}
}

func (w *Worker) rotate(ctx context.Context) {
	if w.env.Rotator == nil {
		w.logger().Warn().Msg("circuit configured but no rotator wired")
		return
	}
	if err := w.env.Rotator.Rotate(ctx, w.acct); err != nil {
		w.logger().Warn().Err(err).Str("control", w.acct.Circuit.Control).Msg("circuit rotation failed")
	}
}

func (w *Worker) restoreEndpoint(ctx context.Context) {
	if w.env.KV == nil {
		return
	}
	ep, ok, err := w.env.KV.Get(ctx, w.acct.EndpointKey())
	if err != nil {
		w.logger().Warn().Err(err).Msg("endpoint cache read failed")
		return
	}
	if ok && ep != "" {
		w.client.SetEndpoint(ep)
	}
}

func (w *Worker) storeEndpoint(ctx context.Context) {
	if w.env.KV == nil {
		return
	}
	ep := w.client.Endpoint()
	if ep == "" {
		return
	}
	if err := w.env.KV.Set(ctx, w.acct.EndpointKey(), ep); err != nil {
		w.logger().Warn().Err(err).Msg("endpoint cache write failed")
	}
}

func (w *Worker) currentSoftban() *softban.Detector {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.softban
}
