// Package speedgate decides whether a proposed position is safe to send by
// bounding the implied travel speed since the last accepted position
package speedgate

import (
	"math"
	"sync"
	"time"

	"nocscan/internal/core/account"
	"nocscan/internal/core/geo"
	ptime "nocscan/internal/platform/time"
)

// DefaultMaxSpeedKmh is the implied speed ceiling
const DefaultMaxSpeedKmh = 20.0

// Decision is the gate outcome for one candidate
type Decision struct {
	Allowed  bool
	Position geo.Position // jittered candidate
	SpeedKmh float64
}

// Entry is the last accepted position for an account
type Entry struct {
	Position   geo.Position
	AcceptedAt time.Time
}

// Options configures a Gate
type Options struct {
	MaxSpeedKmh float64
	Jitter      geo.Jitter
	Clock       ptime.Clock
}

// Gate is safe for concurrent use across workers
type Gate struct {
	max    float64
	jitter geo.Jitter
	clock  ptime.Clock

	mu  sync.Mutex
	log map[account.ID]Entry
}

// New builds a Gate; zero options mean 20 km/h, default jitter, wall clock
func New(opt Options) *Gate {
	if opt.MaxSpeedKmh <= 0 {
		opt.MaxSpeedKmh = DefaultMaxSpeedKmh
	}
	if opt.Jitter == nil {
		opt.Jitter = geo.UniformJitter(geo.DefaultJitterDeg)
	}
	return &Gate{
		max:    opt.MaxSpeedKmh,
		jitter: opt.Jitter,
		clock:  ptime.Or(opt.Clock),
		log:    make(map[account.ID]Entry),
	}
}

// MaxSpeedKmh returns the configured ceiling
func (g *Gate) MaxSpeedKmh() float64 { return g.max }

// Accept jitters raw and checks it against the account's speed log.
// Accepted positions overwrite the log entry; rejections leave it untouched.
func (g *Gate) Accept(id account.ID, raw geo.Position) Decision {
	pos := g.jitter(raw)
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.log[id]
	if !ok {
		g.log[id] = Entry{Position: pos, AcceptedAt: now}
		return Decision{Allowed: true, Position: pos}
	}

	speed := ImpliedSpeedKmh(last.Position, pos, now.Sub(last.AcceptedAt))
	if speed > g.max {
		return Decision{Allowed: false, Position: pos, SpeedKmh: speed}
	}
	g.log[id] = Entry{Position: pos, AcceptedAt: now}
	return Decision{Allowed: true, Position: pos, SpeedKmh: speed}
}

// Last returns the account's speed log entry
func (g *Gate) Last(id account.ID) (Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.log[id]
	return e, ok
}

// Forget drops the account's entry
func (g *Gate) Forget(id account.ID) {
	g.mu.Lock()
	delete(g.log, id)
	g.mu.Unlock()
}

// ImpliedSpeedKmh is the haversine distance over elapsed time.
// With no elapsed time, staying put is 0 and any movement is +Inf.
func ImpliedSpeedKmh(from, to geo.Position, elapsed time.Duration) float64 {
	km := geo.DistanceMeters(from, to) / 1000
	if elapsed <= 0 {
		if km == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return km / elapsed.Hours()
}
