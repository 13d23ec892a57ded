package service

import (
	"sync"

	"nocscan/internal/core/account"
	"nocscan/internal/core/challenge"
	"nocscan/internal/core/encounters"
	"nocscan/internal/core/speedgate"
	ptime "nocscan/internal/platform/time"
)

// Registry holds the per-account tables shared between workers and the supervisor.
// Nothing in it is keyed by anything other than account identity
type Registry struct {
	Gate       *speedgate.Gate
	Challenges *challenge.Controller

	clock ptime.Clock

	mu     sync.Mutex
	caches map[account.ID]*encounters.Cache
}

// NewRegistry builds a registry; nil gate or controller get defaults on clock
func NewRegistry(gate *speedgate.Gate, ch *challenge.Controller, clock ptime.Clock) *Registry {
	clock = ptime.Or(clock)
	if gate == nil {
		gate = speedgate.New(speedgate.Options{Clock: clock})
	}
	if ch == nil {
		ch = challenge.New(clock)
	}
	return &Registry{
		Gate:       gate,
		Challenges: ch,
		clock:      clock,
		caches:     make(map[account.ID]*encounters.Cache),
	}
}

// Encounters returns the account's cache, creating it on first use.
// The same cache survives worker restarts
func (r *Registry) Encounters(id account.ID) *encounters.Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[id]
	if !ok {
		c = encounters.New(r.clock)
		r.caches[id] = c
	}
	return c
}

// Forget drops every table entry for the account
func (r *Registry) Forget(id account.ID) {
	r.mu.Lock()
	delete(r.caches, id)
	r.mu.Unlock()
	r.Gate.Forget(id)
	r.Challenges.Forget(id)
}
