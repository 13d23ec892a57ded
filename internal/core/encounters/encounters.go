// Package encounters keeps recently seen catchable entities for one worker.
// Entries decay on a fixed horizon; a re-sighting refreshes the payload but
// never extends the life of the entry.
package encounters

import (
	"sort"
	"sync"
	"time"

	ptime "nocscan/internal/platform/time"
)

// Horizon is how long an encounter stays in the cache after first sighting
const Horizon = 1800 * time.Second

// Catchable is one entity as reported by a map query
type Catchable struct {
	ID        string         `json:"id"`
	Kind      int            `json:"kind"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	CellID    uint64         `json:"cell_id,string"`
	ExpiresMs int64          `json:"expires_ms,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Encounter is a cached catchable with its decay counter
type Encounter struct {
	Catchable
	FirstSeen   time.Time `json:"first_seen"`
	SecondsLeft int       `json:"seconds_left"`
}

type entry struct {
	c         Catchable
	firstSeen time.Time
}

// Cache is safe for a worker writing while a supervisor reads
type Cache struct {
	clock   ptime.Clock
	horizon time.Duration

	mu   sync.RWMutex
	byID map[string]entry
}

// New returns an empty cache on the given clock (nil means wall clock)
func New(clock ptime.Clock) *Cache {
	return &Cache{clock: ptime.Or(clock), horizon: Horizon, byID: make(map[string]entry)}
}

// Upsert purges expired entries, then inserts unknown ids and refreshes known ones
func (c *Cache) Upsert(batch ...Catchable) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked(now)
	for _, b := range batch {
		if b.ID == "" {
			continue
		}
		if e, ok := c.byID[b.ID]; ok {
			e.c = b
			c.byID[b.ID] = e
			continue
		}
		c.byID[b.ID] = entry{c: b, firstSeen: now}
	}
}

// PurgeExpired drops every entry whose age reached the horizon and returns how many went
func (c *Cache) PurgeExpired() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(now)
}

func (c *Cache) purgeLocked(now time.Time) int {
	n := 0
	for id, e := range c.byID {
		if c.expired(e, now) {
			delete(c.byID, id)
			n++
		}
	}
	return n
}

func (c *Cache) expired(e entry, now time.Time) bool {
	return now.Sub(e.firstSeen) >= c.horizon
}

// Snapshot copies live entries, oldest first, with SecondsLeft derived from now
func (c *Cache) Snapshot() []Encounter {
	now := c.clock.Now()

	c.mu.RLock()
	out := make([]Encounter, 0, len(c.byID))
	for _, e := range c.byID {
		if c.expired(e, now) {
			continue
		}
		left := c.horizon - now.Sub(e.firstSeen)
		out = append(out, Encounter{
			Catchable:   e.c,
			FirstSeen:   e.firstSeen,
			SecondsLeft: int(left / time.Second),
		})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns one live encounter
func (c *Cache) Get(id string) (Encounter, bool) {
	now := c.clock.Now()
	c.mu.RLock()
	e, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok || c.expired(e, now) {
		return Encounter{}, false
	}
	return Encounter{
		Catchable:   e.c,
		FirstSeen:   e.firstSeen,
		SecondsLeft: int((c.horizon - now.Sub(e.firstSeen)) / time.Second),
	}, true
}

// Len counts stored entries, including any not yet purged
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
