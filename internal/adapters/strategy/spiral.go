// Package strategy provides movement strategies for scan workers
package strategy

import (
	"context"
	"sync"

	"nocscan/internal/core/encounters"
	"nocscan/internal/core/geo"
	"nocscan/internal/services/scanner/domain"
)

// SpiralOptions configures a square spiral walk around a centre
type SpiralOptions struct {
	Centre geo.Position
	StepM  float64
	Rings  int
	Loop   bool
}

// Defaults keep consecutive scans far below the speed ceiling at a 30s cadence
const (
	DefaultStepM = 70.0
	DefaultRings = 3
)

// Spiral walks grid points outward from the centre, one step per scan.
// Consecutive points are exactly StepM apart
type Spiral struct {
	points []geo.Position
	loop   bool

	mu      sync.Mutex
	idx     int
	started bool
	shut    bool
	regions map[string]RegionStats
}

// RegionStats counts what a strategy saw in one region
type RegionStats struct {
	Nearby    int `json:"nearby"`
	Catchable int `json:"catchable"`
}

var _ domain.Strategy = (*Spiral)(nil)

// NewSpiral precomputes the walk
func NewSpiral(opt SpiralOptions) *Spiral {
	if opt.StepM <= 0 {
		opt.StepM = DefaultStepM
	}
	if opt.Rings < 0 {
		opt.Rings = DefaultRings
	}
	return &Spiral{
		points:  spiral(opt.Centre, opt.StepM, opt.Rings),
		loop:    opt.Loop,
		regions: make(map[string]RegionStats),
	}
}

// spiral lays out (2r+1)^2 grid points in square spiral order
func spiral(c geo.Position, step float64, rings int) []geo.Position {
	side := 2*rings + 1
	out := make([]geo.Position, 0, side*side)
	x, y, dx, dy := 0, 0, 0, -1
	for range side * side {
		if x == 0 && y == 0 {
			out = append(out, c)
		} else {
			out = append(out, geo.Offset(c, float64(y)*step, float64(x)*step))
		}
		if x == y || (x < 0 && x == -y) || (x > 0 && x == 1-y) {
			dx, dy = -dy, dx
		}
		x, y = x+dx, y+dy
	}
	return out
}

// NextPosition returns the centre for the initial call, then walks outward
func (s *Spiral) NextPosition(ctx context.Context, initial bool) (geo.Position, bool) {
	if ctx.Err() != nil {
		return geo.Position{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shut {
		return geo.Position{}, false
	}
	if initial || !s.started {
		s.started = true
		s.idx = 0
		return s.points[0], true
	}
	s.idx++
	if s.idx >= len(s.points) {
		if !s.loop {
			s.idx = len(s.points)
			return geo.Position{}, false
		}
		s.idx = 0
	}
	return s.points[s.idx], true
}

// Backstep rewinds one step so the next position repeats the last one
func (s *Spiral) Backstep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx > 0 {
		s.idx--
	} else if s.loop && s.started {
		s.idx = len(s.points) - 1
	} else {
		s.started = false
	}
}

// HandleNearby tallies nearby entities per region
func (s *Spiral) HandleNearby(entities []domain.Nearby, region string, _ geo.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.regions[region]
	r.Nearby += len(entities)
	s.regions[region] = r
}

// HandleCatchable tallies catchable entities per region
func (s *Spiral) HandleCatchable(entities []encounters.Catchable, region string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.regions[region]
	r.Catchable += len(entities)
	s.regions[region] = r
}

// Shutdown makes every later NextPosition report exhaustion
func (s *Spiral) Shutdown() {
	s.mu.Lock()
	s.shut = true
	s.mu.Unlock()
}

// Regions copies the per-region tallies
func (s *Spiral) Regions() map[string]RegionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]RegionStats, len(s.regions))
	for k, v := range s.regions {
		out[k] = v
	}
	return out
}

// Len is the number of points in one pass
func (s *Spiral) Len() int { return len(s.points) }
