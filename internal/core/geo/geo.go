// Package geo holds the position type and great-circle math used by the scanner
package geo

import (
	"fmt"
	"math/rand/v2"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Position is a WGS84 coordinate in degrees
type Position struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"latitude"`
	Lng float64 `json:"lng" yaml:"lng" validate:"longitude"`
}

// Point converts to an orb point (lng, lat order)
func (p Position) Point() orb.Point { return orb.Point{p.Lng, p.Lat} }

// FromPoint converts an orb point back
func FromPoint(pt orb.Point) Position { return Position{Lat: pt.Lat(), Lng: pt.Lon()} }

// Valid reports whether the coordinate is on the globe
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Position) String() string { return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng) }

// DistanceMeters is the haversine distance on a spherical Earth
func DistanceMeters(a, b Position) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// Offset moves p by the given meters north and east
func Offset(p Position, north, east float64) Position {
	pt := orbgeo.PointAtBearingAndDistance(p.Point(), 0, north)
	pt = orbgeo.PointAtBearingAndDistance(pt, 90, east)
	return FromPoint(pt)
}

// Jitter perturbs a position before it is evaluated or sent
type Jitter func(Position) Position

// NoJitter returns the position untouched
func NoJitter(p Position) Position { return p }

// DefaultJitterDeg is the per-axis jitter amplitude in degrees
const DefaultJitterDeg = 0.00001

// UniformJitter returns a Jitter adding a uniform offset in [-maxDeg, +maxDeg] per axis
func UniformJitter(maxDeg float64) Jitter {
	if maxDeg <= 0 {
		return NoJitter
	}
	return func(p Position) Position {
		return Position{
			Lat: p.Lat + (rand.Float64()*2-1)*maxDeg,
			Lng: p.Lng + (rand.Float64()*2-1)*maxDeg,
		}
	}
}
