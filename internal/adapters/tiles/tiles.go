// Package tiles maps positions onto web mercator tiles: a scan covers the
// tile under the position plus a ring of neighbours, and cells group into
// coarser region tiles for the movement strategy
package tiles

import (
	"fmt"

	"nocscan/internal/core/geo"

	"github.com/paulmach/orb/maptile"
)

// Defaults approximate the remote service's cell and region sizes
const (
	DefaultCellZoom   maptile.Zoom = 17
	DefaultRegionZoom maptile.Zoom = 13
	DefaultRing                    = 1
)

// Tiler implements the scanner Tiler port
type Tiler struct {
	cell   maptile.Zoom
	region maptile.Zoom
	ring   int
}

// New builds a Tiler; zero values select the defaults and region zoom is capped at cell zoom
func New(cellZoom, regionZoom maptile.Zoom, ring int) *Tiler {
	if cellZoom == 0 {
		cellZoom = DefaultCellZoom
	}
	if regionZoom == 0 {
		regionZoom = DefaultRegionZoom
	}
	if regionZoom > cellZoom {
		regionZoom = cellZoom
	}
	if ring < 0 {
		ring = DefaultRing
	}
	return &Tiler{cell: cellZoom, region: regionZoom, ring: ring}
}

// CellIDs returns the quadkeys of the tile under p and its neighbours, centre first
func (t *Tiler) CellIDs(p geo.Position) []uint64 {
	centre := maptile.At(p.Point(), t.cell)
	side := int64(1) << uint(t.cell)

	out := make([]uint64, 0, (2*t.ring+1)*(2*t.ring+1))
	out = append(out, centre.Quadkey())
	for dy := -t.ring; dy <= t.ring; dy++ {
		for dx := -t.ring; dx <= t.ring; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			y := int64(centre.Y) + int64(dy)
			if y < 0 || y >= side {
				continue
			}
			x := (int64(centre.X) + int64(dx) + side) % side
			out = append(out, maptile.New(uint32(x), uint32(y), t.cell).Quadkey())
		}
	}
	return out
}

// RegionKey names the region tile a cell falls in as "z/x/y"
func (t *Tiler) RegionKey(cellID uint64) string {
	tile := maptile.FromQuadkey(cellID, t.cell)
	shift := uint(t.cell - t.region)
	return fmt.Sprintf("%d/%d/%d", t.region, tile.X>>shift, tile.Y>>shift)
}

// Centre returns the centre of a cell
func (t *Tiler) Centre(cellID uint64) geo.Position {
	return geo.FromPoint(maptile.FromQuadkey(cellID, t.cell).Center())
}
