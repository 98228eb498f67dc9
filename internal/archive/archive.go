// Package archive provides access to the satellite scene archive: queryable
// collections of multi-band rasters with acquisition time and cloud-cover
// metadata.
package archive

import (
	"context"
	"time"

	"github.com/mokala/veldscan/internal/raster"
	"github.com/mokala/veldscan/internal/region"
)

// Scene is one acquired multi-band image. Band grids hold raw digital
// numbers; negative values mean nodata.
type Scene struct {
	ID         string                    `json:"id"`
	AcquiredAt time.Time                 `json:"acquired_at"`
	CloudPct   float64                   `json:"cloud_pct"`
	Grid       raster.GridRef            `json:"grid"`
	Bands      map[raster.Band][]float64 `json:"bands"`
}

// DN returns the raw digital number for band b at the scene cell nearest to
// the given point. Invalid outside the scene footprint, for missing bands,
// and for nodata cells.
func (s *Scene) DN(b raster.Band, lat, lon float64) raster.Value {
	cells, ok := s.Bands[b]
	if !ok {
		return raster.Value{}
	}
	x, y, ok := s.Grid.Locate(lat, lon)
	if !ok {
		return raster.Value{}
	}
	i := y*s.Grid.Width + x
	if i >= len(cells) {
		// Truncated band grid: treat the cell as nodata.
		return raster.Value{}
	}
	dn := cells[i]
	if dn < 0 {
		return raster.Value{}
	}
	return raster.Value{V: dn, Valid: true}
}

// Archive is the imagery archive contract: all scenes intersecting the region
// acquired in [start, end) with cloud cover strictly below maxCloudPct.
type Archive interface {
	Query(ctx context.Context, geom *region.Geometry, start, end time.Time, maxCloudPct float64) ([]Scene, error)
}

// Matches applies the query predicate to one scene's metadata.
func Matches(s *Scene, geom *region.Geometry, start, end time.Time, maxCloudPct float64) bool {
	if s.CloudPct >= maxCloudPct {
		return false
	}
	if s.AcquiredAt.Before(start) || !s.AcquiredAt.Before(end) {
		return false
	}
	return intersects(s, geom)
}

// intersects is a footprint test: any scene corner inside the region, or the
// region centroid inside the scene.
func intersects(s *Scene, geom *region.Geometry) bool {
	corners := [][2]int{{0, 0}, {s.Grid.Width - 1, 0}, {0, s.Grid.Height - 1}, {s.Grid.Width - 1, s.Grid.Height - 1}}
	for _, c := range corners {
		lat, lon := s.Grid.CellCenter(c[0], c[1])
		if geom.Contains(lat, lon) {
			return true
		}
	}
	clat, clon := geom.Centroid()
	_, _, ok := s.Grid.Locate(clat, clon)
	return ok
}
