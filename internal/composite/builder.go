// Package composite reduces a year of satellite scenes over a reserve into a
// single cloud-robust multi-band reflectance raster.
package composite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mokala/veldscan/internal/archive"
	"github.com/mokala/veldscan/internal/metrics"
	"github.com/mokala/veldscan/internal/raster"
	"github.com/mokala/veldscan/internal/region"
)

// ErrNoScenes means the archive holds no qualifying imagery for the window.
// It is a skip signal, not a failure, and never stands in for zero biomass.
var ErrNoScenes = errors.New("no qualifying scenes in window")

// Builder assembles per-year median composites from an archive.
type Builder struct {
	Archive         archive.Archive
	CloudCeilingPct float64 // exclusive upper bound
}

// New returns a builder with the given cloud ceiling.
func New(a archive.Archive, cloudCeilingPct float64) *Builder {
	return &Builder{Archive: a, CloudCeilingPct: cloudCeilingPct}
}

// YearWindow returns [Jan 1, next Jan 1) in UTC for a calendar year.
func YearWindow(year int) (start, end time.Time) {
	start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// BuildYear builds the composite for one calendar year at the given cell
// size, returning the scene count folded in. Returns ErrNoScenes when
// nothing qualifies.
func (b *Builder) BuildYear(ctx context.Context, geom *region.Geometry, year int, cellSizeM float64) (*raster.Raster, int, error) {
	start, end := YearWindow(year)
	return b.Build(ctx, geom, start, end, cellSizeM)
}

// Build queries the archive and reduces qualifying scenes per pixel:
// rescale digital numbers to reflectance, derive NDVI per scene, then take
// the per-band median across the scene stack. Cells outside the boundary
// are masked.
func (b *Builder) Build(ctx context.Context, geom *region.Geometry, start, end time.Time, cellSizeM float64) (*raster.Raster, int, error) {
	scenes, err := b.Archive.Query(ctx, geom, start, end, b.CloudCeilingPct)
	if err != nil {
		return nil, 0, fmt.Errorf("archive query: %w", err)
	}
	if len(scenes) == 0 {
		return nil, 0, fmt.Errorf("%w: %s %s..%s", ErrNoScenes, geom.Name,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	log.Printf("composite: %s %d..%d: %d scenes under %.0f%% cloud",
		geom.Name, start.Year(), end.Add(-time.Second).Year(), len(scenes), b.CloudCeilingPct)
	metrics.ScenesComposited.Add(float64(len(scenes)))

	minLat, minLon, maxLat, maxLon := geom.Bound()
	ref := raster.CoverBound(minLat, minLon, maxLat, maxLon, cellSizeM)
	out := raster.New(ref, raster.PredictorBands...)

	stack := make([]raster.Value, len(scenes))
	for y := 0; y < ref.Height; y++ {
		for x := 0; x < ref.Width; x++ {
			lat, lon := ref.CellCenter(x, y)
			if !geom.Contains(lat, lon) {
				continue // stays masked
			}
			for _, band := range raster.PredictorBands {
				for i := range scenes {
					stack[i] = sceneReflectance(&scenes[i], band, lat, lon)
				}
				if v := raster.Median(stack); v.Valid {
					out.Set(band, x, y, v.V)
				}
			}
		}
	}
	return out, len(scenes), nil
}

// sceneReflectance reads one scene's scaled value for a band, deriving NDVI
// from the scene's own red and near-infrared cells.
func sceneReflectance(s *archive.Scene, band raster.Band, lat, lon float64) raster.Value {
	if band == raster.NDVI {
		nir := scale(s.DN(raster.B8, lat, lon))
		red := scale(s.DN(raster.B4, lat, lon))
		return raster.NDVIValue(nir, red)
	}
	return scale(s.DN(band, lat, lon))
}

func scale(v raster.Value) raster.Value {
	if !v.Valid {
		return v
	}
	return raster.Value{V: v.V / raster.ReflectanceScale, Valid: true}
}
