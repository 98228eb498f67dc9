package composite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mokala/veldscan/internal/archive"
	"github.com/mokala/veldscan/internal/raster"
	"github.com/mokala/veldscan/internal/region"
)

type fakeArchive struct {
	scenes []archive.Scene
	err    error
}

func (f *fakeArchive) Query(ctx context.Context, geom *region.Geometry, start, end time.Time, maxCloudPct float64) ([]archive.Scene, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []archive.Scene
	for _, s := range f.scenes {
		if archive.Matches(&s, geom, start, end, maxCloudPct) {
			out = append(out, s)
		}
	}
	return out, nil
}

func squareRegion(t *testing.T) *region.Geometry {
	t.Helper()
	geom, err := region.FromRing("testveld", [][2]float64{
		{-29.12, 24.60},
		{-29.12, 24.62},
		{-29.10, 24.62},
		{-29.10, 24.60},
	})
	if err != nil {
		t.Fatalf("FromRing: %v", err)
	}
	return geom
}

// flatScene builds a scene covering the region with one constant DN per band.
func flatScene(geom *region.Geometry, id string, acquired time.Time, cloudPct float64, dn map[raster.Band]float64) archive.Scene {
	minLat, minLon, maxLat, maxLon := geom.Bound()
	ref := raster.CoverBound(minLat, minLon, maxLat, maxLon, 100)
	bands := make(map[raster.Band][]float64)
	for band, v := range dn {
		cells := make([]float64, ref.Cells())
		for i := range cells {
			cells[i] = v
		}
		bands[band] = cells
	}
	return archive.Scene{ID: id, AcquiredAt: acquired, CloudPct: cloudPct, Grid: ref, Bands: bands}
}

func flatDN(b2, b4, b8 float64) map[raster.Band]float64 {
	return map[raster.Band]float64{
		raster.B2: b2, raster.B3: b2, raster.B4: b4,
		raster.B8: b8, raster.B11: b2, raster.B12: b2,
	}
}

func TestBuildYear_MedianAndNDVI(t *testing.T) {
	geom := squareRegion(t)
	mid := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	arch := &fakeArchive{scenes: []archive.Scene{
		flatScene(geom, "a", mid, 5, flatDN(900, 1000, 5000)),
		flatScene(geom, "b", mid.AddDate(0, 1, 0), 5, flatDN(1000, 2000, 6000)),
		flatScene(geom, "c", mid.AddDate(0, 2, 0), 5, flatDN(1100, 9000, 7000)),
	}}

	comp, scenes, err := New(arch, 20).BuildYear(context.Background(), geom, 2023, 100)
	if err != nil {
		t.Fatalf("BuildYear: %v", err)
	}
	if scenes != 3 {
		t.Fatalf("scenes = %d, want 3", scenes)
	}

	clat, clon := geom.Centroid()
	got, ok := comp.Sample(clat, clon)
	if !ok {
		t.Fatal("centroid cell undefined")
	}
	if got[raster.B4] != 0.2 {
		t.Errorf("B4 median = %v, want 0.2", got[raster.B4])
	}
	if got[raster.B8] != 0.6 {
		t.Errorf("B8 median = %v, want 0.6", got[raster.B8])
	}
	// NDVI is derived per scene, then reduced: the median scene gives
	// (6000-2000)/(6000+2000).
	wantNDVI := (0.6 - 0.2) / (0.6 + 0.2)
	if diff := got[raster.NDVI] - wantNDVI; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("NDVI median = %v, want %v", got[raster.NDVI], wantNDVI)
	}
}

func TestBuildYear_CloudCeilingIsExclusive(t *testing.T) {
	geom := squareRegion(t)
	mid := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	arch := &fakeArchive{scenes: []archive.Scene{
		flatScene(geom, "clear", mid, 5, flatDN(1000, 1000, 5000)),
		flatScene(geom, "at-ceiling", mid, 20, flatDN(9000, 9000, 9000)),
		flatScene(geom, "cloudy", mid, 45, flatDN(9000, 9000, 9000)),
	}}

	_, scenes, err := New(arch, 20).BuildYear(context.Background(), geom, 2023, 100)
	if err != nil {
		t.Fatalf("BuildYear: %v", err)
	}
	if scenes != 1 {
		t.Errorf("scenes = %d, want 1 (ceiling is a strict bound)", scenes)
	}
}

func TestBuildYear_WindowIsCalendarYear(t *testing.T) {
	geom := squareRegion(t)
	arch := &fakeArchive{scenes: []archive.Scene{
		flatScene(geom, "dec-prior", time.Date(2022, time.December, 31, 23, 0, 0, 0, time.UTC), 5, flatDN(1000, 1000, 5000)),
		flatScene(geom, "jan", time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), 5, flatDN(1000, 1000, 5000)),
		flatScene(geom, "dec", time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC), 5, flatDN(1000, 1000, 5000)),
		flatScene(geom, "jan-next", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 5, flatDN(1000, 1000, 5000)),
	}}

	_, scenes, err := New(arch, 20).BuildYear(context.Background(), geom, 2023, 100)
	if err != nil {
		t.Fatalf("BuildYear: %v", err)
	}
	if scenes != 2 {
		t.Errorf("scenes = %d, want 2 (jan and dec only)", scenes)
	}
}

func TestBuildYear_NoScenes(t *testing.T) {
	geom := squareRegion(t)
	arch := &fakeArchive{}

	_, _, err := New(arch, 20).BuildYear(context.Background(), geom, 2023, 100)
	if !errors.Is(err, ErrNoScenes) {
		t.Fatalf("err = %v, want ErrNoScenes", err)
	}
}

func TestBuildYear_ArchiveFailure(t *testing.T) {
	geom := squareRegion(t)
	arch := &fakeArchive{err: fmt.Errorf("archive timeout")}

	_, _, err := New(arch, 20).BuildYear(context.Background(), geom, 2023, 100)
	if err == nil || errors.Is(err, ErrNoScenes) {
		t.Fatalf("err = %v, want a query failure distinct from ErrNoScenes", err)
	}
}

func TestBuildYear_NDVIZeroDenominatorPropagates(t *testing.T) {
	geom := squareRegion(t)
	mid := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	arch := &fakeArchive{scenes: []archive.Scene{
		flatScene(geom, "dark", mid, 5, flatDN(1000, 0, 0)),
	}}

	comp, _, err := New(arch, 20).BuildYear(context.Background(), geom, 2023, 100)
	if err != nil {
		t.Fatalf("BuildYear: %v", err)
	}

	clat, clon := geom.Centroid()
	x, y, ok := comp.Ref.Locate(clat, clon)
	if !ok {
		t.Fatal("centroid outside grid")
	}
	if comp.At(raster.NDVI, x, y).Valid {
		t.Error("NDVI defined at B8+B4 = 0, want undefined")
	}
	if !comp.At(raster.B2, x, y).Valid {
		t.Error("B2 undefined, want defined")
	}
}

func TestBuildYear_TruncatedSceneBand(t *testing.T) {
	// A scene whose band array is shorter than its grid claims must degrade
	// to nodata cells, not abort the build.
	geom := squareRegion(t)
	mid := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	s := flatScene(geom, "cut", mid, 5, flatDN(1000, 1000, 5000))
	s.Bands[raster.B4] = s.Bands[raster.B4][:3]
	arch := &fakeArchive{scenes: []archive.Scene{s}}

	comp, _, err := New(arch, 20).BuildYear(context.Background(), geom, 2023, 100)
	if err != nil {
		t.Fatalf("BuildYear: %v", err)
	}

	clat, clon := geom.Centroid()
	x, y, ok := comp.Ref.Locate(clat, clon)
	if !ok {
		t.Fatal("centroid outside grid")
	}
	if comp.At(raster.B4, x, y).Valid {
		t.Error("B4 defined beyond the truncated band, want nodata")
	}
	if !comp.At(raster.B2, x, y).Valid {
		t.Error("intact B2 band lost its value")
	}
}

func TestBuildYear_MasksOutsideRegion(t *testing.T) {
	// Triangle region: the bounding-box corner opposite the hypotenuse is
	// inside the grid but outside the boundary.
	geom, err := region.FromRing("triangle", [][2]float64{
		{-29.12, 24.60},
		{-29.10, 24.60},
		{-29.10, 24.62},
	})
	if err != nil {
		t.Fatalf("FromRing: %v", err)
	}
	mid := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	arch := &fakeArchive{scenes: []archive.Scene{
		flatScene(geom, "a", mid, 5, flatDN(1000, 1000, 5000)),
	}}

	comp, _, err := New(arch, 20).BuildYear(context.Background(), geom, 2023, 100)
	if err != nil {
		t.Fatalf("BuildYear: %v", err)
	}

	// The south-east bbox corner is outside the triangle.
	if comp.At(raster.B2, comp.Ref.Width-1, comp.Ref.Height-1).Valid {
		t.Error("cell outside boundary defined, want masked")
	}
}
