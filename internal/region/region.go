package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang/geo/s2"
)

// ErrRegionNotFound is fatal: without a boundary nothing downstream is valid.
var ErrRegionNotFound = errors.New("region not found")

// Geometry is a single reserve boundary polygon on the sphere.
type Geometry struct {
	Name string
	loop *s2.Loop
	rect s2.Rect
}

// Contains reports whether the point lies inside the boundary.
func (g *Geometry) Contains(lat, lon float64) bool {
	return g.loop.ContainsPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
}

// Bound returns the geographic bounding box of the boundary.
func (g *Geometry) Bound() (minLat, minLon, maxLat, maxLon float64) {
	return g.rect.Lo().Lat.Degrees(), g.rect.Lo().Lng.Degrees(),
		g.rect.Hi().Lat.Degrees(), g.rect.Hi().Lng.Degrees()
}

// Centroid returns the polygon centroid in degrees.
func (g *Geometry) Centroid() (lat, lon float64) {
	ll := s2.LatLngFromPoint(s2.Point{Vector: g.loop.Centroid().Normalize()})
	return ll.Lat.Degrees(), ll.Lng.Degrees()
}

// FromRing builds a geometry from a ring of (lat, lon) vertices.
func FromRing(name string, ring [][2]float64) (*Geometry, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("region %q: ring needs at least 3 vertices, got %d", name, len(ring))
	}
	pts := make([]s2.Point, 0, len(ring))
	for _, v := range ring {
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(v[0], v[1])))
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return &Geometry{Name: name, loop: loop, rect: loop.RectBound()}, nil
}

// Source resolves region names against a GeoJSON catalog file.
type Source struct {
	regions map[string]*Geometry
}

type geojsonFile struct {
	Features []struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates [][][2]float64 `json:"coordinates"` // [ring][vertex][lon,lat]
		} `json:"geometry"`
	} `json:"features"`
}

// Load reads a FeatureCollection of named Polygon features. Only the outer
// ring of each polygon is used.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a Source from raw GeoJSON bytes.
func Parse(data []byte) (*Source, error) {
	var file geojsonFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse region catalog: %w", err)
	}

	src := &Source{regions: make(map[string]*Geometry)}
	for _, f := range file.Features {
		if f.Geometry.Type != "Polygon" || len(f.Geometry.Coordinates) == 0 {
			continue
		}
		name := strings.ToLower(f.Properties.Name)
		if name == "" {
			continue
		}
		outer := f.Geometry.Coordinates[0]
		ring := make([][2]float64, 0, len(outer))
		for _, c := range outer {
			ring = append(ring, [2]float64{c[1], c[0]}) // GeoJSON is lon,lat
		}
		geom, err := FromRing(name, ring)
		if err != nil {
			return nil, err
		}
		src.regions[name] = geom
	}
	return src, nil
}

// Resolve returns the boundary for a region name, case-insensitive.
func (s *Source) Resolve(name string) (*Geometry, error) {
	g, ok := s.regions[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRegionNotFound, name)
	}
	return g, nil
}

// Names lists the catalog's region names.
func (s *Source) Names() []string {
	out := make([]string, 0, len(s.regions))
	for name := range s.regions {
		out = append(out, name)
	}
	return out
}
