package region

import (
	"errors"
	"testing"
)

const testCatalog = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"name": "Mokala"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[
          [24.60, -29.20],
          [24.72, -29.20],
          [24.72, -29.10],
          [24.60, -29.10],
          [24.60, -29.20]
        ]]
      }
    }
  ]
}`

func TestResolve(t *testing.T) {
	src, err := Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	geom, err := src.Resolve("mokala")
	if err != nil {
		t.Fatalf("Resolve(mokala): %v", err)
	}
	if geom.Name != "mokala" {
		t.Errorf("Name = %q, want mokala", geom.Name)
	}

	// Case-insensitive.
	if _, err := src.Resolve("MOKALA"); err != nil {
		t.Errorf("Resolve(MOKALA): %v", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	src, err := Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = src.Resolve("atlantis")
	if !errors.Is(err, ErrRegionNotFound) {
		t.Errorf("Resolve(atlantis) err = %v, want ErrRegionNotFound", err)
	}
}

func TestContains(t *testing.T) {
	src, err := Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	geom, err := src.Resolve("mokala")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"center", -29.15, 24.66, true},
		{"near west edge", -29.15, 24.605, true},
		{"outside north", -29.05, 24.66, false},
		{"outside east", -29.15, 24.80, false},
		{"antipode", 29.15, -155.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := geom.Contains(tt.lat, tt.lon); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestBoundAndCentroid(t *testing.T) {
	src, _ := Parse([]byte(testCatalog))
	geom, err := src.Resolve("mokala")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	minLat, minLon, maxLat, maxLon := geom.Bound()
	if minLat > -29.19 || maxLat < -29.11 || minLon > 24.61 || maxLon < 24.71 {
		t.Errorf("Bound = (%v, %v, %v, %v) does not cover the square", minLat, minLon, maxLat, maxLon)
	}

	clat, clon := geom.Centroid()
	if clat < -29.20 || clat > -29.10 || clon < 24.60 || clon > 24.72 {
		t.Errorf("Centroid (%v, %v) outside the square", clat, clon)
	}
}
