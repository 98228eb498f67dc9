package raster

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Band identifies a spectral or derived band.
type Band string

const (
	B2   Band = "B2"
	B3   Band = "B3"
	B4   Band = "B4"
	B8   Band = "B8"
	B11  Band = "B11"
	B12  Band = "B12"
	NDVI Band = "NDVI"

	// Biomass is the single band of a prediction surface.
	Biomass Band = "biomass"
)

// PredictorBands is the fixed ordered band set the model is trained on.
var PredictorBands = []Band{B2, B3, B4, B8, B11, B12, NDVI}

// ReflectanceScale divides raw sensor digital numbers into reflectance fractions.
const ReflectanceScale = 10000.0

const metersPerDegree = 111320.0

// Value is one cell measurement. Invalid cells stay invalid through all
// band math; they are never coerced to zero.
type Value struct {
	V     float64
	Valid bool
}

// GridRef georeferences a grid: cell (0,0) is centered at (OriginLat, OriginLon),
// x grows east and y grows south, in a local equirectangular frame.
type GridRef struct {
	OriginLat float64 `json:"origin_lat"`
	OriginLon float64 `json:"origin_lon"`
	CellSizeM float64 `json:"cell_size_m"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// CoverBound builds a grid reference covering a lat/lon bounding box at the
// given cell size.
func CoverBound(minLat, minLon, maxLat, maxLon, cellSizeM float64) GridRef {
	degLat := cellSizeM / metersPerDegree
	degLon := cellSizeM / (metersPerDegree * math.Cos(maxLat*math.Pi/180))
	w := int(math.Ceil((maxLon-minLon)/degLon)) + 1
	h := int(math.Ceil((maxLat-minLat)/degLat)) + 1
	return GridRef{
		OriginLat: maxLat,
		OriginLon: minLon,
		CellSizeM: cellSizeM,
		Width:     w,
		Height:    h,
	}
}

// CellCenter returns the geographic center of cell (x, y).
func (g GridRef) CellCenter(x, y int) (lat, lon float64) {
	degLat := g.CellSizeM / metersPerDegree
	degLon := g.CellSizeM / (metersPerDegree * math.Cos(g.OriginLat*math.Pi/180))
	return g.OriginLat - float64(y)*degLat, g.OriginLon + float64(x)*degLon
}

// Locate maps a geographic point to the nearest cell. ok is false when the
// point falls outside the grid.
func (g GridRef) Locate(lat, lon float64) (x, y int, ok bool) {
	degLat := g.CellSizeM / metersPerDegree
	degLon := g.CellSizeM / (metersPerDegree * math.Cos(g.OriginLat*math.Pi/180))
	x = int(math.Round((lon - g.OriginLon) / degLon))
	y = int(math.Round((g.OriginLat - lat) / degLat))
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return 0, 0, false
	}
	return x, y, true
}

// Cells returns Width*Height.
func (g GridRef) Cells() int { return g.Width * g.Height }

// Raster is an in-memory multi-band grid with explicit per-cell validity.
type Raster struct {
	Ref   GridRef
	bands map[Band][]Value
}

// New allocates a raster with the given bands, all cells invalid.
func New(ref GridRef, bands ...Band) *Raster {
	r := &Raster{Ref: ref, bands: make(map[Band][]Value, len(bands))}
	for _, b := range bands {
		r.bands[b] = make([]Value, ref.Cells())
	}
	return r
}

// Bands lists the bands present, in PredictorBands order where applicable.
func (r *Raster) Bands() []Band {
	var out []Band
	for _, b := range PredictorBands {
		if _, ok := r.bands[b]; ok {
			out = append(out, b)
		}
	}
	if _, ok := r.bands[Biomass]; ok {
		out = append(out, Biomass)
	}
	return out
}

// HasBand reports whether band b is allocated.
func (r *Raster) HasBand(b Band) bool {
	_, ok := r.bands[b]
	return ok
}

// At returns the cell value for band b at (x, y).
func (r *Raster) At(b Band, x, y int) Value {
	cells, ok := r.bands[b]
	if !ok {
		return Value{}
	}
	return cells[y*r.Ref.Width+x]
}

// Set stores a valid value for band b at (x, y).
func (r *Raster) Set(b Band, x, y int, v float64) {
	r.bands[b][y*r.Ref.Width+x] = Value{V: v, Valid: true}
}

// Mask marks the cell invalid for band b.
func (r *Raster) Mask(b Band, x, y int) {
	r.bands[b][y*r.Ref.Width+x] = Value{}
}

// Sample returns the full predictor vector at a geographic point. ok is false
// when the point is outside the grid or any predictor band is invalid there.
func (r *Raster) Sample(lat, lon float64) (map[Band]float64, bool) {
	x, y, ok := r.Ref.Locate(lat, lon)
	if !ok {
		return nil, false
	}
	out := make(map[Band]float64, len(PredictorBands))
	for _, b := range PredictorBands {
		v := r.At(b, x, y)
		if !v.Valid {
			return nil, false
		}
		out[b] = v.V
	}
	return out, true
}

// NDVIValue computes (nir-red)/(nir+red), invalid when the denominator is zero
// or either input is invalid.
func NDVIValue(nir, red Value) Value {
	if !nir.Valid || !red.Valid {
		return Value{}
	}
	sum := nir.V + red.V
	if sum == 0 {
		return Value{}
	}
	return Value{V: (nir.V - red.V) / sum, Valid: true}
}

// Median reduces a stack of values to their median, ignoring invalid entries.
// The result is invalid when no entry is valid.
func Median(values []Value) Value {
	var defined []float64
	for _, v := range values {
		if v.Valid {
			defined = append(defined, v.V)
		}
	}
	if len(defined) == 0 {
		return Value{}
	}
	m, err := stats.Median(defined)
	if err != nil {
		return Value{}
	}
	return Value{V: m, Valid: true}
}

// MeanDefined averages all valid cells of one band. The second return is the
// count of valid cells; an all-invalid band yields (0, 0).
func (r *Raster) MeanDefined(b Band) (float64, int) {
	cells, ok := r.bands[b]
	if !ok {
		return 0, 0
	}
	var defined []float64
	for _, v := range cells {
		if v.Valid {
			defined = append(defined, v.V)
		}
	}
	if len(defined) == 0 {
		return 0, 0
	}
	m, err := stats.Mean(defined)
	if err != nil {
		return 0, 0
	}
	return m, len(defined)
}

// MinMaxDefined returns the range of valid cells of one band.
func (r *Raster) MinMaxDefined(b Band) (min, max float64, ok bool) {
	cells, present := r.bands[b]
	if !present {
		return 0, 0, false
	}
	for _, v := range cells {
		if !v.Valid {
			continue
		}
		if !ok {
			min, max, ok = v.V, v.V, true
			continue
		}
		if v.V < min {
			min = v.V
		}
		if v.V > max {
			max = v.V
		}
	}
	return min, max, ok
}

func (r *Raster) String() string {
	return fmt.Sprintf("raster %dx%d @%.0fm (%d bands)", r.Ref.Width, r.Ref.Height, r.Ref.CellSizeM, len(r.bands))
}
