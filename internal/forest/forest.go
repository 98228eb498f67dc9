// Package forest implements the averaging ensemble of regression trees used
// to map disc-pasture biomass from reflectance composites.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/raster"
)

// ErrInsufficientTrainingData is fatal for the fit step; there is no
// fallback model.
var ErrInsufficientTrainingData = errors.New("insufficient training data")

// Config holds the fit hyperparameters. Identical training table + identical
// seed reproduce the identical model.
type Config struct {
	Trees       int
	MinLeaf     int
	BagFraction float64
	Seed        int64
}

// DefaultConfig matches the calibrated baseline: 500 trees, min leaf 5,
// bootstrap fraction 0.7, seed 42.
func DefaultConfig() Config {
	return Config{Trees: 500, MinLeaf: 5, BagFraction: 0.7, Seed: 42}
}

// Forest is a fitted ensemble. It is immutable after Fit and safe for
// concurrent reads.
type Forest struct {
	features    []raster.Band
	trees       []*tree
	importances []float64
}

// Fit trains the ensemble on a labeled table. Each tree sees a bootstrap
// resample of BagFraction*n rows drawn with a per-tree deterministic RNG.
func Fit(samples []models.LabeledSample, cfg Config) (*Forest, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: 0 training rows", ErrInsufficientTrainingData)
	}
	if cfg.Trees <= 0 || cfg.MinLeaf <= 0 || cfg.BagFraction <= 0 || cfg.BagFraction > 1 {
		return nil, fmt.Errorf("forest: bad config %+v", cfg)
	}

	features := raster.PredictorBands
	x := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		row := make([]float64, len(features))
		for j, b := range features {
			row[j] = s.Predictors[b]
		}
		x[i] = row
		y[i] = s.Target
	}

	bag := int(math.Round(cfg.BagFraction * float64(len(samples))))
	if bag < 1 {
		bag = 1
	}

	f := &Forest{
		features:    features,
		trees:       make([]*tree, cfg.Trees),
		importances: make([]float64, len(features)),
	}
	for t := 0; t < cfg.Trees; t++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))
		idx := make([]int, bag)
		for i := range idx {
			idx[i] = rng.Intn(len(samples))
		}
		f.trees[t] = growTree(x, y, idx, cfg.MinLeaf, rng, f.importances)
	}

	var total float64
	for _, v := range f.importances {
		total += v
	}
	if total > 0 {
		for i := range f.importances {
			f.importances[i] /= total
		}
	}
	return f, nil
}

// Predict returns the mean of all trees' leaf predictions for one predictor
// vector.
func (f *Forest) Predict(predictors map[raster.Band]float64) float64 {
	row := make([]float64, len(f.features))
	for j, b := range f.features {
		row[j] = predictors[b]
	}
	return f.predictRow(row)
}

func (f *Forest) predictRow(row []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(f.trees))
}

// PredictRaster applies the model per pixel, producing a single-band biomass
// surface on the composite's grid. Cells with any invalid predictor band stay
// invalid; partial vectors are never completed.
func (f *Forest) PredictRaster(comp *raster.Raster) *raster.Raster {
	out := raster.New(comp.Ref, raster.Biomass)
	row := make([]float64, len(f.features))
	for y := 0; y < comp.Ref.Height; y++ {
	cells:
		for x := 0; x < comp.Ref.Width; x++ {
			for j, b := range f.features {
				v := comp.At(b, x, y)
				if !v.Valid {
					continue cells
				}
				row[j] = v.V
			}
			out.Set(raster.Biomass, x, y, f.predictRow(row))
		}
	}
	return out
}

// Importances returns per-band impurity-reduction scores normalized to sum
// to 1.0. Scores are comparable only within this fitted instance.
func (f *Forest) Importances() map[raster.Band]float64 {
	out := make(map[raster.Band]float64, len(f.features))
	for j, b := range f.features {
		out[b] = f.importances[j]
	}
	return out
}
