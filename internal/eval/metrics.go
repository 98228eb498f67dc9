// Package eval scores a fitted model against a held-out labeled table.
package eval

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/raster"
)

// ErrDegenerateValidationSet means every observed target is identical, so
// the R² denominator is zero. Fatal for the validation step.
var ErrDegenerateValidationSet = errors.New("degenerate validation set: zero target variance")

// ErrEmptyValidationSet means there is nothing to score against.
var ErrEmptyValidationSet = errors.New("empty validation set")

// Predictor is what the evaluator needs from a fitted model.
type Predictor interface {
	Predict(predictors map[raster.Band]float64) float64
}

// Evaluate predicts every test row and computes:
//
//	RMSE = sqrt(mean(error²))
//	MAE  = mean(|error|)
//	R²   = 1 − sum(error²) / sum((observed − mean(observed))²)
//
// with error = predicted − observed.
func Evaluate(model Predictor, test []models.LabeledSample) (models.Metrics, error) {
	if len(test) == 0 {
		return models.Metrics{}, ErrEmptyValidationSet
	}

	observed := make([]float64, len(test))
	var sumSqErr, sumAbsErr float64
	for i, s := range test {
		observed[i] = s.Target
		err := model.Predict(s.Predictors) - s.Target
		sumSqErr += err * err
		sumAbsErr += math.Abs(err)
	}

	obsMean, err := stats.Mean(observed)
	if err != nil {
		return models.Metrics{}, err
	}
	var totalSq float64
	for _, o := range observed {
		d := o - obsMean
		totalSq += d * d
	}
	if totalSq == 0 {
		return models.Metrics{}, fmt.Errorf("%w: %d rows, all targets %.3f",
			ErrDegenerateValidationSet, len(test), obsMean)
	}

	n := float64(len(test))
	return models.Metrics{
		RMSE:     math.Sqrt(sumSqErr / n),
		MAE:      sumAbsErr / n,
		R2:       1 - sumSqErr/totalSq,
		TestRows: len(test),
	}, nil
}
