package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/raster"
)

// constantModel predicts the same value for every row.
type constantModel float64

func (m constantModel) Predict(map[raster.Band]float64) float64 { return float64(m) }

// echoModel predicts the NDVI predictor scaled, matching how the test tables
// below derive their targets.
type echoModel struct{ scale float64 }

func (m echoModel) Predict(p map[raster.Band]float64) float64 {
	return m.scale * p[raster.NDVI]
}

func row(id string, ndvi, target float64) models.LabeledSample {
	return models.LabeledSample{
		ObservationID: id,
		Predictors:    map[raster.Band]float64{raster.NDVI: ndvi},
		Target:        target,
	}
}

func TestEvaluate_PerfectPredictions(t *testing.T) {
	test := []models.LabeledSample{
		row("a", 0.2, 400),
		row("b", 0.4, 800),
		row("c", 0.6, 1200),
	}

	m, err := Evaluate(echoModel{scale: 2000}, test)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m.RMSE != 0 || m.MAE != 0 {
		t.Errorf("RMSE = %v, MAE = %v; want 0, 0", m.RMSE, m.MAE)
	}
	if m.R2 != 1 {
		t.Errorf("R2 = %v, want 1", m.R2)
	}
	if m.TestRows != 3 {
		t.Errorf("TestRows = %d, want 3", m.TestRows)
	}
}

func TestEvaluate_KnownErrors(t *testing.T) {
	// Constant prediction 600 against targets 400 and 800: both errors have
	// magnitude 200.
	test := []models.LabeledSample{
		row("a", 0, 400),
		row("b", 0, 800),
	}

	m, err := Evaluate(constantModel(600), test)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m.RMSE != 200 {
		t.Errorf("RMSE = %v, want 200", m.RMSE)
	}
	if m.MAE != 200 {
		t.Errorf("MAE = %v, want 200", m.MAE)
	}
	// Predicting the mean of the targets gives R² = 0 exactly.
	if math.Abs(m.R2) > 1e-12 {
		t.Errorf("R2 = %v, want 0", m.R2)
	}
}

func TestEvaluate_RMSEAtLeastMAE(t *testing.T) {
	test := []models.LabeledSample{
		row("a", 0.1, 500),
		row("b", 0.3, 900),
		row("c", 0.5, 1400),
		row("d", 0.7, 2100),
	}

	m, err := Evaluate(constantModel(1000), test)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m.RMSE < m.MAE {
		t.Errorf("RMSE %v < MAE %v", m.RMSE, m.MAE)
	}
	if m.R2 > 1 {
		t.Errorf("R2 = %v, want <= 1", m.R2)
	}
}

func TestEvaluate_DegenerateTargets(t *testing.T) {
	test := []models.LabeledSample{
		row("a", 0.2, 750),
		row("b", 0.5, 750),
		row("c", 0.8, 750),
	}

	_, err := Evaluate(constantModel(750), test)
	if !errors.Is(err, ErrDegenerateValidationSet) {
		t.Fatalf("err = %v, want ErrDegenerateValidationSet", err)
	}
}

func TestEvaluate_EmptySet(t *testing.T) {
	_, err := Evaluate(constantModel(0), nil)
	if !errors.Is(err, ErrEmptyValidationSet) {
		t.Fatalf("err = %v, want ErrEmptyValidationSet", err)
	}
}
