package models

import (
	"time"

	"github.com/mokala/veldscan/internal/raster"
)

// FieldObservation is one disc-pasture-meter reading at a surveyed point.
// Immutable once ingested; BiomassKgHa is derived exactly once from HeightCM.
type FieldObservation struct {
	ID          string
	Lat         float64
	Lon         float64
	HeightCM    float64
	MeasuredAt  time.Time
	BiomassKgHa float64
	QCFlags     string
}

// LabeledSample is one training row: composite band values at an observation's
// location plus the biomass target.
type LabeledSample struct {
	ObservationID string
	Lat           float64
	Lon           float64
	Predictors    map[raster.Band]float64
	Target        float64
}

// YearStatus classifies the outcome of one year of the time series.
type YearStatus string

const (
	YearComputed YearStatus = "computed"
	YearSkipped  YearStatus = "skipped" // no qualifying imagery
	YearFailed   YearStatus = "failed"
)

// YearlyResult is the area-wide mean biomass for one year. MeanBiomass is nil
// for skipped and failed years.
type YearlyResult struct {
	Year        int
	MeanBiomass *float64
	Pixels      int
	Scenes      int
	Status      YearStatus
	Err         string
}

// Metrics are hold-out validation scores for one fitted model.
type Metrics struct {
	RMSE      float64
	MAE       float64
	R2        float64
	TrainRows int
	TestRows  int
}

// RunSummary is everything one pipeline run produced.
type RunSummary struct {
	RunID        string
	Region       string
	BaselineYear int
	CreatedAt    time.Time
	Samples      int
	Dropped      int
	Metrics      Metrics
	Importances  map[raster.Band]float64
	Years        []YearlyResult
}
