// Package runner orchestrates the full pipeline: survey ingest, composite
// construction, model fit and validation, full-area mapping, and the yearly
// time series.
package runner

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mokala/veldscan/internal/composite"
	"github.com/mokala/veldscan/internal/config"
	"github.com/mokala/veldscan/internal/eval"
	"github.com/mokala/veldscan/internal/export"
	"github.com/mokala/veldscan/internal/forest"
	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/raster"
	"github.com/mokala/veldscan/internal/region"
	"github.com/mokala/veldscan/internal/report"
	"github.com/mokala/veldscan/internal/sample"
	"github.com/mokala/veldscan/internal/split"
	"github.com/mokala/veldscan/internal/store"
)

// RegionResolver is the boundary source contract.
type RegionResolver interface {
	Resolve(name string) (*region.Geometry, error)
}

// Runner owns the collaborators for one pipeline run.
type Runner struct {
	Regions  RegionResolver
	Builder  *composite.Builder
	Store    *store.Store // optional
	Exports  export.Sink  // optional
	Reporter report.Reporter
	Cfg      config.Config
}

// Run executes the baseline pipeline and, when the config names a series
// range, the yearly time series. Structural failures (unknown region, empty
// training table, degenerate validation set) abort; data-quality issues on
// individual rows or years are dropped or skipped and logged.
func (r *Runner) Run(ctx context.Context, observations []models.FieldObservation) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:        uuid.NewString(),
		Region:       r.Cfg.Region,
		BaselineYear: r.Cfg.BaselineYear,
		CreatedAt:    time.Now().UTC(),
	}
	log.Printf("run %s: region=%s baseline=%d observations=%d",
		summary.RunID, r.Cfg.Region, r.Cfg.BaselineYear, len(observations))

	geom, err := r.Regions.Resolve(r.Cfg.Region)
	if err != nil {
		return nil, err
	}

	model, comp, samples, dropped, err := r.fitBaseline(ctx, geom, observations, summary)
	if err != nil {
		return nil, err
	}
	summary.Samples = len(samples)
	summary.Dropped = dropped
	summary.Importances = model.Importances()

	r.persistBaseline(summary, samples)
	if r.Reporter != nil {
		r.Reporter.Metrics(summary.Metrics, summary.Importances)
	}

	r.exportBaseline(comp, model, samples, summary)

	if r.Cfg.SeriesStartYear != 0 {
		summary.Years = r.RunSeries(ctx, geom, model)
		r.persistSeries(summary)
		if r.Reporter != nil {
			r.Reporter.Series("mean_biomass_kg_ha", report.SeriesFromYears(summary.Years))
		}
		r.exportSeries(summary)
	}
	return summary, nil
}

func (r *Runner) fitBaseline(ctx context.Context, geom *region.Geometry, observations []models.FieldObservation, summary *models.RunSummary) (*forest.Forest, *raster.Raster, []models.LabeledSample, int, error) {
	comp, scenes, err := r.Builder.BuildYear(ctx, geom, r.Cfg.BaselineYear, r.Cfg.ExportScaleM)
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("baseline composite: %w", err)
	}
	log.Printf("run %s: baseline composite from %d scenes", summary.RunID, scenes)

	samples, dropped := sample.Extract(comp, observations)
	train, test := split.Partition(samples, r.Cfg.TrainFraction, r.Cfg.SplitSeed)
	log.Printf("run %s: %d samples (%d dropped), split %d train / %d test",
		summary.RunID, len(samples), dropped, len(train), len(test))

	model, err := forest.Fit(train, forest.Config{
		Trees:       r.Cfg.Trees,
		MinLeaf:     r.Cfg.MinLeaf,
		BagFraction: r.Cfg.BagFraction,
		Seed:        r.Cfg.ModelSeed,
	})
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("fit: %w", err)
	}

	metrics, err := eval.Evaluate(model, test)
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("validate: %w", err)
	}
	metrics.TrainRows = len(train)
	summary.Metrics = metrics
	return model, comp, samples, dropped, nil
}

// exportBaseline writes the full-resolution biomass map and the labeled
// table. Export failures are logged and recorded, never fatal.
func (r *Runner) exportBaseline(comp *raster.Raster, model *forest.Forest, samples []models.LabeledSample, summary *models.RunSummary) {
	if r.Exports == nil {
		return
	}

	surface := model.PredictRaster(comp)
	dest := fmt.Sprintf("biomass_%s_%d.png", summary.Region, summary.BaselineYear)
	if err := r.Exports.WriteRaster(surface, raster.Biomass, dest); err != nil {
		log.Printf("run %s: export raster: %v", summary.RunID, err)
	}

	header := []string{"observation_id", "latitude", "longitude", "b2", "b3", "b4", "b8", "b11", "b12", "ndvi", "biomass_kg_ha"}
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			s.ObservationID,
			strconv.FormatFloat(s.Lat, 'f', 6, 64),
			strconv.FormatFloat(s.Lon, 'f', 6, 64),
			strconv.FormatFloat(s.Predictors[raster.B2], 'f', 4, 64),
			strconv.FormatFloat(s.Predictors[raster.B3], 'f', 4, 64),
			strconv.FormatFloat(s.Predictors[raster.B4], 'f', 4, 64),
			strconv.FormatFloat(s.Predictors[raster.B8], 'f', 4, 64),
			strconv.FormatFloat(s.Predictors[raster.B11], 'f', 4, 64),
			strconv.FormatFloat(s.Predictors[raster.B12], 'f', 4, 64),
			strconv.FormatFloat(s.Predictors[raster.NDVI], 'f', 4, 64),
			strconv.FormatFloat(s.Target, 'f', 1, 64),
		})
	}
	if err := r.Exports.WriteTable(header, rows, fmt.Sprintf("samples_%s.csv", summary.RunID)); err != nil {
		log.Printf("run %s: export samples: %v", summary.RunID, err)
	}
}

func (r *Runner) exportSeries(summary *models.RunSummary) {
	if r.Exports == nil || len(summary.Years) == 0 {
		return
	}
	header := []string{"year", "mean_biomass_kg_ha", "pixels", "scenes", "status", "error"}
	rows := make([][]string, 0, len(summary.Years))
	for _, yr := range summary.Years {
		mean := ""
		if yr.MeanBiomass != nil {
			mean = strconv.FormatFloat(*yr.MeanBiomass, 'f', 1, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(yr.Year), mean, strconv.Itoa(yr.Pixels), strconv.Itoa(yr.Scenes),
			string(yr.Status), yr.Err,
		})
	}
	if err := r.Exports.WriteTable(header, rows, fmt.Sprintf("series_%s.csv", summary.RunID)); err != nil {
		log.Printf("run %s: export series: %v", summary.RunID, err)
	}
}

func (r *Runner) persistBaseline(summary *models.RunSummary, samples []models.LabeledSample) {
	if r.Store == nil {
		return
	}
	if err := r.Store.InsertRun(*summary, r.Cfg.Trees, r.Cfg.MinLeaf, r.Cfg.BagFraction,
		r.Cfg.ModelSeed, r.Cfg.SplitSeed, r.Cfg.TrainFraction, r.Cfg.CloudCeilingPct); err != nil {
		log.Printf("run %s: persist run: %v", summary.RunID, err)
		return
	}
	if err := r.Store.InsertMetrics(summary.RunID, summary.Metrics); err != nil {
		log.Printf("run %s: persist metrics: %v", summary.RunID, err)
	}
	if err := r.Store.InsertImportances(summary.RunID, summary.Importances); err != nil {
		log.Printf("run %s: persist importances: %v", summary.RunID, err)
	}
	for _, s := range samples {
		if err := r.Store.InsertSample(summary.RunID, s); err != nil {
			log.Printf("run %s: persist sample %s: %v", summary.RunID, s.ObservationID, err)
		}
	}
}

func (r *Runner) persistSeries(summary *models.RunSummary) {
	if r.Store == nil {
		return
	}
	for _, yr := range summary.Years {
		if err := r.Store.UpsertYearlyResult(summary.RunID, yr); err != nil {
			log.Printf("run %s: persist year %d: %v", summary.RunID, yr.Year, err)
		}
	}
}
