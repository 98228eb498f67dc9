package runner

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/mokala/veldscan/internal/composite"
	"github.com/mokala/veldscan/internal/forest"
	"github.com/mokala/veldscan/internal/metrics"
	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/raster"
	"github.com/mokala/veldscan/internal/region"
)

// RunSeries maps every year in [SeriesStartYear, SeriesEndYear] with the
// already-fitted model. Years are independent units of work: each reads only
// the boundary, the cloud ceiling, and the immutable model, so they run on a
// bounded worker pool. A year with no qualifying imagery is skipped, a year
// whose archive query fails is recorded as failed; neither cancels the rest.
func (r *Runner) RunSeries(ctx context.Context, geom *region.Geometry, model *forest.Forest) []models.YearlyResult {
	startYear, endYear := r.Cfg.SeriesStartYear, r.Cfg.SeriesEndYear
	years := make(chan int)
	results := make([]models.YearlyResult, 0, endYear-startYear+1)

	workers := r.Cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for year := range years {
				yr := r.mapYear(ctx, geom, model, year)
				metrics.SeriesYearsTotal.WithLabelValues(string(yr.Status)).Inc()
				mu.Lock()
				results = append(results, yr)
				mu.Unlock()
			}
		}()
	}

	for year := startYear; year <= endYear; year++ {
		years <- year
	}
	close(years)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Year < results[j].Year })
	return results
}

// mapYear builds one year's composite on the coarser series grid and
// averages the predicted surface over all defined pixels.
func (r *Runner) mapYear(ctx context.Context, geom *region.Geometry, model *forest.Forest, year int) models.YearlyResult {
	comp, scenes, err := r.Builder.BuildYear(ctx, geom, year, r.Cfg.SeriesScaleM)
	if errors.Is(err, composite.ErrNoScenes) {
		log.Printf("series: %d skipped: no qualifying imagery", year)
		return models.YearlyResult{Year: year, Status: models.YearSkipped}
	}
	if err != nil {
		log.Printf("series: %d failed: %v", year, err)
		return models.YearlyResult{Year: year, Status: models.YearFailed, Err: err.Error()}
	}

	surface := model.PredictRaster(comp)
	mean, pixels := surface.MeanDefined(raster.Biomass)
	if pixels == 0 {
		log.Printf("series: %d skipped: composite has no defined pixels", year)
		return models.YearlyResult{Year: year, Scenes: scenes, Status: models.YearSkipped}
	}

	log.Printf("series: %d mean biomass %.1f kg/ha over %d pixels (%d scenes)", year, mean, pixels, scenes)
	return models.YearlyResult{
		Year:        year,
		MeanBiomass: &mean,
		Pixels:      pixels,
		Scenes:      scenes,
		Status:      models.YearComputed,
	}
}
