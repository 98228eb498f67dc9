// Package report pushes run results to display surfaces. The pipeline only
// pushes values; rendering is the consumer's concern.
package report

import (
	"log"
	"sort"

	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/raster"
)

// Point is one (x, y) chart sample.
type Point struct {
	X float64
	Y float64
}

// Reporter accepts scalar metrics and chart series for display.
type Reporter interface {
	Metrics(m models.Metrics, importances map[raster.Band]float64)
	Series(name string, points []Point)
}

// LogReporter prints metrics and series to the process log.
type LogReporter struct{}

func (LogReporter) Metrics(m models.Metrics, importances map[raster.Band]float64) {
	log.Printf("report: RMSE=%.2f MAE=%.2f R2=%.3f (train=%d test=%d)",
		m.RMSE, m.MAE, m.R2, m.TrainRows, m.TestRows)

	type ranked struct {
		band  raster.Band
		score float64
	}
	var order []ranked
	for b, s := range importances {
		order = append(order, ranked{b, s})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].band < order[j].band
	})
	for _, r := range order {
		log.Printf("report: importance %-5s %.3f", r.band, r.score)
	}
}

func (LogReporter) Series(name string, points []Point) {
	for _, p := range points {
		log.Printf("report: %s %.0f %.1f", name, p.X, p.Y)
	}
}

// SeriesFromYears converts yearly results into a chart series, skipping
// years without a mean.
func SeriesFromYears(years []models.YearlyResult) []Point {
	var pts []Point
	for _, yr := range years {
		if yr.MeanBiomass == nil {
			continue
		}
		pts = append(pts, Point{X: float64(yr.Year), Y: *yr.MeanBiomass})
	}
	return pts
}

// MultiReporter fans out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) Metrics(metrics models.Metrics, importances map[raster.Band]float64) {
	for _, r := range m {
		r.Metrics(metrics, importances)
	}
}

func (m MultiReporter) Series(name string, points []Point) {
	for _, r := range m {
		r.Series(name, points)
	}
}
