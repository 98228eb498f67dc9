// Package sample joins point-located field observations against a composite
// to build the labeled training table.
package sample

import (
	"log"

	"github.com/mokala/veldscan/internal/metrics"
	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/raster"
)

// Extract looks up the predictor vector at each observation's location.
// Observations outside composite coverage, or with any invalid band at their
// cell, are dropped and logged. Output order follows input order; no rows are
// merged or duplicated.
func Extract(comp *raster.Raster, observations []models.FieldObservation) (samples []models.LabeledSample, dropped int) {
	for _, obs := range observations {
		predictors, ok := comp.Sample(obs.Lat, obs.Lon)
		if !ok {
			log.Printf("extract: dropping %s (%.5f, %.5f): outside defined coverage", obs.ID, obs.Lat, obs.Lon)
			metrics.ObservationsDropped.WithLabelValues("no_coverage").Inc()
			dropped++
			continue
		}
		samples = append(samples, models.LabeledSample{
			ObservationID: obs.ID,
			Lat:           obs.Lat,
			Lon:           obs.Lon,
			Predictors:    predictors,
			Target:        obs.BiomassKgHa,
		})
	}
	return samples, dropped
}
