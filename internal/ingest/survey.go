// Package ingest reads disc-pasture-meter survey drops and applies row-level
// quality control before anything reaches the pipeline.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/mokala/veldscan/internal/biomass"
	"github.com/mokala/veldscan/internal/metrics"
	"github.com/mokala/veldscan/internal/models"
)

// Survey CSV columns: id, latitude, longitude, height_cm, measured_at(RFC3339,
// optional). A header row is detected and skipped.
var expectedColumns = 5

// ParseSurvey reads a survey CSV. Rows failing QC are dropped and logged;
// surviving observations carry their derived biomass target.
func ParseSurvey(r io.Reader) ([]models.FieldObservation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []models.FieldObservation
	seen := make(map[string]bool)
	line := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("survey csv line %d: %w", line+1, err)
		}
		line++
		if line == 1 && looksLikeHeader(record) {
			continue
		}
		obs, flags, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("survey csv line %d: %w", line, err)
		}
		if seen[obs.ID] {
			flags = append(flags, FlagDuplicateID)
		}

		if len(flags) > 0 {
			log.Printf("ingest: dropping %s (%.5f, %.5f): %v", obs.ID, obs.Lat, obs.Lon, flags)
			for _, f := range flags {
				metrics.ObservationsDropped.WithLabelValues(f).Inc()
			}
			continue
		}

		kgHa, err := biomass.FromDiscHeight(obs.HeightCM)
		if err != nil {
			// QC should have caught this; belt and braces for NaN input.
			log.Printf("ingest: dropping %s: %v", obs.ID, err)
			metrics.ObservationsDropped.WithLabelValues(FlagNonPositiveHeight).Inc()
			continue
		}
		obs.BiomassKgHa = kgHa
		seen[obs.ID] = true
		out = append(out, obs)
	}
	return out, nil
}

func looksLikeHeader(record []string) bool {
	if len(record) < 2 {
		return false
	}
	_, err := strconv.ParseFloat(record[len(record)-1], 64)
	if err == nil {
		return false
	}
	_, err = strconv.ParseFloat(record[1], 64)
	return err != nil
}

func parseRow(record []string) (models.FieldObservation, []string, error) {
	var obs models.FieldObservation
	if len(record) < 4 {
		return obs, nil, fmt.Errorf("want at least 4 of %d columns, got %d", expectedColumns, len(record))
	}
	obs.ID = record[0]

	var err error
	if obs.Lat, err = strconv.ParseFloat(record[1], 64); err != nil {
		return obs, nil, fmt.Errorf("latitude: %w", err)
	}
	if obs.Lon, err = strconv.ParseFloat(record[2], 64); err != nil {
		return obs, nil, fmt.Errorf("longitude: %w", err)
	}
	if obs.HeightCM, err = strconv.ParseFloat(record[3], 64); err != nil {
		return obs, nil, fmt.Errorf("height_cm: %w", err)
	}
	if len(record) >= 5 && record[4] != "" {
		if obs.MeasuredAt, err = time.Parse(time.RFC3339, record[4]); err != nil {
			return obs, nil, fmt.Errorf("measured_at: %w", err)
		}
	}
	flags := Validate(&obs)
	obs.QCFlags = FlagsToJSON(flags)
	return obs, flags, nil
}
