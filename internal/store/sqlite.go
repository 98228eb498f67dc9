package store

import (
	"database/sql"

	"github.com/mokala/veldscan/internal/models"
	"github.com/mokala/veldscan/internal/raster"
)

// Store persists field observations and run history in sqlite.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertObservation records a field observation, replacing any earlier copy
// with the same ID.
func (s *Store) UpsertObservation(obs models.FieldObservation) error {
	_, err := s.db.Exec(`
		INSERT INTO observations (id, latitude, longitude, height_cm, biomass_kg_ha, measured_at, qc_flags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			height_cm = excluded.height_cm,
			biomass_kg_ha = excluded.biomass_kg_ha,
			measured_at = excluded.measured_at,
			qc_flags = excluded.qc_flags
	`, obs.ID, obs.Lat, obs.Lon, obs.HeightCM, obs.BiomassKgHa, obs.MeasuredAt, obs.QCFlags)
	return err
}

// GetObservations returns all stored observations ordered by ID.
func (s *Store) GetObservations() ([]models.FieldObservation, error) {
	rows, err := s.db.Query(`
		SELECT id, latitude, longitude, height_cm, biomass_kg_ha, measured_at, qc_flags
		FROM observations ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FieldObservation
	for rows.Next() {
		var obs models.FieldObservation
		if err := rows.Scan(&obs.ID, &obs.Lat, &obs.Lon, &obs.HeightCM, &obs.BiomassKgHa, &obs.MeasuredAt, &obs.QCFlags); err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// InsertRun records run identity and hyperparameters.
func (s *Store) InsertRun(summary models.RunSummary, trees, minLeaf int, bagFraction float64, modelSeed, splitSeed int64, trainFraction, cloudCeiling float64) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, region, baseline_year, trees, min_leaf, bag_fraction, model_seed, split_seed, train_fraction, cloud_ceiling_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, summary.RunID, summary.Region, summary.BaselineYear, trees, minLeaf, bagFraction, modelSeed, splitSeed, trainFraction, cloudCeiling, summary.CreatedAt)
	return err
}

// InsertMetrics records hold-out scores for a run.
func (s *Store) InsertMetrics(runID string, m models.Metrics) error {
	_, err := s.db.Exec(`
		INSERT INTO run_metrics (run_id, rmse, mae, r2, train_rows, test_rows)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			rmse = excluded.rmse, mae = excluded.mae, r2 = excluded.r2,
			train_rows = excluded.train_rows, test_rows = excluded.test_rows
	`, runID, m.RMSE, m.MAE, m.R2, m.TrainRows, m.TestRows)
	return err
}

// InsertImportances records the per-band importance ranking for a run.
func (s *Store) InsertImportances(runID string, importances map[raster.Band]float64) error {
	for band, score := range importances {
		if _, err := s.db.Exec(`
			INSERT INTO run_importances (run_id, band, score) VALUES (?, ?, ?)
			ON CONFLICT(run_id, band) DO UPDATE SET score = excluded.score
		`, runID, string(band), score); err != nil {
			return err
		}
	}
	return nil
}

// InsertSample records one labeled training row for a run.
func (s *Store) InsertSample(runID string, sm models.LabeledSample) error {
	_, err := s.db.Exec(`
		INSERT INTO samples (run_id, observation_id, latitude, longitude, b2, b3, b4, b8, b11, b12, ndvi, target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, observation_id) DO NOTHING
	`, runID, sm.ObservationID, sm.Lat, sm.Lon,
		sm.Predictors[raster.B2], sm.Predictors[raster.B3], sm.Predictors[raster.B4],
		sm.Predictors[raster.B8], sm.Predictors[raster.B11], sm.Predictors[raster.B12],
		sm.Predictors[raster.NDVI], sm.Target)
	return err
}

// UpsertYearlyResult records one year's outcome for a run. MeanBiomass maps
// to NULL for skipped and failed years.
func (s *Store) UpsertYearlyResult(runID string, yr models.YearlyResult) error {
	var mean sql.NullFloat64
	if yr.MeanBiomass != nil {
		mean = sql.NullFloat64{Float64: *yr.MeanBiomass, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO yearly_results (run_id, year, mean_biomass, pixels, scenes, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, year) DO UPDATE SET
			mean_biomass = excluded.mean_biomass,
			pixels = excluded.pixels,
			scenes = excluded.scenes,
			status = excluded.status,
			error = excluded.error
	`, runID, yr.Year, mean, yr.Pixels, yr.Scenes, string(yr.Status), yr.Err)
	return err
}

// GetYearlyResults returns a run's series ordered by year.
func (s *Store) GetYearlyResults(runID string) ([]models.YearlyResult, error) {
	rows, err := s.db.Query(`
		SELECT year, mean_biomass, pixels, scenes, status, error
		FROM yearly_results WHERE run_id = ? ORDER BY year
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.YearlyResult
	for rows.Next() {
		var yr models.YearlyResult
		var mean sql.NullFloat64
		var status string
		if err := rows.Scan(&yr.Year, &mean, &yr.Pixels, &yr.Scenes, &status, &yr.Err); err != nil {
			return nil, err
		}
		if mean.Valid {
			v := mean.Float64
			yr.MeanBiomass = &v
		}
		yr.Status = models.YearStatus(status)
		out = append(out, yr)
	}
	return out, rows.Err()
}
