package store

import (
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS observations (
    id TEXT PRIMARY KEY,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    height_cm REAL NOT NULL,
    biomass_kg_ha REAL NOT NULL,
    measured_at DATETIME,
    qc_flags TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    region TEXT NOT NULL,
    baseline_year INTEGER NOT NULL,
    trees INTEGER,
    min_leaf INTEGER,
    bag_fraction REAL,
    model_seed INTEGER,
    split_seed INTEGER,
    train_fraction REAL,
    cloud_ceiling_pct REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS run_metrics (
    run_id TEXT PRIMARY KEY REFERENCES runs(run_id),
    rmse REAL,
    mae REAL,
    r2 REAL,
    train_rows INTEGER,
    test_rows INTEGER
);

CREATE TABLE IF NOT EXISTS run_importances (
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    band TEXT NOT NULL,
    score REAL NOT NULL,
    PRIMARY KEY (run_id, band)
);

CREATE TABLE IF NOT EXISTS samples (
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    observation_id TEXT NOT NULL,
    latitude REAL,
    longitude REAL,
    b2 REAL, b3 REAL, b4 REAL, b8 REAL, b11 REAL, b12 REAL, ndvi REAL,
    target REAL NOT NULL,
    PRIMARY KEY (run_id, observation_id)
);

CREATE TABLE IF NOT EXISTS yearly_results (
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    year INTEGER NOT NULL,
    mean_biomass REAL,
    pixels INTEGER,
    scenes INTEGER,
    status TEXT NOT NULL,
    error TEXT,
    PRIMARY KEY (run_id, year)
);

CREATE INDEX IF NOT EXISTS idx_yearly_year ON yearly_results(year);
`,
	},
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Migrate applies pending schema migrations in order, each in its own
// transaction.
func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
