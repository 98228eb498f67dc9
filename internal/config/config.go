// Package config loads the run configuration from YAML with defaults.
package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration. Hyperparameters are always passed
// explicitly into the components that use them, never read from globals.
type Config struct {
	Region          string  `yaml:"region"`
	BaselineYear    int     `yaml:"baseline_year"`
	CloudCeilingPct float64 `yaml:"cloud_ceiling_pct"`
	TrainFraction   float64 `yaml:"train_fraction"`
	SplitSeed       int64   `yaml:"split_seed"`
	Trees           int     `yaml:"trees"`
	MinLeaf         int     `yaml:"min_leaf"`
	BagFraction     float64 `yaml:"bag_fraction"`
	ModelSeed       int64   `yaml:"model_seed"`
	SeriesStartYear int     `yaml:"series_start_year"`
	SeriesEndYear   int     `yaml:"series_end_year"`
	ExportScaleM    float64 `yaml:"export_scale_m"`
	SeriesScaleM    float64 `yaml:"series_scale_m"`
	Workers         int     `yaml:"workers"`
}

// Default returns the calibrated baseline configuration.
func Default() Config {
	return Config{
		Region:          "mokala",
		BaselineYear:    2023,
		CloudCeilingPct: 20,
		TrainFraction:   0.7,
		SplitSeed:       42,
		Trees:           500,
		MinLeaf:         5,
		BagFraction:     0.7,
		ModelSeed:       42,
		SeriesStartYear: 2020,
		SeriesEndYear:   2025,
		ExportScaleM:    10,
		// Coarser grid for the per-year area means; kept deliberately
		// different from the full-resolution export.
		SeriesScaleM: 50,
		Workers:      4,
	}
}

// Load reads a YAML file over the defaults. A missing path yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: %s not found, using defaults", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations no run could use.
func (c Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("config: region required")
	}
	if c.BaselineYear < 2015 {
		return fmt.Errorf("config: baseline_year %d predates archive coverage", c.BaselineYear)
	}
	if c.CloudCeilingPct <= 0 || c.CloudCeilingPct > 100 {
		return fmt.Errorf("config: cloud_ceiling_pct %v out of (0, 100]", c.CloudCeilingPct)
	}
	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return fmt.Errorf("config: train_fraction %v out of (0, 1)", c.TrainFraction)
	}
	if c.Trees <= 0 || c.MinLeaf <= 0 {
		return fmt.Errorf("config: trees and min_leaf must be positive")
	}
	if c.BagFraction <= 0 || c.BagFraction > 1 {
		return fmt.Errorf("config: bag_fraction %v out of (0, 1]", c.BagFraction)
	}
	if c.SeriesStartYear > c.SeriesEndYear {
		return fmt.Errorf("config: series years %d..%d inverted", c.SeriesStartYear, c.SeriesEndYear)
	}
	if c.ExportScaleM <= 0 || c.SeriesScaleM <= 0 {
		return fmt.Errorf("config: scales must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive")
	}
	return nil
}
