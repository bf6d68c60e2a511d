// Package config holds fixed domain constants and the tunable runtime
// configuration, loadable from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PVMode selects how planned value accrues over a sprint.
type PVMode string

const (
	// PVProrated accrues committed scope linearly over the sprint window.
	PVProrated PVMode = "prorated"
	// PVFixed treats the full committed scope as planned from day one.
	PVFixed PVMode = "fixed"
)

// Config is the tunable runtime configuration.
type Config struct {
	// StandardCapacityHours is the default working capacity per day when an
	// allocation does not set its own.
	StandardCapacityHours float64 `yaml:"standard_capacity_hours"`

	// PlannedValueMode selects prorated or fixed-baseline PV.
	PlannedValueMode PVMode `yaml:"planned_value_mode"`

	// ReportMaxRows caps on-screen report results; truncation is reported.
	ReportMaxRows int `yaml:"report_max_rows"`

	// ExportMaxRows is the export size budget; larger results are declined.
	ExportMaxRows int `yaml:"export_max_rows"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		StandardCapacityHours: 8,
		PlannedValueMode:      PVProrated,
		ReportMaxRows:         10000,
		ExportMaxRows:         50000,
	}
}

// Load reads a YAML config file, filling unset fields with defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.StandardCapacityHours <= 0 {
		return fmt.Errorf("standard_capacity_hours must be positive")
	}
	if c.PlannedValueMode != PVProrated && c.PlannedValueMode != PVFixed {
		return fmt.Errorf("planned_value_mode must be %q or %q", PVProrated, PVFixed)
	}
	if c.ReportMaxRows <= 0 || c.ExportMaxRows <= 0 {
		return fmt.Errorf("row caps must be positive")
	}
	return nil
}
