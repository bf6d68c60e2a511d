package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConstants(t *testing.T) {
	if SPILowRisk <= SPIMediumRisk {
		t.Fatalf("risk thresholds out of order")
	}
	if UtilGreyBelow >= UtilGreenLow || UtilGreenLow >= UtilGreenHigh || UtilGreenHigh >= UtilFullyUsed {
		t.Fatalf("utilization edges out of order")
	}
	if DailyWarningHours >= DailyHardCapHours {
		t.Fatalf("warning threshold must be below the hard cap")
	}
	if AppName == "" || DBFileName == "" {
		t.Fatalf("app identifiers should not be empty")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "standard_capacity_hours: 7.5\nplanned_value_mode: fixed\nreport_max_rows: 100\nexport_max_rows: 200\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StandardCapacityHours != 7.5 {
		t.Fatalf("expected capacity 7.5, got %g", cfg.StandardCapacityHours)
	}
	if cfg.PlannedValueMode != PVFixed {
		t.Fatalf("expected fixed PV mode, got %q", cfg.PlannedValueMode)
	}
	if cfg.ReportMaxRows != 100 || cfg.ExportMaxRows != 200 {
		t.Fatalf("row caps not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("planned_value_mode: linear\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for invalid planned_value_mode")
	}
}
