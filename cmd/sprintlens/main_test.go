package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sprintlens/internal/config"
	"sprintlens/internal/database"
	"sprintlens/internal/models"
	"sprintlens/internal/report"
)

func TestRunDueSchedulesHeadless(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := database.Open(ctx, filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	cfg := config.Default()

	engine := report.New(db, cfg)
	r, err := engine.Save(ctx, 1, "hours by user", report.Spec{
		Scope:      "time_entries",
		Dimensions: []string{"user_id"},
		Metrics:    []report.Metric{{Func: "SUM", Field: "hours"}},
	}, false)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A schedule created in the past is due now.
	scheduler := report.NewScheduler(db, engine, nil)
	if _, err := scheduler.Schedule(ctx, models.ReportSchedule{
		ReportID:   r.ID,
		Frequency:  models.FreqDaily,
		Hour:       6,
		Recipients: []string{"pm@example.com"},
		Format:     models.FormatCSV,
	}, time.Now().UTC().Add(-48*time.Hour)); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	outDir := filepath.Join(dir, "exports")
	if err := runDueSchedules(ctx, db, cfg, outDir); err != nil {
		t.Fatalf("runDueSchedules failed: %v", err)
	}
	files, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one exported file, got %d", len(files))
	}
}
