package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"sprintlens/internal/models"
)

func TestSprintMetricUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	cpi := 1.1
	m := models.SprintMetric{
		SprintID:        7,
		ProjectID:       1,
		CommittedPoints: 30,
		PlannedValue:    15,
		EarnedValue:     12,
		ActualCost:      10.9,
		CPI:             &cpi,
		Risk:            models.RiskMedium,
		RecomputedAt:    time.Now().UTC(),
	}
	if err := db.UpsertSprintMetric(ctx, m); err != nil {
		t.Fatalf("UpsertSprintMetric failed: %v", err)
	}

	got, err := db.GetSprintMetric(ctx, 7)
	if err != nil {
		t.Fatalf("GetSprintMetric failed: %v", err)
	}
	if got.CPI == nil || *got.CPI != 1.1 {
		t.Fatalf("expected CPI 1.1, got %v", got.CPI)
	}
	if got.SPI != nil {
		t.Fatalf("expected nil SPI, got %v", *got.SPI)
	}
	if got.Risk != models.RiskMedium {
		t.Fatalf("expected medium risk, got %q", got.Risk)
	}

	// Second upsert replaces the snapshot for the same sprint.
	m.EarnedValue = 20
	if err := db.UpsertSprintMetric(ctx, m); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	got, err = db.GetSprintMetric(ctx, 7)
	if err != nil {
		t.Fatalf("GetSprintMetric after upsert failed: %v", err)
	}
	if got.EarnedValue != 20 {
		t.Fatalf("expected EV 20, got %g", got.EarnedValue)
	}
}

func TestSprintMetricNotFound(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	_, err := db.GetSprintMetric(ctx, 999)
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAddScopeChangeAccumulates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	if err := db.UpsertSprintMetric(ctx, models.SprintMetric{SprintID: 3, ProjectID: 1, Risk: models.RiskLow}); err != nil {
		t.Fatalf("seed metric failed: %v", err)
	}
	if err := db.AddScopeChange(ctx, 3, 5, 0); err != nil {
		t.Fatalf("AddScopeChange failed: %v", err)
	}
	if err := db.AddScopeChange(ctx, 3, 0, 2); err != nil {
		t.Fatalf("AddScopeChange failed: %v", err)
	}
	m, err := db.GetSprintMetric(ctx, 3)
	if err != nil {
		t.Fatalf("GetSprintMetric failed: %v", err)
	}
	if m.ScopeAdded != 5 || m.ScopeRemoved != 2 {
		t.Fatalf("expected counters 5/2, got %g/%g", m.ScopeAdded, m.ScopeRemoved)
	}
}

func TestBurnPointLastWriteWinsPerDay(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	first := models.BurnPoint{SprintID: 1, Date: "2026-03-02", Ideal: 25, Actual: 28}
	if err := db.UpsertBurnPoint(ctx, first); err != nil {
		t.Fatalf("UpsertBurnPoint failed: %v", err)
	}
	second := first
	second.Actual = 24
	if err := db.UpsertBurnPoint(ctx, second); err != nil {
		t.Fatalf("second UpsertBurnPoint failed: %v", err)
	}
	if err := db.UpsertBurnPoint(ctx, models.BurnPoint{SprintID: 1, Date: "2026-03-01", Ideal: 30, Actual: 30}); err != nil {
		t.Fatalf("third UpsertBurnPoint failed: %v", err)
	}

	series, err := db.GetBurnSeries(ctx, 1)
	if err != nil {
		t.Fatalf("GetBurnSeries failed: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 points (one per day), got %d", len(series))
	}
	if series[0].Date != "2026-03-01" {
		t.Fatalf("series not ordered by date: %v", series)
	}
	if series[1].Actual != 24 {
		t.Fatalf("expected last write to win, got actual %g", series[1].Actual)
	}
}
