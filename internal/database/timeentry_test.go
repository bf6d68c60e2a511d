package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"sprintlens/internal/models"
)

var testCaps = DailyCaps{WarnAbove: 12, HardCap: 24}

func TestCreateTimeEntryHardCap(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	_, err := db.CreateTimeEntry(ctx, models.TimeEntry{
		UserID: 1, Date: "2026-03-02", Hours: 25,
	}, testCaps)
	var limit *models.LimitExceededError
	if !errors.As(err, &limit) {
		t.Fatalf("expected LimitExceededError for 25h, got %v", err)
	}
	if limit.Exceeded != 1 {
		t.Fatalf("expected excess of 1h, got %g", limit.Exceeded)
	}

	// Nothing was persisted by the rejected insert.
	entries, err := db.ListEntriesForUserDate(ctx, 1, "2026-03-02")
	if err != nil {
		t.Fatalf("ListEntriesForUserDate failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected zero state change on reject, got %d entries", len(entries))
	}
}

func TestCreateTimeEntryCapBoundaries(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	// Exactly 24h is accepted.
	e, err := db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 1, Date: "2026-03-02", Hours: 24}, testCaps)
	if err != nil {
		t.Fatalf("24h entry rejected: %v", err)
	}
	if !e.DailyWarning {
		t.Fatalf("24h entry should carry the daily warning flag")
	}

	// Exactly 12h carries no warning; 13h does.
	if e, err = db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 2, Date: "2026-03-02", Hours: 12}, testCaps); err != nil {
		t.Fatalf("12h entry rejected: %v", err)
	}
	if e.DailyWarning {
		t.Fatalf("12h entry should not warn")
	}
	if e, err = db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 3, Date: "2026-03-02", Hours: 13}, testCaps); err != nil {
		t.Fatalf("13h entry rejected: %v", err)
	}
	if !e.DailyWarning {
		t.Fatalf("13h entry should warn")
	}
}

func TestCreateTimeEntryCapCountsWholeDay(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	for i := 0; i < 2; i++ {
		if _, err := db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 1, Date: "2026-03-02", Hours: 10}, testCaps); err != nil {
			t.Fatalf("seed entry %d failed: %v", i, err)
		}
	}
	_, err := db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 1, Date: "2026-03-02", Hours: 6.5}, testCaps)
	var limit *models.LimitExceededError
	if !errors.As(err, &limit) {
		t.Fatalf("expected LimitExceededError for 26.5h day, got %v", err)
	}
	if limit.Exceeded != 2.5 {
		t.Fatalf("expected excess of 2.5h, got %g", limit.Exceeded)
	}
	// Another day is unaffected.
	if _, err := db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 1, Date: "2026-03-03", Hours: 6.5}, testCaps); err != nil {
		t.Fatalf("entry on other day rejected: %v", err)
	}
}

func TestUpdateTimeEntryPersistsHistory(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	e, err := db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 1, Date: "2026-03-02", Hours: 4}, testCaps)
	if err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}

	e.Hours = 6
	e.EditHistory = append(e.EditHistory, models.EditRecord{
		At:       time.Now().UTC(),
		Previous: map[string]string{"hours": "4"},
		Reason:   "forgot the afternoon session",
	})
	if _, err := db.UpdateTimeEntry(ctx, e, testCaps, 0); err != nil {
		t.Fatalf("UpdateTimeEntry failed: %v", err)
	}

	got, err := db.GetTimeEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetTimeEntry failed: %v", err)
	}
	if got.Hours != 6 {
		t.Fatalf("expected 6h after edit, got %g", got.Hours)
	}
	if len(got.EditHistory) != 1 || got.EditHistory[0].Previous["hours"] != "4" {
		t.Fatalf("edit history not persisted: %+v", got.EditHistory)
	}
}

func TestUpdateTimeEntryExcludesSelfFromDayTotal(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	e, err := db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 1, Date: "2026-03-02", Hours: 20}, testCaps)
	if err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}
	// Raising 20h to 23h is fine; the old value must not be double counted.
	e.Hours = 23
	if _, err := db.UpdateTimeEntry(ctx, e, testCaps, 0); err != nil {
		t.Fatalf("UpdateTimeEntry failed: %v", err)
	}
}

func TestAssignEntriesToTimesheet(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	ts := seedTimesheet(t, ctx, db, 1)
	if _, err := db.CreateTimeEntry(ctx, models.TimeEntry{UserID: 1, Date: "2026-03-03", Hours: 8}, testCaps); err != nil {
		t.Fatalf("CreateTimeEntry failed: %v", err)
	}
	if err := db.AssignEntriesToTimesheet(ctx, ts.ID, 1, ts.PeriodStart, ts.PeriodEnd); err != nil {
		t.Fatalf("AssignEntriesToTimesheet failed: %v", err)
	}
	entries, err := db.ListEntriesForPeriod(ctx, 1, ts.PeriodStart, ts.PeriodEnd)
	if err != nil {
		t.Fatalf("ListEntriesForPeriod failed: %v", err)
	}
	if len(entries) != 1 || entries[0].TimesheetID == nil || *entries[0].TimesheetID != ts.ID {
		t.Fatalf("entries not assigned to timesheet: %+v", entries)
	}
}
