package database

import (
	"context"
	"testing"

	"sprintlens/internal/testutil"
)

func TestUpsertAllocationLastWriteWins(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	if err := db.UpsertAllocation(ctx, testutil.NewAllocation().WithAssigned(4).Build()); err != nil {
		t.Fatalf("UpsertAllocation failed: %v", err)
	}
	if err := db.UpsertAllocation(ctx, testutil.NewAllocation().WithAssigned(6).Build()); err != nil {
		t.Fatalf("second UpsertAllocation failed: %v", err)
	}

	allocs, err := db.ListAllocations(ctx, 1, "2026-03-02", "2026-03-02")
	if err != nil {
		t.Fatalf("ListAllocations failed: %v", err)
	}
	if len(allocs) != 1 {
		t.Fatalf("expected a single row per (user, project, date), got %d", len(allocs))
	}
	if allocs[0].AssignedHours != 6 {
		t.Fatalf("expected last write to win, got %g assigned", allocs[0].AssignedHours)
	}
}

func TestListAllocationsWindow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	dates := []string{"2026-03-01", "2026-03-02", "2026-03-05"}
	for _, d := range dates {
		a := testutil.NewAllocation().WithDate(d).WithAssigned(8).Build()
		if err := db.UpsertAllocation(ctx, a); err != nil {
			t.Fatalf("UpsertAllocation failed: %v", err)
		}
	}

	allocs, err := db.ListAllocations(ctx, 1, "2026-03-02", "2026-03-04")
	if err != nil {
		t.Fatalf("ListAllocations failed: %v", err)
	}
	if len(allocs) != 1 || allocs[0].Date != "2026-03-02" {
		t.Fatalf("window [02, 04] should match only the 2nd, got %+v", allocs)
	}
}

func TestCellAllocations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	a := testutil.NewAllocation().WithUser(7).WithAssigned(5).Build()
	if err := db.UpsertAllocation(ctx, a); err != nil {
		t.Fatalf("UpsertAllocation failed: %v", err)
	}

	cell, err := db.CellAllocations(ctx, 7, "2026-03-02")
	if err != nil {
		t.Fatalf("CellAllocations failed: %v", err)
	}
	if len(cell) != 1 || cell[0].AssignedHours != 5 {
		t.Fatalf("unexpected cell contents: %+v", cell)
	}
	empty, err := db.CellAllocations(ctx, 7, "2026-03-03")
	if err != nil {
		t.Fatalf("CellAllocations failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty cell, got %+v", empty)
	}
}
