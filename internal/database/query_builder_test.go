package database

import (
	"context"
	"testing"

	"sprintlens/internal/testutil"
)

func TestAggQueryBuild(t *testing.T) {
	q := AggQuery{
		Table:      "time_entries",
		Dimensions: []string{"user_id", "date"},
		Aggregates: []Aggregate{
			{Func: "SUM", Field: "hours", Alias: "total_hours"},
			{Func: "COUNT", Field: "id", Alias: "entries"},
		},
		Where: "project_id = ?",
		Args:  []interface{}{int64(1)},
		Limit: 10,
	}
	sql, args := q.Build()
	want := "SELECT user_id, date, SUM(hours) AS total_hours, COUNT(id) AS entries " +
		"FROM time_entries WHERE project_id = ? GROUP BY user_id, date " +
		"ORDER BY user_id, total_hours LIMIT 10"
	if sql != want {
		t.Fatalf("unexpected SQL:\n got %q\nwant %q", sql, want)
	}
	if len(args) != 1 {
		t.Fatalf("expected 1 bound arg, got %d", len(args))
	}
}

func TestAggQueryBuildNoDimensions(t *testing.T) {
	q := AggQuery{
		Table:      "time_entries",
		Aggregates: []Aggregate{{Func: "SUM", Field: "hours", Alias: "total_hours"}},
	}
	sql, _ := q.Build()
	want := "SELECT SUM(hours) AS total_hours FROM time_entries ORDER BY total_hours"
	if sql != want {
		t.Fatalf("unexpected SQL: %q", sql)
	}
}

func TestRunAggregation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	caps := DailyCaps{WarnAbove: 12, HardCap: 24}
	for _, h := range []float64{4, 6} {
		e := testutil.NewEntry().WithHours(h).Build()
		if _, err := db.CreateTimeEntry(ctx, e, caps); err != nil {
			t.Fatalf("CreateTimeEntry failed: %v", err)
		}
	}

	cols, rows, err := db.RunAggregation(ctx, AggQuery{
		Table:      "time_entries",
		Dimensions: []string{"user_id"},
		Aggregates: []Aggregate{{Func: "SUM", Field: "hours", Alias: "total_hours"}},
	})
	if err != nil {
		t.Fatalf("RunAggregation failed: %v", err)
	}
	if len(cols) != 2 || cols[1] != "total_hours" {
		t.Fatalf("unexpected columns: %v", cols)
	}
	if len(rows) != 1 || rows[0][1].(float64) != 10 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRunAggregationHonorsContext(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err := db.RunAggregation(cancelled, AggQuery{
		Table:      "time_entries",
		Aggregates: []Aggregate{{Func: "COUNT", Field: "id", Alias: "n"}},
	})
	if err == nil {
		t.Fatalf("expected error from cancelled context")
	}
}
