package timesheet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"sprintlens/internal/database"
	"sprintlens/internal/models"
)

func setupWorkflow(t *testing.T, ctx context.Context) (*Workflow, *database.Database, *MockRoleSource) {
	t.Helper()
	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("db close failed: %v", err)
		}
	})
	ctrl := gomock.NewController(t)
	roles := NewMockRoleSource(ctrl)
	return New(db, roles), db, roles
}

func seedEntries(t *testing.T, ctx context.Context, db *database.Database, userID int64) {
	t.Helper()
	caps := database.DailyCaps{WarnAbove: 12, HardCap: 24}
	entries := []models.TimeEntry{
		{UserID: userID, Date: "2026-03-02", Hours: 8, Billable: true, HourlyRate: 50},
		{UserID: userID, Date: "2026-03-03", Hours: 6, Billable: true, HourlyRate: 50},
		{UserID: userID, Date: "2026-03-04", Hours: 2},
	}
	for _, e := range entries {
		if _, err := db.CreateTimeEntry(ctx, e, caps); err != nil {
			t.Fatalf("seed entry failed: %v", err)
		}
	}
}

func TestCreateAggregatesTotals(t *testing.T) {
	ctx := context.Background()
	w, db, _ := setupWorkflow(t, ctx)
	seedEntries(t, ctx, db, 1)

	ts, err := w.Create(ctx, 1, "2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ts.Status != models.TimesheetDraft {
		t.Fatalf("new timesheet should be draft, got %q", ts.Status)
	}
	if ts.TotalHours != 16 || ts.BillableHours != 14 || ts.NonBillableHours != 2 {
		t.Fatalf("unexpected totals: %+v", ts)
	}
	if ts.TotalCost != 700 {
		t.Fatalf("expected cost 700, got %g", ts.TotalCost)
	}
}

func TestSubmitLocksEntriesAndFreezesTotals(t *testing.T) {
	ctx := context.Background()
	w, db, _ := setupWorkflow(t, ctx)
	seedEntries(t, ctx, db, 1)

	ts, err := w.Create(ctx, 1, "2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ts, err = w.Submit(ctx, ts.ID, time.Now())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if ts.Status != models.TimesheetSubmitted || ts.SubmittedAt == nil {
		t.Fatalf("submit did not transition: %+v", ts)
	}

	entries, err := db.ListEntriesForPeriod(ctx, 1, ts.PeriodStart, ts.PeriodEnd)
	if err != nil {
		t.Fatalf("ListEntriesForPeriod failed: %v", err)
	}
	for _, e := range entries {
		if e.TimesheetID == nil || *e.TimesheetID != ts.ID {
			t.Fatalf("entry %d not locked to timesheet", e.ID)
		}
	}

	// Totals are frozen after submission.
	got, err := w.Recompute(ctx, ts.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if got.TotalHours != 16 {
		t.Fatalf("totals changed after submit: %g", got.TotalHours)
	}

	// Resubmitting is a conflict.
	var conflict *models.ConflictError
	if _, err := w.Submit(ctx, ts.ID, time.Now()); !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError on double submit, got %v", err)
	}
}

func TestApproveRequiresRole(t *testing.T) {
	ctx := context.Background()
	w, _, roles := setupWorkflow(t, ctx)

	ts, err := w.Create(ctx, 1, "2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Submit(ctx, ts.ID, time.Now()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	roles.EXPECT().IsApprover(gomock.Any(), int64(7)).Return(false, nil)
	err = w.Approve(ctx, ts.ID, 7, time.Now())
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Rule != "approver-role" {
		t.Fatalf("expected approver-role error, got %v", err)
	}

	roles.EXPECT().IsApprover(gomock.Any(), int64(2)).Return(true, nil)
	if err := w.Approve(ctx, ts.ID, 2, time.Now()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	// Approved is terminal.
	roles.EXPECT().IsApprover(gomock.Any(), int64(2)).Return(true, nil)
	var conflict *models.ConflictError
	if err := w.Reject(ctx, ts.ID, 2, "too late", time.Now()); !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError rejecting an approved sheet, got %v", err)
	}
}

func TestFailedResubmitLeavesApprovedEntriesAlone(t *testing.T) {
	ctx := context.Background()
	w, db, roles := setupWorkflow(t, ctx)
	seedEntries(t, ctx, db, 1)

	ts, err := w.Create(ctx, 1, "2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Submit(ctx, ts.ID, time.Now()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	roles.EXPECT().IsApprover(gomock.Any(), int64(2)).Return(true, nil)
	if err := w.Approve(ctx, ts.ID, 2, time.Now()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	// An entry logged after approval must never join the approved sheet.
	late, err := db.CreateTimeEntry(ctx, models.TimeEntry{
		UserID: 1, Date: "2026-03-05", Hours: 3,
	}, database.DailyCaps{WarnAbove: 12, HardCap: 24})
	if err != nil {
		t.Fatalf("late entry failed: %v", err)
	}

	var conflict *models.ConflictError
	if _, err := w.Submit(ctx, ts.ID, time.Now()); !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError resubmitting an approved sheet, got %v", err)
	}
	got, err := db.GetTimeEntry(ctx, late.ID)
	if err != nil {
		t.Fatalf("GetTimeEntry failed: %v", err)
	}
	if got.TimesheetID != nil {
		t.Fatalf("failed submit locked the late entry to timesheet %d", *got.TimesheetID)
	}
	sheet, err := db.GetTimesheet(ctx, ts.ID)
	if err != nil {
		t.Fatalf("GetTimesheet failed: %v", err)
	}
	if sheet.TotalHours != 16 {
		t.Fatalf("failed submit changed approved totals: %g", sheet.TotalHours)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	w, _, roles := setupWorkflow(t, ctx)

	ts, err := w.Create(ctx, 1, "2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Submit(ctx, ts.ID, time.Now()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var ve *models.ValidationError
	if err := w.Reject(ctx, ts.ID, 2, "", time.Now()); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for empty reason, got %v", err)
	}

	roles.EXPECT().IsApprover(gomock.Any(), int64(2)).Return(true, nil)
	if err := w.Reject(ctx, ts.ID, 2, "missing friday", time.Now()); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	got, err := w.Recompute(ctx, ts.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if got.Status != models.TimesheetRejected || len(got.Rejections) != 1 {
		t.Fatalf("rejection not recorded: %+v", got)
	}
	if got.Rejections[0].Reason != "missing friday" {
		t.Fatalf("unexpected rejection reason: %q", got.Rejections[0].Reason)
	}
}

func TestAllowedTransitions(t *testing.T) {
	if got := AllowedTransitions(models.TimesheetDraft); len(got) != 1 || got[0] != models.TimesheetSubmitted {
		t.Fatalf("draft transitions wrong: %v", got)
	}
	if got := AllowedTransitions(models.TimesheetSubmitted); len(got) != 2 {
		t.Fatalf("submitted transitions wrong: %v", got)
	}
	if got := AllowedTransitions(models.TimesheetRejected); len(got) != 1 || got[0] != models.TimesheetDraft {
		t.Fatalf("rejected transitions wrong: %v", got)
	}
	if got := AllowedTransitions(models.TimesheetApproved); got != nil {
		t.Fatalf("approved must be terminal, got %v", got)
	}
}
