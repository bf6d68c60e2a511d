// Package timesheet drives the draft -> submitted -> approved/rejected
// approval workflow over stored timesheets.
package timesheet

import (
	"context"
	"time"

	"sprintlens/internal/models"
)

// Store is the persistence surface the workflow needs.
type Store interface {
	CreateTimesheet(ctx context.Context, ts models.Timesheet) (models.Timesheet, error)
	GetTimesheet(ctx context.Context, id int64) (models.Timesheet, error)
	UpdateTimesheetTotals(ctx context.Context, id int64, total, billable, nonBillable, cost float64) error
	SubmitTimesheet(ctx context.Context, id int64, now time.Time) error
	ApproveTimesheet(ctx context.Context, id int64, now time.Time) error
	RejectTimesheet(ctx context.Context, id int64, reason string, now time.Time) error
	ListEntriesForPeriod(ctx context.Context, userID int64, from, to string) ([]models.TimeEntry, error)
	AssignEntriesToTimesheet(ctx context.Context, timesheetID, userID int64, from, to string) error
}

// RoleSource answers whether a user may approve or reject timesheets. It is
// backed by whatever directory the deployment uses.
type RoleSource interface {
	IsApprover(ctx context.Context, userID int64) (bool, error)
}

//go:generate mockgen -source=workflow.go -destination=mock_roles_test.go -package=timesheet RoleSource

// Workflow coordinates timesheet state transitions.
type Workflow struct {
	store Store
	roles RoleSource
}

// New returns a workflow backed by store and roles.
func New(store Store, roles RoleSource) *Workflow {
	return &Workflow{store: store, roles: roles}
}

// Create opens a draft timesheet for the user's period and aggregates the
// totals of the entries already logged inside it. Overlapping periods for the
// same user are rejected by the store.
func (w *Workflow) Create(ctx context.Context, userID int64, periodStart, periodEnd string) (models.Timesheet, error) {
	ts, err := w.store.CreateTimesheet(ctx, models.Timesheet{
		UserID:      userID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	if err != nil {
		return models.Timesheet{}, err
	}
	return w.Recompute(ctx, ts.ID)
}

// Recompute refreshes a draft timesheet's aggregate totals from its period's
// entries. On any other status the store leaves the frozen totals untouched.
func (w *Workflow) Recompute(ctx context.Context, id int64) (models.Timesheet, error) {
	ts, err := w.store.GetTimesheet(ctx, id)
	if err != nil {
		return models.Timesheet{}, err
	}
	entries, err := w.store.ListEntriesForPeriod(ctx, ts.UserID, ts.PeriodStart, ts.PeriodEnd)
	if err != nil {
		return models.Timesheet{}, err
	}

	var total, billable, cost float64
	for _, e := range entries {
		total += e.Hours
		if e.Billable {
			billable += e.Hours
			cost += e.Hours * e.HourlyRate
		}
	}
	if err := w.store.UpdateTimesheetTotals(ctx, id, total, billable, total-billable, cost); err != nil {
		return models.Timesheet{}, err
	}
	return w.store.GetTimesheet(ctx, id)
}

// Submit locks the period's entries to the timesheet, freezes its totals and
// moves it to submitted. Submitting anything but a draft is a conflict, and a
// refused submit leaves the entry set of the existing timesheet untouched.
func (w *Workflow) Submit(ctx context.Context, id int64, now time.Time) (models.Timesheet, error) {
	ts, err := w.store.GetTimesheet(ctx, id)
	if err != nil {
		return models.Timesheet{}, err
	}
	if ts.Status != models.TimesheetDraft {
		return models.Timesheet{}, &models.ConflictError{
			Resource: "timesheet", Detail: "timesheet is not in draft",
		}
	}
	if err := w.store.AssignEntriesToTimesheet(ctx, id, ts.UserID, ts.PeriodStart, ts.PeriodEnd); err != nil {
		return models.Timesheet{}, err
	}
	if _, err := w.Recompute(ctx, id); err != nil {
		return models.Timesheet{}, err
	}
	if err := w.store.SubmitTimesheet(ctx, id, now); err != nil {
		return models.Timesheet{}, err
	}
	return w.store.GetTimesheet(ctx, id)
}

// Approve moves a submitted timesheet to approved. Only approvers may call
// this; approved timesheets are final.
func (w *Workflow) Approve(ctx context.Context, id, approverID int64, now time.Time) error {
	if err := w.requireApprover(ctx, approverID); err != nil {
		return err
	}
	return w.store.ApproveTimesheet(ctx, id, now)
}

// Reject moves a submitted timesheet to rejected, recording the mandatory
// reason in the sheet's rejection history.
func (w *Workflow) Reject(ctx context.Context, id, approverID int64, reason string, now time.Time) error {
	if reason == "" {
		return &models.ValidationError{Rule: "rejection-reason", Detail: "a rejection requires a reason"}
	}
	if err := w.requireApprover(ctx, approverID); err != nil {
		return err
	}
	return w.store.RejectTimesheet(ctx, id, reason, now)
}

func (w *Workflow) requireApprover(ctx context.Context, userID int64) error {
	ok, err := w.roles.IsApprover(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return &models.ValidationError{Rule: "approver-role", Detail: "user lacks the approver role"}
	}
	return nil
}

// AllowedTransitions lists the states reachable from status. Approved is
// terminal.
func AllowedTransitions(status models.TimesheetStatus) []models.TimesheetStatus {
	switch status {
	case models.TimesheetDraft:
		return []models.TimesheetStatus{models.TimesheetSubmitted}
	case models.TimesheetSubmitted:
		return []models.TimesheetStatus{models.TimesheetApproved, models.TimesheetRejected}
	case models.TimesheetRejected:
		return []models.TimesheetStatus{models.TimesheetDraft}
	default:
		return nil
	}
}
