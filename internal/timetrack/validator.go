// Package timetrack validates time entries before they reach storage and
// keeps the edit audit trail.
package timetrack

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sprintlens/internal/config"
	"sprintlens/internal/database"
	"sprintlens/internal/models"
)

// Store is the persistence surface the validator needs.
type Store interface {
	CreateTimeEntry(ctx context.Context, e models.TimeEntry, caps database.DailyCaps) (models.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, e models.TimeEntry, caps database.DailyCaps, reopenTimesheetID int64) (models.TimeEntry, error)
	GetTimeEntry(ctx context.Context, id int64) (models.TimeEntry, error)
	GetTimesheet(ctx context.Context, id int64) (models.Timesheet, error)
}

// Validator applies the entry rules and delegates the day-total cap to the
// store so it is checked inside the insert transaction.
type Validator struct {
	store Store
	now   func() time.Time
}

// New returns a validator backed by store.
func New(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// Log validates and persists a new time entry. Rules run in a fixed order:
// future dates are rejected unless the entry is a pre-approved absence, the
// end time must come after the start, and the day total is capped inside the
// store transaction. A day total past the warning threshold flags the stored
// entry rather than rejecting it.
func (v *Validator) Log(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	if err := v.checkEntry(e); err != nil {
		return models.TimeEntry{}, err
	}
	return v.store.CreateTimeEntry(ctx, e, v.caps())
}

// Edit applies changes to an existing entry, appending the previous values to
// its edit history. Entries on a submitted or approved timesheet are frozen;
// editing an entry on a rejected timesheet reopens that timesheet to draft.
func (v *Validator) Edit(ctx context.Context, changed models.TimeEntry, reason string) (models.TimeEntry, error) {
	if err := v.checkEntry(changed); err != nil {
		return models.TimeEntry{}, err
	}

	current, err := v.store.GetTimeEntry(ctx, changed.ID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	// The reopen rides in the update transaction: a rejected edit must leave
	// the timesheet in its rejected state.
	var reopenID int64
	if current.TimesheetID != nil {
		sheet, err := v.store.GetTimesheet(ctx, *current.TimesheetID)
		if err != nil {
			return models.TimeEntry{}, err
		}
		switch sheet.Status {
		case models.TimesheetSubmitted, models.TimesheetApproved:
			return models.TimeEntry{}, &models.ConflictError{
				Resource: "time entry",
				Detail:   fmt.Sprintf("entry %d is locked by %s timesheet %d", current.ID, sheet.Status, sheet.ID),
			}
		case models.TimesheetRejected:
			reopenID = sheet.ID
		}
	}

	changed.EditHistory = append(current.EditHistory, models.EditRecord{
		At:       v.now().UTC(),
		Previous: diff(current, changed),
		Reason:   reason,
	})
	return v.store.UpdateTimeEntry(ctx, changed, v.caps(), reopenID)
}

func (v *Validator) caps() database.DailyCaps {
	return database.DailyCaps{
		WarnAbove: config.DailyWarningHours,
		HardCap:   config.DailyHardCapHours,
	}
}

func (v *Validator) checkEntry(e models.TimeEntry) error {
	date, err := time.Parse("2006-01-02", e.Date)
	if err != nil {
		return &models.ValidationError{Rule: "date", Detail: fmt.Sprintf("bad date %q", e.Date)}
	}
	today := v.now().UTC().Truncate(24 * time.Hour)
	if date.After(today) && e.AbsenceType == "" {
		return &models.ValidationError{Rule: "future-date", Detail: "only pre-approved absences may be logged ahead"}
	}
	if e.StartTime != nil && e.EndTime != nil && !e.EndTime.After(*e.StartTime) {
		return &models.ValidationError{Rule: "time-range", Detail: "end time must be after start time"}
	}
	if e.Hours <= 0 {
		return &models.ValidationError{Rule: "hours", Detail: "hours must be positive"}
	}
	return nil
}

// diff records the fields an edit changes, keyed by field name with the
// previous value.
func diff(before, after models.TimeEntry) map[string]string {
	prev := make(map[string]string)
	if before.Hours != after.Hours {
		prev["hours"] = strconv.FormatFloat(before.Hours, 'g', -1, 64)
	}
	if before.Date != after.Date {
		prev["date"] = before.Date
	}
	if before.TaskID != after.TaskID {
		prev["task_id"] = strconv.FormatInt(before.TaskID, 10)
	}
	if before.Billable != after.Billable {
		prev["billable"] = strconv.FormatBool(before.Billable)
	}
	return prev
}
