package database

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strconv"
	"time"

	"sprintlens/internal/models"
)

const timeEntryColumns = `id, user_id, task_id, project_id, date, start_time,
	end_time, hours, billable, hourly_rate, absence_type, daily_warning,
	edit_history, timesheet_id, created_at, updated_at`

// DailyCaps carries the per-day hour limits enforced atomically with writes.
type DailyCaps struct {
	WarnAbove float64
	HardCap   float64
}

// CreateTimeEntry inserts a validated entry. The user's day total (including
// the new entry) is checked inside the same transaction: above the hard cap
// the insert is rolled back with LimitExceededError, above the warning
// threshold the entry is stored with daily_warning set.
func (d *Database) CreateTimeEntry(ctx context.Context, e models.TimeEntry, caps DailyCaps) (models.TimeEntry, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return e, wrapEntryErr("create", 0, err)
	}

	dayTotal, err := dayHoursTx(ctx, tx, e.UserID, e.Date, 0)
	if err != nil {
		return e, wrapEntryErr("create", 0, rollbackWithLog(tx, err))
	}
	total := dayTotal + e.Hours
	if total > caps.HardCap {
		return e, rollbackWithLog(tx, &models.LimitExceededError{
			Rule:     "daily hard limit",
			Limit:    caps.HardCap,
			Exceeded: round2(total - caps.HardCap),
		})
	}
	e.DailyWarning = total > caps.WarnAbove

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	res, err := tx.ExecContext(ctx, `
		INSERT INTO time_entries (user_id, task_id, project_id, date,
			start_time, end_time, hours, billable, hourly_rate, absence_type,
			daily_warning, edit_history, timesheet_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.TaskID, e.ProjectID, e.Date, nullTime(e.StartTime),
		nullTime(e.EndTime), e.Hours, e.Billable, e.HourlyRate, e.AbsenceType,
		e.DailyWarning, marshalJSON(e.EditHistory), nullInt(e.TimesheetID),
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return e, wrapEntryErr("create", 0, rollbackWithLog(tx, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return e, wrapEntryErr("create", 0, rollbackWithLog(tx, err))
	}
	if err := tx.Commit(); err != nil {
		return e, wrapEntryErr("create", 0, err)
	}
	e.ID = id
	return e, nil
}

// UpdateTimeEntry persists an edit to an existing entry together with the
// appended edit-history record, under the same day-total guard. A non-zero
// reopenTimesheetID returns that rejected timesheet to draft in the same
// transaction, so a rejected edit leaves the timesheet untouched.
func (d *Database) UpdateTimeEntry(ctx context.Context, e models.TimeEntry, caps DailyCaps, reopenTimesheetID int64) (models.TimeEntry, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return e, wrapEntryErr("update", e.ID, err)
	}

	dayTotal, err := dayHoursTx(ctx, tx, e.UserID, e.Date, e.ID)
	if err != nil {
		return e, wrapEntryErr("update", e.ID, rollbackWithLog(tx, err))
	}
	total := dayTotal + e.Hours
	if total > caps.HardCap {
		return e, rollbackWithLog(tx, &models.LimitExceededError{
			Rule:     "daily hard limit",
			Limit:    caps.HardCap,
			Exceeded: round2(total - caps.HardCap),
		})
	}
	e.DailyWarning = total > caps.WarnAbove
	e.UpdatedAt = time.Now().UTC()

	res, err := tx.ExecContext(ctx, `
		UPDATE time_entries SET task_id = ?, project_id = ?, date = ?,
			start_time = ?, end_time = ?, hours = ?, billable = ?,
			hourly_rate = ?, absence_type = ?, daily_warning = ?,
			edit_history = ?, updated_at = ?
		WHERE id = ?`,
		e.TaskID, e.ProjectID, e.Date, nullTime(e.StartTime),
		nullTime(e.EndTime), e.Hours, e.Billable, e.HourlyRate, e.AbsenceType,
		e.DailyWarning, marshalJSON(e.EditHistory), e.UpdatedAt, e.ID)
	if err != nil {
		return e, wrapEntryErr("update", e.ID, rollbackWithLog(tx, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return e, rollbackWithLog(tx, &models.NotFoundError{
			Resource: "time entry", ID: strconv.FormatInt(e.ID, 10),
		})
	}
	if reopenTimesheetID > 0 {
		if err := reopenTimesheet(ctx, tx, reopenTimesheetID); err != nil {
			return e, rollbackWithLog(tx, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return e, wrapEntryErr("update", e.ID, err)
	}
	return e, nil
}

func dayHoursTx(ctx context.Context, tx *sql.Tx, userID int64, date string, excludeID int64) (float64, error) {
	var total float64
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(hours), 0) FROM time_entries
		WHERE user_id = ? AND date = ? AND id != ?`,
		userID, date, excludeID).Scan(&total)
	return total, err
}

// GetTimeEntry fetches one entry by id.
func (d *Database) GetTimeEntry(ctx context.Context, id int64) (models.TimeEntry, error) {
	row := d.DB.QueryRowContext(ctx,
		"SELECT "+timeEntryColumns+" FROM time_entries WHERE id = ?", id)
	e, err := scanTimeEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return e, &models.NotFoundError{Resource: "time entry", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return e, wrapEntryErr("get", id, err)
	}
	return e, nil
}

// ListEntriesForPeriod returns a user's entries with dates in [from, to].
func (d *Database) ListEntriesForPeriod(ctx context.Context, userID int64, from, to string) ([]models.TimeEntry, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+timeEntryColumns+` FROM time_entries
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, id ASC`, userID, from, to)
	if err != nil {
		return nil, wrapEntryErr("list period", userID, err)
	}
	defer rows.Close()

	var entries []models.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, wrapEntryErr("list period", userID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapEntryErr("list period", userID, err)
	}
	return entries, nil
}

// ListEntriesForUserDate returns a user's entries on one calendar day, for
// heatmap drill-down.
func (d *Database) ListEntriesForUserDate(ctx context.Context, userID int64, date string) ([]models.TimeEntry, error) {
	return d.ListEntriesForPeriod(ctx, userID, date, date)
}

// AssignEntriesToTimesheet stamps every entry of (user, period) with the
// timesheet id, locking the entry set at submit time.
func (d *Database) AssignEntriesToTimesheet(ctx context.Context, timesheetID, userID int64, from, to string) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE time_entries SET timesheet_id = ?
		WHERE user_id = ? AND date >= ? AND date <= ?`,
		timesheetID, userID, from, to)
	return wrapEntryErr("assign", timesheetID, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTimeEntry(row rowScanner) (models.TimeEntry, error) {
	var e models.TimeEntry
	var start, end, created, updated sql.NullTime
	var history string
	var timesheetID sql.NullInt64
	err := row.Scan(&e.ID, &e.UserID, &e.TaskID, &e.ProjectID, &e.Date,
		&start, &end, &e.Hours, &e.Billable, &e.HourlyRate, &e.AbsenceType,
		&e.DailyWarning, &history, &timesheetID, &created, &updated)
	if err != nil {
		return e, err
	}
	e.StartTime = timePtr(start)
	e.EndTime = timePtr(end)
	e.TimesheetID = intPtr(timesheetID)
	if t := timePtr(created); t != nil {
		e.CreatedAt = *t
	}
	if t := timePtr(updated); t != nil {
		e.UpdatedAt = *t
	}
	unmarshalJSON(history, &e.EditHistory)
	return e, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
