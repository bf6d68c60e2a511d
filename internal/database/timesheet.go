package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"sprintlens/internal/models"
)

const timesheetColumns = `id, user_id, period_start, period_end, status,
	total_hours, billable_hours, non_billable_hours, total_cost,
	submitted_at, approved_at, rejected_at, rejections, created_at`

// CreateTimesheet opens a DRAFT timesheet. The overlapping-period check and
// the insert run in one transaction so two racing creates cannot both win.
func (d *Database) CreateTimesheet(ctx context.Context, ts models.Timesheet) (models.Timesheet, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return ts, wrapTimesheetErr("create", 0, err)
	}

	var overlapping int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM timesheets
		WHERE user_id = ? AND period_start <= ? AND period_end >= ?`,
		ts.UserID, ts.PeriodEnd, ts.PeriodStart).Scan(&overlapping)
	if err != nil {
		return ts, wrapTimesheetErr("create", 0, rollbackWithLog(tx, err))
	}
	if overlapping > 0 {
		return ts, rollbackWithLog(tx, &models.ConflictError{
			Resource: "timesheet",
			Detail:   "period overlaps an existing timesheet for this user",
		})
	}

	ts.Status = models.TimesheetDraft
	ts.CreatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO timesheets (user_id, period_start, period_end, status,
			total_hours, billable_hours, non_billable_hours, total_cost,
			rejections, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UserID, ts.PeriodStart, ts.PeriodEnd, string(ts.Status),
		ts.TotalHours, ts.BillableHours, ts.NonBillableHours, ts.TotalCost,
		marshalJSON(ts.Rejections), ts.CreatedAt)
	if err != nil {
		return ts, wrapTimesheetErr("create", 0, rollbackWithLog(tx, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ts, wrapTimesheetErr("create", 0, rollbackWithLog(tx, err))
	}
	if err := tx.Commit(); err != nil {
		return ts, wrapTimesheetErr("create", 0, err)
	}
	ts.ID = id
	return ts, nil
}

// GetTimesheet fetches one timesheet by id.
func (d *Database) GetTimesheet(ctx context.Context, id int64) (models.Timesheet, error) {
	row := d.DB.QueryRowContext(ctx,
		"SELECT "+timesheetColumns+" FROM timesheets WHERE id = ?", id)
	ts, err := scanTimesheet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ts, &models.NotFoundError{Resource: "timesheet", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return ts, wrapTimesheetErr("get", id, err)
	}
	return ts, nil
}

// FindTimesheetForDate returns the user's timesheet whose period covers date,
// or nil when none exists.
func (d *Database) FindTimesheetForDate(ctx context.Context, userID int64, date string) (*models.Timesheet, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets
		WHERE user_id = ? AND period_start <= ? AND period_end >= ?`,
		userID, date, date)
	ts, err := scanTimesheet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapTimesheetErr("find", userID, err)
	}
	return &ts, nil
}

// ListTimesheets returns all timesheets in the given status, oldest period
// first. An empty status lists everything.
func (d *Database) ListTimesheets(ctx context.Context, status models.TimesheetStatus) ([]models.Timesheet, error) {
	query := "SELECT " + timesheetColumns + " FROM timesheets"
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY period_start ASC, user_id ASC"

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapTimesheetErr("list", 0, err)
	}
	defer rows.Close()

	var sheets []models.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, wrapTimesheetErr("list", 0, err)
		}
		sheets = append(sheets, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapTimesheetErr("list", 0, err)
	}
	return sheets, nil
}

// UpdateTimesheetTotals re-sums a DRAFT timesheet. The status guard makes it
// a no-op once submitted; entries are frozen from then on.
func (d *Database) UpdateTimesheetTotals(ctx context.Context, id int64, total, billable, nonBillable, cost float64) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE timesheets
		SET total_hours = ?, billable_hours = ?, non_billable_hours = ?, total_cost = ?
		WHERE id = ? AND status = 'draft'`,
		total, billable, nonBillable, cost, id)
	return wrapTimesheetErr("totals", id, err)
}

// SubmitTimesheet moves DRAFT to SUBMITTED with a compare-and-set on the
// current status. A concurrent second submit observes zero affected rows and
// loses with ConflictError.
func (d *Database) SubmitTimesheet(ctx context.Context, id int64, now time.Time) error {
	return d.transition(ctx, id,
		"UPDATE timesheets SET status = 'submitted', submitted_at = ? WHERE id = ? AND status = 'draft'",
		"submit", "timesheet is not in draft", now, id)
}

// ApproveTimesheet moves SUBMITTED to APPROVED.
func (d *Database) ApproveTimesheet(ctx context.Context, id int64, now time.Time) error {
	return d.transition(ctx, id,
		"UPDATE timesheets SET status = 'approved', approved_at = ? WHERE id = ? AND status = 'submitted'",
		"approve", "timesheet is not submitted", now, id)
}

// RejectTimesheet moves SUBMITTED to REJECTED, appending to the rejection
// history read under the same transaction.
func (d *Database) RejectTimesheet(ctx context.Context, id int64, reason string, now time.Time) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapTimesheetErr("reject", id, err)
	}

	var raw string
	err = tx.QueryRowContext(ctx,
		"SELECT rejections FROM timesheets WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return rollbackWithLog(tx, &models.NotFoundError{Resource: "timesheet", ID: strconv.FormatInt(id, 10)})
	}
	if err != nil {
		return wrapTimesheetErr("reject", id, rollbackWithLog(tx, err))
	}
	var rejections []models.Rejection
	unmarshalJSON(raw, &rejections)
	rejections = append(rejections, models.Rejection{At: now, Reason: reason})

	res, err := tx.ExecContext(ctx, `
		UPDATE timesheets SET status = 'rejected', rejected_at = ?, rejections = ?
		WHERE id = ? AND status = 'submitted'`,
		now, marshalJSON(rejections), id)
	if err != nil {
		return wrapTimesheetErr("reject", id, rollbackWithLog(tx, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rollbackWithLog(tx, &models.ConflictError{
			Resource: "timesheet", Detail: "timesheet is not submitted",
		})
	}
	return wrapTimesheetErr("reject", id, tx.Commit())
}

// ReopenTimesheet returns a REJECTED timesheet to DRAFT.
func (d *Database) ReopenTimesheet(ctx context.Context, id int64) error {
	return reopenTimesheet(ctx, d.DB, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// reopenTimesheet runs the rejected -> draft transition on db, which is either
// the connection or an entry-update transaction.
func reopenTimesheet(ctx context.Context, db execer, id int64) error {
	res, err := db.ExecContext(ctx,
		"UPDATE timesheets SET status = 'draft' WHERE id = ? AND status = 'rejected'", id)
	if err != nil {
		return wrapTimesheetErr("reopen", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.ConflictError{Resource: "timesheet", Detail: "timesheet is not rejected"}
	}
	return nil
}

func (d *Database) transition(ctx context.Context, id int64, query, op, conflictDetail string, args ...interface{}) error {
	res, err := d.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapTimesheetErr(op, id, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}
	// Distinguish a lost race from an unknown id.
	var exists int
	if err := d.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM timesheets WHERE id = ?", id).Scan(&exists); err != nil {
		return wrapTimesheetErr(op, id, err)
	}
	if exists == 0 {
		return &models.NotFoundError{Resource: "timesheet", ID: strconv.FormatInt(id, 10)}
	}
	return &models.ConflictError{Resource: "timesheet", Detail: conflictDetail}
}

func scanTimesheet(row rowScanner) (models.Timesheet, error) {
	var ts models.Timesheet
	var submitted, approved, rejected, created sql.NullTime
	var rejections string
	err := row.Scan(&ts.ID, &ts.UserID, &ts.PeriodStart, &ts.PeriodEnd,
		&ts.Status, &ts.TotalHours, &ts.BillableHours, &ts.NonBillableHours,
		&ts.TotalCost, &submitted, &approved, &rejected, &rejections, &created)
	if err != nil {
		return ts, err
	}
	ts.SubmittedAt = timePtr(submitted)
	ts.ApprovedAt = timePtr(approved)
	ts.RejectedAt = timePtr(rejected)
	if t := timePtr(created); t != nil {
		ts.CreatedAt = *t
	}
	unmarshalJSON(rejections, &ts.Rejections)
	return ts, nil
}
