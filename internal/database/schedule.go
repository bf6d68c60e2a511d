package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sprintlens/internal/models"
)

const scheduleColumns = `id, report_id, frequency, hour, weekday, month_day,
	recipients, format, next_run, run_count, failed_runs, last_error, last_run_at`

// CreateSchedule stores a schedule with its first computed next_run.
func (d *Database) CreateSchedule(ctx context.Context, s models.ReportSchedule) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO report_schedules (id, report_id, frequency, hour, weekday,
			month_day, recipients, format, next_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ReportID, string(s.Frequency), s.Hour, s.Weekday, s.MonthDay,
		marshalJSON(s.Recipients), string(s.Format), s.NextRun)
	return wrapReportErr("create schedule", err)
}

// GetSchedule fetches one schedule by id.
func (d *Database) GetSchedule(ctx context.Context, id string) (models.ReportSchedule, error) {
	row := d.DB.QueryRowContext(ctx,
		"SELECT "+scheduleColumns+" FROM report_schedules WHERE id = ?", id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, &models.NotFoundError{Resource: "schedule", ID: id}
	}
	if err != nil {
		return s, wrapReportErr("get schedule", err)
	}
	return s, nil
}

// DueSchedules returns the ids of schedules whose next_run has passed.
func (d *Database) DueSchedules(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx,
		"SELECT id FROM report_schedules WHERE next_run <= ? ORDER BY next_run ASC", now)
	if err != nil {
		return nil, wrapReportErr("due schedules", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapReportErr("due schedules", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapReportErr("due schedules", err)
	}
	return ids, nil
}

// ClaimSchedule atomically claims a due schedule by advancing next_run. Only
// one of any number of concurrent workers observes an affected row; the rest
// see a future next_run and skip. This is the double-send guard.
func (d *Database) ClaimSchedule(ctx context.Context, id string, now, nextRun time.Time) (bool, error) {
	res, err := d.DB.ExecContext(ctx, `
		UPDATE report_schedules SET next_run = ?
		WHERE id = ? AND next_run <= ?`, nextRun, id, now)
	if err != nil {
		return false, wrapReportErr("claim schedule", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RecordScheduleRun updates execution bookkeeping after an attempt. next_run
// was already advanced at claim time and is left alone here, so a failed run
// retries at the regular cadence instead of doubling up.
func (d *Database) RecordScheduleRun(ctx context.Context, id string, ranAt time.Time, execErr string) error {
	var err error
	if execErr == "" {
		_, err = d.DB.ExecContext(ctx, `
			UPDATE report_schedules
			SET run_count = run_count + 1, last_error = '', last_run_at = ?
			WHERE id = ?`, ranAt, id)
	} else {
		_, err = d.DB.ExecContext(ctx, `
			UPDATE report_schedules
			SET run_count = run_count + 1, failed_runs = failed_runs + 1,
				last_error = ?, last_run_at = ?
			WHERE id = ?`, execErr, ranAt, id)
	}
	return wrapReportErr("record run", err)
}

func scanSchedule(row rowScanner) (models.ReportSchedule, error) {
	var s models.ReportSchedule
	var recipients string
	var lastRun sql.NullTime
	err := row.Scan(&s.ID, &s.ReportID, &s.Frequency, &s.Hour, &s.Weekday,
		&s.MonthDay, &recipients, &s.Format, &s.NextRun, &s.RunCount,
		&s.FailedRuns, &s.LastError, &lastRun)
	if err != nil {
		return s, err
	}
	s.LastRunAt = timePtr(lastRun)
	unmarshalJSON(recipients, &s.Recipients)
	return s, nil
}
