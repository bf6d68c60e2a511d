package database

import (
	"context"
	"database/sql"

	"sprintlens/internal/models"
)

const allocationColumns = `id, user_id, project_id, date, capacity_hours,
	assigned_hours, in_progress_hours, completed_hours, blocked_hours`

// UpsertAllocation writes the allocation record for (user, project, date),
// replacing any previous hours for that cell.
func (d *Database) UpsertAllocation(ctx context.Context, a models.ResourceAllocation) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO resource_allocations
			(user_id, project_id, date, capacity_hours, assigned_hours,
			 in_progress_hours, completed_hours, blocked_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, project_id, date) DO UPDATE SET
			capacity_hours = excluded.capacity_hours,
			assigned_hours = excluded.assigned_hours,
			in_progress_hours = excluded.in_progress_hours,
			completed_hours = excluded.completed_hours,
			blocked_hours = excluded.blocked_hours`,
		a.UserID, a.ProjectID, a.Date, a.CapacityHours, a.AssignedHours,
		a.InProgressHours, a.CompletedHours, a.BlockedHours)
	if err != nil {
		return &OpError{Op: "upsert", Resource: "allocation", ID: a.UserID, Err: err}
	}
	return nil
}

// ListAllocations returns a project's allocation rows within [from, to],
// ordered by user then date.
func (d *Database) ListAllocations(ctx context.Context, projectID int64, from, to string) ([]models.ResourceAllocation, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+allocationColumns+`
		FROM resource_allocations
		WHERE project_id = ? AND date >= ? AND date <= ?
		ORDER BY user_id ASC, date ASC`, projectID, from, to)
	if err != nil {
		return nil, &OpError{Op: "list", Resource: "allocation", ID: projectID, Err: err}
	}
	defer rows.Close()
	return scanAllocations(rows)
}

// CellAllocations returns every allocation row behind one (user, date)
// heatmap cell, across projects.
func (d *Database) CellAllocations(ctx context.Context, userID int64, date string) ([]models.ResourceAllocation, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+allocationColumns+`
		FROM resource_allocations
		WHERE user_id = ? AND date = ?
		ORDER BY project_id ASC`, userID, date)
	if err != nil {
		return nil, &OpError{Op: "cell", Resource: "allocation", ID: userID, Err: err}
	}
	defer rows.Close()
	return scanAllocations(rows)
}

func scanAllocations(rows *sql.Rows) ([]models.ResourceAllocation, error) {
	var allocs []models.ResourceAllocation
	for rows.Next() {
		var a models.ResourceAllocation
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProjectID, &a.Date,
			&a.CapacityHours, &a.AssignedHours, &a.InProgressHours,
			&a.CompletedHours, &a.BlockedHours); err != nil {
			return nil, &OpError{Op: "scan", Resource: "allocation", Err: err}
		}
		allocs = append(allocs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &OpError{Op: "scan", Resource: "allocation", Err: err}
	}
	return allocs, nil
}
