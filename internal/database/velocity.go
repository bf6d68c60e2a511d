package database

import (
	"context"
	"database/sql"
	"errors"

	"sprintlens/internal/models"
)

// AppendVelocity appends one completed sprint's velocity record. Re-closing
// the same sprint is a no-op: the existing row is returned and inserted is
// false, so history never gains duplicates.
func (d *Database) AppendVelocity(ctx context.Context, m models.VelocityMetric) (models.VelocityMetric, bool, error) {
	res, err := d.DB.ExecContext(ctx, `
		INSERT OR IGNORE INTO velocity_metrics
			(project_id, sprint_id, committed, completed, avg_3, avg_6, trend, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ProjectID, m.SprintID, m.Committed, m.Completed, m.Avg3, m.Avg6,
		string(m.Trend), m.ClosedAt)
	if err != nil {
		return m, false, &OpError{Op: "append", Resource: "velocity", ID: m.SprintID, Err: err}
	}
	n, _ := res.RowsAffected()
	stored, err := d.getVelocityBySprint(ctx, m.SprintID)
	if err != nil {
		return m, false, err
	}
	return stored, n > 0, nil
}

func (d *Database) getVelocityBySprint(ctx context.Context, sprintID int64) (models.VelocityMetric, error) {
	var m models.VelocityMetric
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, project_id, sprint_id, committed, completed, avg_3, avg_6, trend, closed_at
		FROM velocity_metrics WHERE sprint_id = ?`, sprintID).Scan(
		&m.ID, &m.ProjectID, &m.SprintID, &m.Committed, &m.Completed,
		&m.Avg3, &m.Avg6, &m.Trend, &m.ClosedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return m, &models.NotFoundError{Resource: "velocity", ID: "sprint"}
	}
	if err != nil {
		return m, &OpError{Op: "get", Resource: "velocity", ID: sprintID, Err: err}
	}
	return m, nil
}

// ListVelocity returns a project's velocity history in close order.
func (d *Database) ListVelocity(ctx context.Context, projectID int64) ([]models.VelocityMetric, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, project_id, sprint_id, committed, completed, avg_3, avg_6, trend, closed_at
		FROM velocity_metrics
		WHERE project_id = ?
		ORDER BY id ASC`, projectID)
	if err != nil {
		return nil, &OpError{Op: "list", Resource: "velocity", ID: projectID, Err: err}
	}
	defer rows.Close()

	var history []models.VelocityMetric
	for rows.Next() {
		var m models.VelocityMetric
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.SprintID, &m.Committed,
			&m.Completed, &m.Avg3, &m.Avg6, &m.Trend, &m.ClosedAt); err != nil {
			return nil, &OpError{Op: "list", Resource: "velocity", ID: projectID, Err: err}
		}
		history = append(history, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &OpError{Op: "list", Resource: "velocity", ID: projectID, Err: err}
	}
	return history, nil
}
