package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"sprintlens/internal/models"
)

const sprintMetricColumns = `id, sprint_id, project_id, committed_points, planned_value,
	earned_value, actual_cost, cpi, spi, risk_level, on_track, scope_added,
	scope_removed, closed, recomputed_at`

// UpsertSprintMetric writes the full metric snapshot for a sprint. Scope
// counters are part of the snapshot; callers merge them before writing.
func (d *Database) UpsertSprintMetric(ctx context.Context, m models.SprintMetric) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO sprint_metrics (sprint_id, project_id, committed_points,
			planned_value, earned_value, actual_cost, cpi, spi, risk_level,
			on_track, scope_added, scope_removed, closed, recomputed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sprint_id) DO UPDATE SET
			project_id = excluded.project_id,
			committed_points = excluded.committed_points,
			planned_value = excluded.planned_value,
			earned_value = excluded.earned_value,
			actual_cost = excluded.actual_cost,
			cpi = excluded.cpi,
			spi = excluded.spi,
			risk_level = excluded.risk_level,
			on_track = excluded.on_track,
			scope_added = excluded.scope_added,
			scope_removed = excluded.scope_removed,
			closed = excluded.closed,
			recomputed_at = excluded.recomputed_at`,
		m.SprintID, m.ProjectID, m.CommittedPoints, m.PlannedValue,
		m.EarnedValue, m.ActualCost, nullFloat(m.CPI), nullFloat(m.SPI),
		string(m.Risk), m.OnTrack, m.ScopeAdded, m.ScopeRemoved, m.Closed,
		m.RecomputedAt)
	return wrapMetricErr("upsert", m.SprintID, err)
}

// GetSprintMetric fetches the metric snapshot for a sprint.
func (d *Database) GetSprintMetric(ctx context.Context, sprintID int64) (models.SprintMetric, error) {
	var m models.SprintMetric
	var cpi, spi sql.NullFloat64
	var recomputedAt sql.NullTime
	err := d.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM sprint_metrics WHERE sprint_id = ?", sprintMetricColumns),
		sprintID).Scan(
		&m.ID, &m.SprintID, &m.ProjectID, &m.CommittedPoints, &m.PlannedValue,
		&m.EarnedValue, &m.ActualCost, &cpi, &spi, &m.Risk, &m.OnTrack,
		&m.ScopeAdded, &m.ScopeRemoved, &m.Closed, &recomputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return m, &models.NotFoundError{Resource: "sprint metric", ID: strconv.FormatInt(sprintID, 10)}
	}
	if err != nil {
		return m, wrapMetricErr("get", sprintID, err)
	}
	m.CPI = floatPtr(cpi)
	m.SPI = floatPtr(spi)
	if t := timePtr(recomputedAt); t != nil {
		m.RecomputedAt = *t
	}
	return m, nil
}

// AddScopeChange bumps the scope-creep counters for a sprint in place.
func (d *Database) AddScopeChange(ctx context.Context, sprintID int64, added, removed float64) error {
	res, err := d.DB.ExecContext(ctx, `
		UPDATE sprint_metrics
		SET scope_added = scope_added + ?, scope_removed = scope_removed + ?
		WHERE sprint_id = ?`, added, removed, sprintID)
	if err != nil {
		return wrapMetricErr("scope change", sprintID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Resource: "sprint metric", ID: strconv.FormatInt(sprintID, 10)}
	}
	return nil
}

// CloseSprintMetric marks a sprint's metric history as immutable.
func (d *Database) CloseSprintMetric(ctx context.Context, sprintID int64) error {
	res, err := d.DB.ExecContext(ctx,
		"UPDATE sprint_metrics SET closed = 1 WHERE sprint_id = ?", sprintID)
	if err != nil {
		return wrapMetricErr("close", sprintID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Resource: "sprint metric", ID: strconv.FormatInt(sprintID, 10)}
	}
	return nil
}

// UpsertBurnPoint records the burn point for (sprint, date), overwriting any
// earlier point recorded the same calendar day.
func (d *Database) UpsertBurnPoint(ctx context.Context, p models.BurnPoint) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO burn_points (sprint_id, date, ideal, actual, scope_added, scope_removed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sprint_id, date) DO UPDATE SET
			ideal = excluded.ideal,
			actual = excluded.actual,
			scope_added = excluded.scope_added,
			scope_removed = excluded.scope_removed`,
		p.SprintID, p.Date, p.Ideal, p.Actual, p.ScopeAdded, p.ScopeRemoved)
	return wrapMetricErr("burn point", p.SprintID, err)
}

// GetBurnSeries returns the ordered burn-down series for a sprint.
func (d *Database) GetBurnSeries(ctx context.Context, sprintID int64) ([]models.BurnPoint, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT sprint_id, date, ideal, actual, scope_added, scope_removed
		FROM burn_points
		WHERE sprint_id = ?
		ORDER BY date ASC`, sprintID)
	if err != nil {
		return nil, wrapMetricErr("burn series", sprintID, err)
	}
	defer rows.Close()

	var series []models.BurnPoint
	for rows.Next() {
		var p models.BurnPoint
		if err := rows.Scan(&p.SprintID, &p.Date, &p.Ideal, &p.Actual, &p.ScopeAdded, &p.ScopeRemoved); err != nil {
			return nil, wrapMetricErr("burn series", sprintID, err)
		}
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapMetricErr("burn series", sprintID, err)
	}
	return series, nil
}
