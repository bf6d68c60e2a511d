package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sprintlens/internal/models"
)

const reportColumns = `id, owner_id, name, spec, visualization, shared, created_at, updated_at`

// CreateReport stores a new report definition.
func (d *Database) CreateReport(ctx context.Context, r models.CustomReport) error {
	now := time.Now().UTC()
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO custom_reports (id, owner_id, name, spec, visualization, shared, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.Name, r.Spec, r.Visualization, r.Shared, now, now)
	return wrapReportErr("create", err)
}

// GetReport fetches a report definition by id.
func (d *Database) GetReport(ctx context.Context, id string) (models.CustomReport, error) {
	var r models.CustomReport
	err := d.DB.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM custom_reports WHERE id = ?", id).Scan(
		&r.ID, &r.OwnerID, &r.Name, &r.Spec, &r.Visualization, &r.Shared,
		&r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, &models.NotFoundError{Resource: "report", ID: id}
	}
	if err != nil {
		return r, wrapReportErr("get", err)
	}
	return r, nil
}

// UpdateReport replaces an owner's report definition.
func (d *Database) UpdateReport(ctx context.Context, r models.CustomReport) error {
	res, err := d.DB.ExecContext(ctx, `
		UPDATE custom_reports
		SET name = ?, spec = ?, visualization = ?, shared = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		r.Name, r.Spec, r.Visualization, r.Shared, time.Now().UTC(), r.ID, r.OwnerID)
	if err != nil {
		return wrapReportErr("update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Resource: "report", ID: r.ID}
	}
	return nil
}

// DeleteReport removes a report definition.
func (d *Database) DeleteReport(ctx context.Context, id string, ownerID int64) error {
	res, err := d.DB.ExecContext(ctx,
		"DELETE FROM custom_reports WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return wrapReportErr("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Resource: "report", ID: id}
	}
	return nil
}

// ListReports returns the reports visible to a user: their own plus shared.
func (d *Database) ListReports(ctx context.Context, userID int64) ([]models.CustomReport, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM custom_reports
		WHERE owner_id = ? OR shared = 1
		ORDER BY name ASC`, userID)
	if err != nil {
		return nil, wrapReportErr("list", err)
	}
	defer rows.Close()

	var reports []models.CustomReport
	for rows.Next() {
		var r models.CustomReport
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Spec,
			&r.Visualization, &r.Shared, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, wrapReportErr("list", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapReportErr("list", err)
	}
	return reports, nil
}
