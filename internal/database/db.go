// Package database is the SQLite persistence layer for the analytics core.
// Each entity gets its own file; multi-statement writes run in transactions.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQLite connection.
type Database struct {
	DB     *sql.DB
	dbFile string
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	d := &Database{DB: db, dbFile: path}
	if err := d.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sprint_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sprint_id INTEGER NOT NULL UNIQUE,
			project_id INTEGER NOT NULL,
			committed_points REAL NOT NULL DEFAULT 0,
			planned_value REAL NOT NULL DEFAULT 0,
			earned_value REAL NOT NULL DEFAULT 0,
			actual_cost REAL NOT NULL DEFAULT 0,
			cpi REAL,
			spi REAL,
			risk_level TEXT NOT NULL DEFAULT 'low',
			on_track INTEGER NOT NULL DEFAULT 1,
			scope_added REAL NOT NULL DEFAULT 0,
			scope_removed REAL NOT NULL DEFAULT 0,
			closed INTEGER NOT NULL DEFAULT 0,
			recomputed_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS burn_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sprint_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			ideal REAL NOT NULL DEFAULT 0,
			actual REAL NOT NULL DEFAULT 0,
			scope_added REAL NOT NULL DEFAULT 0,
			scope_removed REAL NOT NULL DEFAULT 0,
			UNIQUE(sprint_id, date)
		);`,
		`CREATE TABLE IF NOT EXISTS velocity_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			sprint_id INTEGER NOT NULL UNIQUE,
			committed REAL NOT NULL DEFAULT 0,
			completed REAL NOT NULL DEFAULT 0,
			avg_3 REAL NOT NULL DEFAULT 0,
			avg_6 REAL NOT NULL DEFAULT 0,
			trend TEXT NOT NULL DEFAULT 'stable',
			closed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS resource_allocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			project_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			capacity_hours REAL NOT NULL DEFAULT 0,
			assigned_hours REAL NOT NULL DEFAULT 0,
			in_progress_hours REAL NOT NULL DEFAULT 0,
			completed_hours REAL NOT NULL DEFAULT 0,
			blocked_hours REAL NOT NULL DEFAULT 0,
			UNIQUE(user_id, project_id, date)
		);`,
		`CREATE TABLE IF NOT EXISTS time_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			task_id INTEGER NOT NULL DEFAULT 0,
			project_id INTEGER NOT NULL DEFAULT 0,
			date TEXT NOT NULL,
			start_time DATETIME,
			end_time DATETIME,
			hours REAL NOT NULL DEFAULT 0,
			billable INTEGER NOT NULL DEFAULT 0,
			hourly_rate REAL NOT NULL DEFAULT 0,
			absence_type TEXT NOT NULL DEFAULT '',
			daily_warning INTEGER NOT NULL DEFAULT 0,
			edit_history TEXT NOT NULL DEFAULT '[]',
			timesheet_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(timesheet_id) REFERENCES timesheets(id)
		);`,
		`CREATE TABLE IF NOT EXISTS timesheets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			period_start TEXT NOT NULL,
			period_end TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			total_hours REAL NOT NULL DEFAULT 0,
			billable_hours REAL NOT NULL DEFAULT 0,
			non_billable_hours REAL NOT NULL DEFAULT 0,
			total_cost REAL NOT NULL DEFAULT 0,
			submitted_at DATETIME,
			approved_at DATETIME,
			rejected_at DATETIME,
			rejections TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, period_start, period_end)
		);`,
		`CREATE TABLE IF NOT EXISTS custom_reports (
			id TEXT PRIMARY KEY,
			owner_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			spec TEXT NOT NULL,
			visualization TEXT NOT NULL DEFAULT '',
			shared INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS report_schedules (
			id TEXT PRIMARY KEY,
			report_id TEXT NOT NULL,
			frequency TEXT NOT NULL,
			hour INTEGER NOT NULL DEFAULT 0,
			weekday INTEGER NOT NULL DEFAULT 0,
			month_day INTEGER NOT NULL DEFAULT 1,
			recipients TEXT NOT NULL DEFAULT '[]',
			format TEXT NOT NULL DEFAULT 'csv',
			next_run DATETIME NOT NULL,
			run_count INTEGER NOT NULL DEFAULT 0,
			failed_runs INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			last_run_at DATETIME
		);`,
	}

	for _, query := range queries {
		if _, err := d.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("creating table: %w: %s", err, query)
		}
	}

	d.migrate(ctx)
	return nil
}

// migrate applies additive column migrations for databases created by older
// builds. Failures are ignored: the column already exists on re-run.
func (d *Database) migrate(ctx context.Context) {
	_, _ = d.DB.ExecContext(ctx, "ALTER TABLE sprint_metrics ADD COLUMN closed INTEGER NOT NULL DEFAULT 0")
	_, _ = d.DB.ExecContext(ctx, "ALTER TABLE time_entries ADD COLUMN absence_type TEXT NOT NULL DEFAULT ''")
	_, _ = d.DB.ExecContext(ctx, "ALTER TABLE time_entries ADD COLUMN daily_warning INTEGER NOT NULL DEFAULT 0")
	_, _ = d.DB.ExecContext(ctx, "ALTER TABLE custom_reports ADD COLUMN visualization TEXT NOT NULL DEFAULT ''")
	_, _ = d.DB.ExecContext(ctx, "ALTER TABLE report_schedules ADD COLUMN last_run_at DATETIME")
}
