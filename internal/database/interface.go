package database

import (
	"context"
	"time"

	"sprintlens/internal/models"
)

// MetricStore defines sprint metric and burn series operations.
type MetricStore interface {
	UpsertSprintMetric(ctx context.Context, m models.SprintMetric) error
	GetSprintMetric(ctx context.Context, sprintID int64) (models.SprintMetric, error)
	AddScopeChange(ctx context.Context, sprintID int64, added, removed float64) error
	CloseSprintMetric(ctx context.Context, sprintID int64) error
	UpsertBurnPoint(ctx context.Context, p models.BurnPoint) error
	GetBurnSeries(ctx context.Context, sprintID int64) ([]models.BurnPoint, error)
}

// VelocityStore defines velocity history operations.
type VelocityStore interface {
	AppendVelocity(ctx context.Context, m models.VelocityMetric) (models.VelocityMetric, bool, error)
	ListVelocity(ctx context.Context, projectID int64) ([]models.VelocityMetric, error)
}

// AllocationStore defines resource allocation operations.
type AllocationStore interface {
	UpsertAllocation(ctx context.Context, a models.ResourceAllocation) error
	ListAllocations(ctx context.Context, projectID int64, from, to string) ([]models.ResourceAllocation, error)
	CellAllocations(ctx context.Context, userID int64, date string) ([]models.ResourceAllocation, error)
}

// TimeEntryStore defines time entry operations.
type TimeEntryStore interface {
	CreateTimeEntry(ctx context.Context, e models.TimeEntry, caps DailyCaps) (models.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, e models.TimeEntry, caps DailyCaps, reopenTimesheetID int64) (models.TimeEntry, error)
	GetTimeEntry(ctx context.Context, id int64) (models.TimeEntry, error)
	ListEntriesForPeriod(ctx context.Context, userID int64, from, to string) ([]models.TimeEntry, error)
	ListEntriesForUserDate(ctx context.Context, userID int64, date string) ([]models.TimeEntry, error)
	AssignEntriesToTimesheet(ctx context.Context, timesheetID, userID int64, from, to string) error
}

// TimesheetStore defines timesheet lifecycle operations.
type TimesheetStore interface {
	CreateTimesheet(ctx context.Context, ts models.Timesheet) (models.Timesheet, error)
	GetTimesheet(ctx context.Context, id int64) (models.Timesheet, error)
	FindTimesheetForDate(ctx context.Context, userID int64, date string) (*models.Timesheet, error)
	ListTimesheets(ctx context.Context, status models.TimesheetStatus) ([]models.Timesheet, error)
	UpdateTimesheetTotals(ctx context.Context, id int64, total, billable, nonBillable, cost float64) error
	SubmitTimesheet(ctx context.Context, id int64, now time.Time) error
	ApproveTimesheet(ctx context.Context, id int64, now time.Time) error
	RejectTimesheet(ctx context.Context, id int64, reason string, now time.Time) error
	ReopenTimesheet(ctx context.Context, id int64) error
}

// ReportStore defines report definition and execution operations.
type ReportStore interface {
	CreateReport(ctx context.Context, r models.CustomReport) error
	GetReport(ctx context.Context, id string) (models.CustomReport, error)
	UpdateReport(ctx context.Context, r models.CustomReport) error
	DeleteReport(ctx context.Context, id string, ownerID int64) error
	ListReports(ctx context.Context, userID int64) ([]models.CustomReport, error)
	RunAggregation(ctx context.Context, q AggQuery) ([]string, [][]interface{}, error)
}

// ScheduleStore defines report schedule operations.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, s models.ReportSchedule) error
	GetSchedule(ctx context.Context, id string) (models.ReportSchedule, error)
	DueSchedules(ctx context.Context, now time.Time) ([]string, error)
	ClaimSchedule(ctx context.Context, id string, now, nextRun time.Time) (bool, error)
	RecordScheduleRun(ctx context.Context, id string, ranAt time.Time, execErr string) error
}

// Store combines all store interfaces.
type Store interface {
	MetricStore
	VelocityStore
	AllocationStore
	TimeEntryStore
	TimesheetStore
	ReportStore
	ScheduleStore
}

var _ Store = (*Database)(nil)
