package models

import "time"

// RiskLevel classifies sprint schedule health from the SPI.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Trend tags the direction of a project's velocity average.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Bucket is a utilization heatmap status bucket.
type Bucket string

const (
	BucketGrey  Bucket = "grey"
	BucketAmber Bucket = "amber"
	BucketGreen Bucket = "green"
	BucketRed   Bucket = "red"
)

// TimesheetStatus enumerates the approval workflow states.
type TimesheetStatus string

const (
	TimesheetDraft     TimesheetStatus = "draft"
	TimesheetSubmitted TimesheetStatus = "submitted"
	TimesheetApproved  TimesheetStatus = "approved"
	TimesheetRejected  TimesheetStatus = "rejected"
)

// Frequency enumerates report schedule recurrences.
type Frequency string

const (
	FreqDaily     Frequency = "daily"
	FreqWeekly    Frequency = "weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqAnnually  Frequency = "annually"
)

// ExportFormat enumerates report export targets.
type ExportFormat string

const (
	FormatPDF  ExportFormat = "pdf"
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// SprintMetric is the persisted earned-value snapshot for one sprint.
// CPI and SPI are nil when their denominators (AC, PV) are zero.
type SprintMetric struct {
	ID              int64
	SprintID        int64
	ProjectID       int64
	CommittedPoints float64
	PlannedValue    float64
	EarnedValue     float64
	ActualCost      float64
	CPI             *float64
	SPI             *float64
	Risk            RiskLevel
	OnTrack         bool
	ScopeAdded      float64
	ScopeRemoved    float64
	Closed          bool
	RecomputedAt    time.Time
}

// BurnPoint is one entry of a sprint's burn-down series, at most one per
// calendar day (last write within a day wins).
type BurnPoint struct {
	SprintID     int64
	Date         string // YYYY-MM-DD
	Ideal        float64
	Actual       float64
	ScopeAdded   float64
	ScopeRemoved float64
}

// VelocityMetric is one completed sprint's velocity record for a project.
// Entries are append-only; closing later sprints never rewrites earlier rows.
type VelocityMetric struct {
	ID        int64
	ProjectID int64
	SprintID  int64
	Committed float64
	Completed float64
	Avg3      float64
	Avg6      float64
	Trend     Trend
	ClosedAt  time.Time
}

// ResourceAllocation is the per (user, project, date) capacity record.
// CapacityHours of zero means "unset"; consumers fall back to the configured
// standard day.
type ResourceAllocation struct {
	ID              int64
	UserID          int64
	ProjectID       int64
	Date            string // YYYY-MM-DD
	CapacityHours   float64
	AssignedHours   float64
	InProgressHours float64
	CompletedHours  float64
	BlockedHours    float64
}

// HeatmapCell is one (user, date) cell of the utilization grid.
type HeatmapCell struct {
	UserID      int64
	Date        string
	Utilization float64
	Status      Bucket
}

// EditRecord is one immutable entry of a time entry's edit history.
type EditRecord struct {
	At       time.Time         `json:"at"`
	Previous map[string]string `json:"previous"`
	Reason   string            `json:"reason"`
}

// TimeEntry is a single logged work session. Once referenced by a submitted
// timesheet it is frozen; edits before that append to EditHistory.
type TimeEntry struct {
	ID           int64
	UserID       int64
	TaskID       int64
	ProjectID    int64
	Date         string // YYYY-MM-DD
	StartTime    *time.Time
	EndTime      *time.Time
	Hours        float64
	Billable     bool
	HourlyRate   float64
	AbsenceType  string // non-empty marks a pre-approved leave entry
	DailyWarning bool
	EditHistory  []EditRecord
	TimesheetID  *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Rejection is one rejection of a timesheet, kept across resubmissions.
type Rejection struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// Timesheet aggregates a user's time entries for one period.
type Timesheet struct {
	ID               int64
	UserID           int64
	PeriodStart      string // YYYY-MM-DD, inclusive
	PeriodEnd        string // YYYY-MM-DD, inclusive
	Status           TimesheetStatus
	TotalHours       float64
	BillableHours    float64
	NonBillableHours float64
	TotalCost        float64
	SubmittedAt      *time.Time
	ApprovedAt       *time.Time
	RejectedAt       *time.Time
	Rejections       []Rejection
	CreatedAt        time.Time
}

// CustomReport is a stored report specification. The Spec column holds the
// validated JSON form; execution always snapshots it.
type CustomReport struct {
	ID            string // uuid
	OwnerID       int64
	Name          string
	Spec          string // JSON-encoded report.Spec
	Visualization string
	Shared        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReportSchedule binds a report to a recurrence and delivery settings.
type ReportSchedule struct {
	ID         string // uuid
	ReportID   string
	Frequency  Frequency
	Hour       int // time of day, 0-23
	Weekday    int // 0=Sunday, weekly only
	MonthDay   int // 1-31, monthly/quarterly/annually; clamped to month length
	Recipients []string
	Format     ExportFormat
	NextRun    time.Time
	RunCount   int64
	FailedRuns int64
	LastError  string
	LastRunAt  *time.Time
}
