package models

import "fmt"

// Domain error taxonomy. Every rejection carries the specific rule that was
// violated; callers match with errors.As.

// ValidationError reports malformed input: unknown report fields, future-dated
// entries, inverted time ranges, missing required values.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Rule
	}
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

// LimitExceededError reports a hard cap violation, e.g. the 24h daily limit.
type LimitExceededError struct {
	Rule     string
	Limit    float64
	Exceeded float64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s %gh exceeded by %gh", e.Rule, e.Limit, e.Exceeded)
}

// ConflictError reports a lost state-transition race or an overlapping
// timesheet period. The caller must re-fetch state; nothing is retried.
type ConflictError struct {
	Resource string
	Detail   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Detail)
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ExportTooLargeError declines an export whose result exceeds the configured
// budget. The on-screen, paginated view remains available.
type ExportTooLargeError struct {
	Rows   int
	Budget int
}

func (e *ExportTooLargeError) Error() string {
	return fmt.Sprintf("export declined: %d rows exceeds budget of %d", e.Rows, e.Budget)
}

// DataQualityError reports inconsistent EVM inputs (negative hours, rates or
// points). The last valid snapshot is retained.
type DataQualityError struct {
	Detail string
}

func (e *DataQualityError) Error() string {
	return "inconsistent input data: " + e.Detail
}
