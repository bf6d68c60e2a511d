// Package evm computes earned-value metrics for sprints: planned value,
// earned value, actual cost and the derived CPI/SPI performance indices.
package evm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sprintlens/internal/config"
	"sprintlens/internal/models"
)

// Store is the persistence surface the engine needs.
type Store interface {
	UpsertSprintMetric(ctx context.Context, m models.SprintMetric) error
	GetSprintMetric(ctx context.Context, sprintID int64) (models.SprintMetric, error)
	AddScopeChange(ctx context.Context, sprintID int64, added, removed float64) error
	CloseSprintMetric(ctx context.Context, sprintID int64) error
	UpsertBurnPoint(ctx context.Context, p models.BurnPoint) error
	GetBurnSeries(ctx context.Context, sprintID int64) ([]models.BurnPoint, error)
}

// SprintWindow is the sprint definition consumed from the project
// collaborator.
type SprintWindow struct {
	ID              int64
	ProjectID       int64
	Start           time.Time
	End             time.Time
	CommittedPoints float64
}

// TaskState is the relevant slice of an external task record.
type TaskState struct {
	ID            int64
	Done          bool
	StoryPoints   float64
	EstimateValue float64
}

// WorkLog is a time expenditure within the sprint window, already joined
// with the user's hourly rate by the caller.
type WorkLog struct {
	Hours      float64
	HourlyRate float64
}

// Engine recomputes sprint metrics on every relevant task or time event.
type Engine struct {
	store Store
	cfg   config.Config
}

// New returns an engine backed by store.
func New(store Store, cfg config.Config) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// Recompute derives the full metric snapshot from the given task and work
// states as of asOf, persists it, and records the day's burn point. It is a
// pure function of its inputs: replaying the same final state produces the
// identical snapshot, regardless of event order or duplication.
//
// Inconsistent inputs (negative hours, rates or points) reject the recompute
// with DataQualityError; the previously stored snapshot stays untouched.
func (e *Engine) Recompute(ctx context.Context, sprint SprintWindow, tasks []TaskState, logs []WorkLog, asOf time.Time) (models.SprintMetric, error) {
	if err := checkInputs(sprint, tasks, logs); err != nil {
		return models.SprintMetric{}, err
	}

	prior, err := e.store.GetSprintMetric(ctx, sprint.ID)
	if err != nil {
		var nf *models.NotFoundError
		if !errors.As(err, &nf) {
			return models.SprintMetric{}, err
		}
	} else if prior.Closed {
		return prior, &models.DataQualityError{Detail: "sprint metric history is closed"}
	}

	m := models.SprintMetric{
		SprintID:        sprint.ID,
		ProjectID:       sprint.ProjectID,
		CommittedPoints: sprint.CommittedPoints,
		PlannedValue:    e.plannedValue(sprint, asOf),
		RecomputedAt:    asOf,
		// Scope counters are event-driven; carry them across recomputes.
		ScopeAdded:   prior.ScopeAdded,
		ScopeRemoved: prior.ScopeRemoved,
	}

	var completedPoints float64
	for _, t := range tasks {
		if t.Done {
			m.EarnedValue += t.EstimateValue
			completedPoints += t.StoryPoints
		}
	}
	for _, l := range logs {
		m.ActualCost += l.Hours * l.HourlyRate
	}

	if m.ActualCost > 0 {
		cpi := m.EarnedValue / m.ActualCost
		m.CPI = &cpi
	}
	if m.PlannedValue > 0 {
		spi := m.EarnedValue / m.PlannedValue
		m.SPI = &spi
	}
	m.Risk = riskLevel(m.SPI)
	m.OnTrack = m.Risk == models.RiskLow

	if err := e.store.UpsertSprintMetric(ctx, m); err != nil {
		return models.SprintMetric{}, err
	}
	point := models.BurnPoint{
		SprintID:     sprint.ID,
		Date:         asOf.Format("2006-01-02"),
		Ideal:        idealRemaining(sprint, asOf),
		Actual:       sprint.CommittedPoints - completedPoints,
		ScopeAdded:   m.ScopeAdded,
		ScopeRemoved: m.ScopeRemoved,
	}
	if err := e.store.UpsertBurnPoint(ctx, point); err != nil {
		return models.SprintMetric{}, err
	}
	return m, nil
}

// RecordScopeChange bumps the sprint's scope-creep counters when a task is
// added to or removed from the sprint after its start. Closed sprints keep
// their history.
func (e *Engine) RecordScopeChange(ctx context.Context, sprintID int64, addedPoints, removedPoints float64) error {
	if addedPoints < 0 || removedPoints < 0 {
		return &models.DataQualityError{Detail: "scope change points must be non-negative"}
	}
	m, err := e.store.GetSprintMetric(ctx, sprintID)
	if err != nil {
		return err
	}
	if m.Closed {
		return &models.DataQualityError{Detail: "sprint metric history is closed"}
	}
	return e.store.AddScopeChange(ctx, sprintID, addedPoints, removedPoints)
}

// CloseSprint freezes the sprint's metric history.
func (e *Engine) CloseSprint(ctx context.Context, sprintID int64) error {
	return e.store.CloseSprintMetric(ctx, sprintID)
}

// BurnSeries returns the ordered burn-down series for charting.
func (e *Engine) BurnSeries(ctx context.Context, sprintID int64) ([]models.BurnPoint, error) {
	return e.store.GetBurnSeries(ctx, sprintID)
}

func (e *Engine) plannedValue(sprint SprintWindow, asOf time.Time) float64 {
	if e.cfg.PlannedValueMode == config.PVFixed {
		return sprint.CommittedPoints
	}
	return sprint.CommittedPoints * elapsedFraction(sprint, asOf)
}

func idealRemaining(sprint SprintWindow, asOf time.Time) float64 {
	return sprint.CommittedPoints * (1 - elapsedFraction(sprint, asOf))
}

func elapsedFraction(sprint SprintWindow, asOf time.Time) float64 {
	total := sprint.End.Sub(sprint.Start)
	if total <= 0 {
		return 1
	}
	f := float64(asOf.Sub(sprint.Start)) / float64(total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// riskLevel maps the SPI onto the risk taxonomy. A nil SPI means nothing was
// planned yet, which counts as on-track.
func riskLevel(spi *float64) models.RiskLevel {
	switch {
	case spi == nil:
		return models.RiskLow
	case *spi >= config.SPILowRisk:
		return models.RiskLow
	case *spi >= config.SPIMediumRisk:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

func checkInputs(sprint SprintWindow, tasks []TaskState, logs []WorkLog) error {
	if sprint.CommittedPoints < 0 {
		return &models.DataQualityError{Detail: "committed points are negative"}
	}
	for _, t := range tasks {
		if t.StoryPoints < 0 || t.EstimateValue < 0 {
			return &models.DataQualityError{Detail: fmt.Sprintf("task %d has negative points or estimate", t.ID)}
		}
	}
	for _, l := range logs {
		if l.Hours < 0 {
			return &models.DataQualityError{Detail: "work log has negative hours"}
		}
		if l.HourlyRate < 0 {
			return &models.DataQualityError{Detail: "work log has negative hourly rate"}
		}
	}
	return nil
}
