// Package velocity maintains per-project velocity history with rolling
// averages and trend classification.
package velocity

import (
	"context"
	"time"

	"sprintlens/internal/config"
	"sprintlens/internal/models"
)

// Store is the persistence surface the tracker needs.
type Store interface {
	AppendVelocity(ctx context.Context, m models.VelocityMetric) (models.VelocityMetric, bool, error)
	ListVelocity(ctx context.Context, projectID int64) ([]models.VelocityMetric, error)
}

// Tracker appends velocity records as sprints close.
type Tracker struct {
	store Store
}

// New returns a tracker backed by store.
func New(store Store) *Tracker {
	return &Tracker{store: store}
}

// CloseSprint records a completed sprint's velocity and recomputes the
// moving averages over the history including it. Closing the same sprint
// twice is idempotent: the stored record is returned unchanged and no
// duplicate history entry appears. Earlier entries are never rewritten.
func (t *Tracker) CloseSprint(ctx context.Context, projectID, sprintID int64, committed, completed float64) (models.VelocityMetric, error) {
	history, err := t.store.ListVelocity(ctx, projectID)
	if err != nil {
		return models.VelocityMetric{}, err
	}
	for _, m := range history {
		if m.SprintID == sprintID {
			return m, nil
		}
	}

	completedSeries := make([]float64, 0, len(history)+1)
	for _, m := range history {
		completedSeries = append(completedSeries, m.Completed)
	}
	completedSeries = append(completedSeries, completed)

	metric := models.VelocityMetric{
		ProjectID: projectID,
		SprintID:  sprintID,
		Committed: committed,
		Completed: completed,
		Avg3:      tailMean(completedSeries, config.AvgShortWindow),
		Avg6:      tailMean(completedSeries, config.AvgLongWindow),
		ClosedAt:  time.Now().UTC(),
	}
	var prevAvg float64
	if len(history) > 0 {
		prevAvg = history[len(history)-1].Avg3
	}
	metric.Trend = classify(metric.Avg3, prevAvg, len(history) > 0)

	stored, _, err := t.store.AppendVelocity(ctx, metric)
	if err != nil {
		return models.VelocityMetric{}, err
	}
	return stored, nil
}

// Chart returns the project's ordered velocity series.
func (t *Tracker) Chart(ctx context.Context, projectID int64) ([]models.VelocityMetric, error) {
	return t.store.ListVelocity(ctx, projectID)
}

// tailMean averages the last n values, or all of them if fewer exist.
func tailMean(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) > n {
		values = values[len(values)-n:]
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// classify compares the current average against the previous one: a move
// beyond +/-10% marks the trend, anything else is stable.
func classify(current, previous float64, hasPrevious bool) models.Trend {
	if !hasPrevious || previous == 0 {
		return models.TrendStable
	}
	delta := (current - previous) / previous
	switch {
	case delta > config.TrendDelta:
		return models.TrendIncreasing
	case delta < -config.TrendDelta:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}
