// Package heatmap aggregates resource allocations into a utilization grid
// with status buckets.
package heatmap

import (
	"context"

	"sprintlens/internal/config"
	"sprintlens/internal/models"
)

// Store is the persistence surface the builder needs.
type Store interface {
	ListAllocations(ctx context.Context, projectID int64, from, to string) ([]models.ResourceAllocation, error)
	CellAllocations(ctx context.Context, userID int64, date string) ([]models.ResourceAllocation, error)
	ListEntriesForUserDate(ctx context.Context, userID int64, date string) ([]models.TimeEntry, error)
}

// Builder derives utilization grids from allocation rows.
type Builder struct {
	store Store
	cfg   config.Config
}

// New returns a builder backed by store.
func New(store Store, cfg config.Config) *Builder {
	return &Builder{store: store, cfg: cfg}
}

// CellDetail is the drill-down behind one grid cell: the raw allocation rows
// and the time entries logged that day.
type CellDetail struct {
	Allocations []models.ResourceAllocation
	Entries     []models.TimeEntry
}

// Grid aggregates a project's allocations in [from, to] into one cell per
// (user, date), ordered by user then date.
func (b *Builder) Grid(ctx context.Context, projectID int64, from, to string) ([]models.HeatmapCell, error) {
	allocs, err := b.store.ListAllocations(ctx, projectID, from, to)
	if err != nil {
		return nil, err
	}

	cells := make([]models.HeatmapCell, 0, len(allocs))
	for _, a := range allocs {
		capacity := a.CapacityHours
		if capacity <= 0 {
			capacity = b.cfg.StandardCapacityHours
		}
		utilization := a.AssignedHours / capacity
		cells = append(cells, models.HeatmapCell{
			UserID:      a.UserID,
			Date:        a.Date,
			Utilization: utilization,
			Status:      BucketFor(utilization),
		})
	}
	return cells, nil
}

// DrillDown returns the records behind one (user, date) cell without
// recomputing any aggregates.
func (b *Builder) DrillDown(ctx context.Context, userID int64, date string) (CellDetail, error) {
	allocs, err := b.store.CellAllocations(ctx, userID, date)
	if err != nil {
		return CellDetail{}, err
	}
	entries, err := b.store.ListEntriesForUserDate(ctx, userID, date)
	if err != nil {
		return CellDetail{}, err
	}
	return CellDetail{Allocations: allocs, Entries: entries}, nil
}

// BucketFor maps a utilization value onto its status bucket. The mapping is
// total and disjoint: GREY below 0.50, AMBER up to 0.70, GREEN through 0.90,
// AMBER again up to (but excluding) full utilization, GREEN at exactly 1.00,
// RED above it.
func BucketFor(utilization float64) models.Bucket {
	switch {
	case utilization > config.UtilFullyUsed:
		return models.BucketRed
	case utilization == config.UtilFullyUsed:
		return models.BucketGreen
	case utilization < config.UtilGreyBelow:
		return models.BucketGrey
	case utilization >= config.UtilGreenLow && utilization <= config.UtilGreenHigh:
		return models.BucketGreen
	default:
		return models.BucketAmber
	}
}
