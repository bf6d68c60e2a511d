package testutil

import (
	"time"

	"sprintlens/internal/models"
)

// EntryBuilder provides fluent API for creating test time entries.
type EntryBuilder struct {
	entry models.TimeEntry
}

func NewEntry() *EntryBuilder {
	return &EntryBuilder{
		entry: models.TimeEntry{
			UserID:    1,
			ProjectID: 1,
			Date:      "2026-03-02",
			Hours:     8,
			CreatedAt: time.Now(),
		},
	}
}

func (b *EntryBuilder) WithUser(id int64) *EntryBuilder {
	b.entry.UserID = id
	return b
}

func (b *EntryBuilder) WithDate(date string) *EntryBuilder {
	b.entry.Date = date
	return b
}

func (b *EntryBuilder) WithHours(hours float64) *EntryBuilder {
	b.entry.Hours = hours
	return b
}

func (b *EntryBuilder) Billable(rate float64) *EntryBuilder {
	b.entry.Billable = true
	b.entry.HourlyRate = rate
	return b
}

func (b *EntryBuilder) AsAbsence(kind string) *EntryBuilder {
	b.entry.AbsenceType = kind
	return b
}

func (b *EntryBuilder) Build() models.TimeEntry {
	return b.entry
}

// AllocationBuilder provides fluent API for creating test allocations.
type AllocationBuilder struct {
	alloc models.ResourceAllocation
}

func NewAllocation() *AllocationBuilder {
	return &AllocationBuilder{
		alloc: models.ResourceAllocation{
			UserID:        1,
			ProjectID:     1,
			Date:          "2026-03-02",
			CapacityHours: 8,
		},
	}
}

func (b *AllocationBuilder) WithUser(id int64) *AllocationBuilder {
	b.alloc.UserID = id
	return b
}

func (b *AllocationBuilder) WithDate(date string) *AllocationBuilder {
	b.alloc.Date = date
	return b
}

func (b *AllocationBuilder) WithAssigned(hours float64) *AllocationBuilder {
	b.alloc.AssignedHours = hours
	return b
}

func (b *AllocationBuilder) WithCapacity(hours float64) *AllocationBuilder {
	b.alloc.CapacityHours = hours
	return b
}

func (b *AllocationBuilder) Build() models.ResourceAllocation {
	return b.alloc
}
