package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sprintlens/internal/models"
)

// ScheduleStore is the persistence surface the scheduler needs.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, s models.ReportSchedule) error
	GetSchedule(ctx context.Context, id string) (models.ReportSchedule, error)
	DueSchedules(ctx context.Context, now time.Time) ([]string, error)
	ClaimSchedule(ctx context.Context, id string, now, nextRun time.Time) (bool, error)
	RecordScheduleRun(ctx context.Context, id string, ranAt time.Time, execErr string) error
}

// Sink delivers an executed report to a schedule's recipients.
type Sink interface {
	Deliver(ctx context.Context, s models.ReportSchedule, res Result) error
}

// Scheduler runs stored reports on their recurrence. It holds no timers of
// its own; an external caller polls it.
type Scheduler struct {
	store  ScheduleStore
	engine *Engine
	sink   Sink
}

// NewScheduler returns a scheduler delivering through sink.
func NewScheduler(store ScheduleStore, engine *Engine, sink Sink) *Scheduler {
	return &Scheduler{store: store, engine: engine, sink: sink}
}

// Schedule registers a recurring delivery for a stored report. The first run
// is the next occurrence strictly after now.
func (s *Scheduler) Schedule(ctx context.Context, sched models.ReportSchedule, now time.Time) (models.ReportSchedule, error) {
	if err := checkSchedule(sched); err != nil {
		return models.ReportSchedule{}, err
	}
	sched.ID = uuid.NewString()
	sched.NextRun = ComputeNextRun(sched, now)
	if err := s.store.CreateSchedule(ctx, sched); err != nil {
		return models.ReportSchedule{}, err
	}
	return sched, nil
}

// Poll returns the ids of all schedules whose next run is due at now.
func (s *Scheduler) Poll(ctx context.Context, now time.Time) ([]string, error) {
	return s.store.DueSchedules(ctx, now)
}

// ExecuteAndAdvance claims one due schedule, runs its report and delivers the
// result. The claim atomically advances next_run one cadence before anything
// executes, so concurrent workers cannot double-send and a failing run waits
// for the next occurrence instead of retrying hot. The claimed return is
// false when another worker won the claim or the schedule is not due.
func (s *Scheduler) ExecuteAndAdvance(ctx context.Context, id string, now time.Time) (claimed bool, err error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return false, err
	}
	claimed, err = s.store.ClaimSchedule(ctx, id, now, ComputeNextRun(sched, now))
	if err != nil || !claimed {
		return false, err
	}

	execErr := s.run(ctx, sched)
	msg := ""
	if execErr != nil {
		msg = execErr.Error()
	}
	if err := s.store.RecordScheduleRun(ctx, id, now, msg); err != nil {
		return true, err
	}
	return true, execErr
}

// RunDue polls and executes everything due. One failing schedule never blocks
// the others; the last execution error is returned after all ran.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) (ran int, err error) {
	due, pollErr := s.Poll(ctx, now)
	if pollErr != nil {
		return 0, pollErr
	}
	for _, id := range due {
		claimed, runErr := s.ExecuteAndAdvance(ctx, id, now)
		if claimed {
			ran++
		}
		if runErr != nil {
			err = runErr
		}
	}
	return ran, err
}

func (s *Scheduler) run(ctx context.Context, sched models.ReportSchedule) error {
	res, err := s.engine.ExecuteStored(ctx, sched.ReportID)
	if err != nil {
		return err
	}
	return s.sink.Deliver(ctx, sched, res)
}

func checkSchedule(s models.ReportSchedule) error {
	switch s.Frequency {
	case models.FreqDaily, models.FreqWeekly, models.FreqMonthly,
		models.FreqQuarterly, models.FreqAnnually:
	default:
		return &models.ValidationError{Rule: "frequency", Detail: "unknown frequency " + string(s.Frequency)}
	}
	if s.ReportID == "" {
		return &models.ValidationError{Rule: "report", Detail: "a schedule needs a report"}
	}
	if len(s.Recipients) == 0 {
		return &models.ValidationError{Rule: "recipients", Detail: "a schedule needs at least one recipient"}
	}
	if s.Hour < 0 || s.Hour > 23 {
		return &models.ValidationError{Rule: "hour", Detail: "hour of day is 0-23"}
	}
	return nil
}

// ComputeNextRun finds the schedule's next occurrence strictly after now.
// Month days past the end of a month clamp to its last day.
func ComputeNextRun(s models.ReportSchedule, now time.Time) time.Time {
	switch s.Frequency {
	case models.FreqDaily:
		next := atHour(now, s.Hour)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case models.FreqWeekly:
		days := (s.Weekday - int(now.Weekday()) + 7) % 7
		next := atHour(now.AddDate(0, 0, days), s.Hour)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	case models.FreqMonthly:
		next := onMonthDay(now.Year(), now.Month(), s.MonthDay, s.Hour, now.Location())
		if !next.After(now) {
			next = onMonthDay(now.Year(), now.Month()+1, s.MonthDay, s.Hour, now.Location())
		}
		return next
	case models.FreqQuarterly:
		return onMonthDay(now.Year(), now.Month()+3, s.MonthDay, s.Hour, now.Location())
	default: // annually
		return onMonthDay(now.Year()+1, now.Month(), s.MonthDay, s.Hour, now.Location())
	}
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// onMonthDay builds the occurrence in the given month, clamping day to the
// month's length. time.Date normalizes month overflow for us.
func onMonthDay(year int, month time.Month, day, hour int, loc *time.Location) time.Time {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	last := firstOfNext.AddDate(0, 0, -1).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, hour, 0, 0, 0, loc)
}
