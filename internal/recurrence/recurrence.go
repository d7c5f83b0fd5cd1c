// Package recurrence computes due dates for recurring tasks and spawns
// their instances.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"todovoice/internal/task"
)

var ErrUnknownInterval = errors.New("unknown recurrence interval")

// Engine holds the clock, id source and calendar location that date
// arithmetic runs in.
type Engine struct {
	now    task.Clock
	ids    *task.IDSource
	loc    *time.Location
	logger *log.Logger
}

func New(now task.Clock, ids *task.IDSource, loc *time.Location, logger *log.Logger) *Engine {
	if now == nil {
		now = task.SystemClock
	}
	if ids == nil {
		ids = &task.IDSource{}
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{now: now, ids: ids, loc: loc, logger: logger}
}

// IsRecurring reports whether t carries a recurrence descriptor. Spawned
// instances keep their template's descriptor, so this is true for them as
// well; only templates (InstanceOf zero) are expanded.
func IsRecurring(t task.Task) bool {
	return t.Recurring != nil
}

// NextOccurrence advances from by one interval. A zero from means now.
//
// Days and weeks are calendar days in the engine's location. Months and
// years keep the day of month when it exists in the target month and
// clamp to its last day otherwise, so Jan 31 becomes Feb 28 (or 29) and
// Feb 29 becomes Feb 28 of the next year.
//
// An invalid interval returns from unchanged together with
// ErrUnknownInterval.
func (e *Engine) NextOccurrence(iv task.Interval, from time.Time) (time.Time, error) {
	return e.advance(iv, from, 0)
}

// advance is NextOccurrence with the month and year steps landing on day
// instead of from's day of month. Zero means from's day.
func (e *Engine) advance(iv task.Interval, from time.Time, day int) (time.Time, error) {
	if from.IsZero() {
		from = e.now()
	}
	local := from.In(e.loc)
	if day == 0 {
		day = local.Day()
	}

	var next time.Time
	switch iv.Kind() {
	case task.KindDaily:
		next = local.AddDate(0, 0, 1)
	case task.KindWeekly:
		next = local.AddDate(0, 0, 7)
	case task.KindDays:
		if iv.Days() < 1 {
			return from, fmt.Errorf("%w: every %d days", ErrUnknownInterval, iv.Days())
		}
		next = local.AddDate(0, 0, iv.Days())
	case task.KindMonthly:
		next = addMonthsOn(local, 1, day)
	case task.KindYearly:
		next = addMonthsOn(local, 12, day)
	default:
		return from, fmt.Errorf("%w: %s", ErrUnknownInterval, iv)
	}
	return next.In(from.Location()), nil
}

// AddMonths moves t forward n calendar months, clamping the day of month
// to the length of the target month.
func AddMonths(t time.Time, n int) time.Time {
	return addMonthsOn(t, n, t.Day())
}

func addMonthsOn(t time.Time, n, d int) time.Time {
	y, m, _ := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	ty, tm, _ := first.Date()
	if last := daysIn(ty, tm, t.Location()); d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(ty, tm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// anchorDay is the day of month a template's month and year steps aim
// for. A due date sitting on a month end earlier than the creation day
// was clamped, so the creation day is restored and Jan 31 runs Feb 28,
// Mar 31, Apr 30 instead of settling on the 28th.
func (e *Engine) anchorDay(t *task.Task, due time.Time) int {
	y, m, d := due.In(e.loc).Date()
	if created := t.CreatedAt.In(e.loc).Day(); d == daysIn(y, m, e.loc) && created > d {
		return created
	}
	return d
}

// GenerateDueInstance spawns a new instance of t when its next date has
// been reached, and advances t's next date by one interval from the
// previous next date. It returns nil when t is not a recurring template,
// is archived, or is not yet due. Instances are never expanded even though
// IsRecurring holds for them.
//
// At most one instance is produced per call no matter how overdue t is.
func (e *Engine) GenerateDueInstance(t *task.Task) *task.Task {
	if t == nil || !IsRecurring(*t) || t.IsInstance() || t.Archived {
		return nil
	}
	now := e.now()
	due := t.Recurring.NextDate
	if now.Before(due) {
		return nil
	}
	next, err := e.advance(t.Recurring.Interval, due, e.anchorDay(t, due))
	if err != nil {
		e.logger.Warn("skipping recurring task", "id", t.ID, "err", err)
		return nil
	}

	inst := t.Clone()
	inst.ID = e.ids.Next(now)
	inst.Completed = false
	inst.CreatedAt = now
	inst.InstanceOf = t.ID
	inst.Recurring.NextDate = next

	t.Recurring.NextDate = next
	e.logger.Debug("spawned recurring instance", "template", t.ID, "instance", inst.ID, "next", next)
	return &inst
}

// ExpandDue runs GenerateDueInstance over every task and returns the
// collection with each new instance placed right after its template,
// along with the instances that were created. The input slice is not
// modified.
func (e *Engine) ExpandDue(tasks []task.Task) ([]task.Task, []task.Task) {
	out := make([]task.Task, 0, len(tasks))
	var spawned []task.Task
	for _, t := range tasks {
		t = t.Clone()
		inst := e.GenerateDueInstance(&t)
		out = append(out, t)
		if inst != nil {
			out = append(out, *inst)
			spawned = append(spawned, *inst)
		}
	}
	return out, spawned
}

// FormatInterval renders an interval for display. Every 1 and every 7
// days read the same as their symbolic forms.
func FormatInterval(iv task.Interval) string {
	switch iv.Kind() {
	case task.KindDaily:
		return "Daily"
	case task.KindWeekly:
		return "Weekly"
	case task.KindMonthly:
		return "Monthly"
	case task.KindYearly:
		return "Yearly"
	case task.KindDays:
		switch iv.Days() {
		case 1:
			return "Daily"
		case 7:
			return "Weekly"
		}
		return fmt.Sprintf("Every %d days", iv.Days())
	}
	return iv.String()
}
