package task

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var ErrEmptyText = errors.New("task text is empty")

// Recurrence makes a task a template for new instances. Both fields are
// always set together.
type Recurrence struct {
	Interval Interval  `json:"interval" yaml:"interval"`
	NextDate time.Time `json:"nextDate" yaml:"nextDate"`
}

type Task struct {
	ID         int64       `json:"id" yaml:"id"`
	Text       string      `json:"text" yaml:"text"`
	Completed  bool        `json:"completed" yaml:"completed"`
	CreatedAt  time.Time   `json:"createdAt" yaml:"createdAt"`
	Recurring  *Recurrence `json:"recurring,omitempty" yaml:"recurring,omitempty"`
	Archived   bool        `json:"archived,omitempty" yaml:"archived,omitempty"`
	ArchivedAt *time.Time  `json:"archivedAt,omitempty" yaml:"archivedAt,omitempty"`

	// InstanceOf is the id of the recurring task this one was generated
	// from. Generated instances are never expanded themselves.
	InstanceOf int64 `json:"instanceOf,omitempty" yaml:"instanceOf,omitempty"`
}

// New builds an active, incomplete task. It does not store it anywhere.
func New(text string, rec *Recurrence, id int64, now time.Time) (Task, error) {
	if strings.TrimSpace(text) == "" {
		return Task{}, ErrEmptyText
	}
	if rec != nil {
		if !rec.Interval.Valid() {
			return Task{}, ErrInvalidInterval
		}
		r := *rec
		rec = &r
	}
	return Task{
		ID:        id,
		Text:      text,
		CreatedAt: now,
		Recurring: rec,
	}, nil
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	if t.Recurring != nil {
		r := *t.Recurring
		t.Recurring = &r
	}
	if t.ArchivedAt != nil {
		at := *t.ArchivedAt
		t.ArchivedAt = &at
	}
	return t
}

func (t Task) IsInstance() bool { return t.InstanceOf != 0 }

// Archive marks t archived at now. Archiving happens once; a second call
// keeps the original timestamp.
func (t *Task) Archive(now time.Time) {
	if t.Archived {
		return
	}
	t.Archived = true
	t.ArchivedAt = &now
}

// Validate checks the record invariants that the storage schema cannot
// express.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("task %d: %w", t.ID, ErrEmptyText)
	}
	if t.Archived != (t.ArchivedAt != nil) {
		return fmt.Errorf("task %d: archived=%t but archivedAt set=%t", t.ID, t.Archived, t.ArchivedAt != nil)
	}
	if t.Recurring != nil {
		if !t.Recurring.Interval.Valid() {
			return fmt.Errorf("task %d: %w", t.ID, ErrInvalidInterval)
		}
		if t.Recurring.NextDate.IsZero() {
			return fmt.Errorf("task %d: recurring without nextDate", t.ID)
		}
	}
	return nil
}

// Clock returns the current time. Tests substitute fixed clocks.
type Clock func() time.Time

// SystemClock is UTC wall time truncated to the millisecond, which is the
// precision stored timestamps carry.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// IDSource hands out millisecond-timestamp ids that never repeat, even
// when several tasks are created within the same millisecond.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

func (s *IDSource) Next(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := now.UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe records an id that already exists so later ids sort after it.
func (s *IDSource) Observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.last {
		s.last = id
	}
}
