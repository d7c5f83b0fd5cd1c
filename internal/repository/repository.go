// Package repository owns the task collection and mediates every change
// to it. Each operation reads the whole collection from storage,
// transforms it and writes it back.
package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"todovoice/internal/recurrence"
	"todovoice/internal/task"
)

var ErrDuplicateID = errors.New("task id already exists")

// Storage is the load/save contract of the persistence medium. LoadAll
// returns an empty collection when nothing can be read and SaveAll
// reports its own failures.
type Storage interface {
	LoadAll() []task.Task
	SaveAll([]task.Task)
}

type Config struct {
	Store    Storage
	Engine   *recurrence.Engine
	IDs      *task.IDSource
	Clock    task.Clock
	Location *time.Location
	Logger   *log.Logger
}

type Repository struct {
	store  Storage
	engine *recurrence.Engine
	ids    *task.IDSource
	now    task.Clock
	loc    *time.Location
	logger *log.Logger
}

func New(cfg Config) *Repository {
	r := &Repository{
		store:  cfg.Store,
		engine: cfg.Engine,
		ids:    cfg.IDs,
		now:    cfg.Clock,
		loc:    cfg.Location,
		logger: cfg.Logger,
	}
	if r.now == nil {
		r.now = task.SystemClock
	}
	if r.ids == nil {
		r.ids = &task.IDSource{}
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.engine == nil {
		r.engine = recurrence.New(r.now, r.ids, r.loc, r.logger)
	}
	return r
}

func (r *Repository) load() []task.Task {
	tasks := r.store.LoadAll()
	for _, t := range tasks {
		r.ids.Observe(t.ID)
	}
	return tasks
}

func (r *Repository) index(tasks []task.Task, id int64) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// CreateTask builds a new active task with a fresh id. It is not stored
// until passed to Add.
func (r *Repository) CreateTask(text string, rec *task.Recurrence) (task.Task, error) {
	r.load()
	now := r.now()
	return task.New(text, rec, r.ids.Next(now), now)
}

// Add appends t to the collection.
func (r *Repository) Add(t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	tasks := r.load()
	if r.index(tasks, t.ID) >= 0 {
		return fmt.Errorf("%w: %d", ErrDuplicateID, t.ID)
	}
	tasks = append(tasks, t.Clone())
	r.store.SaveAll(tasks)
	r.logger.Debug("added task", "id", t.ID)
	return nil
}

// Update replaces the stored task with the same id. It reports whether a
// task was replaced.
func (r *Repository) Update(t task.Task) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	tasks := r.load()
	i := r.index(tasks, t.ID)
	if i < 0 {
		r.logger.Debug("update: no such task", "id", t.ID)
		return false, nil
	}
	tasks[i] = t.Clone()
	r.store.SaveAll(tasks)
	return true, nil
}

// Archive moves an active task to the archive. Archiving keeps the
// recurrence descriptor but the task is no longer expanded.
func (r *Repository) Archive(id int64) bool {
	tasks := r.load()
	i := r.index(tasks, id)
	if i < 0 || tasks[i].Archived {
		return false
	}
	tasks[i].Archive(r.now())
	r.store.SaveAll(tasks)
	r.logger.Debug("archived task", "id", id)
	return true
}

// DeleteArchived permanently removes an archived task. Active tasks are
// left alone.
func (r *Repository) DeleteArchived(id int64) bool {
	tasks := r.load()
	i := r.index(tasks, id)
	if i < 0 || !tasks[i].Archived {
		return false
	}
	tasks = append(tasks[:i], tasks[i+1:]...)
	r.store.SaveAll(tasks)
	r.logger.Debug("deleted archived task", "id", id)
	return true
}

// ToggleCompleted flips an active task's completion. Archived tasks are
// frozen and report false.
func (r *Repository) ToggleCompleted(id int64) bool {
	tasks := r.load()
	i := r.index(tasks, id)
	if i < 0 || tasks[i].Archived {
		return false
	}
	tasks[i].Completed = !tasks[i].Completed
	r.store.SaveAll(tasks)
	return true
}

// All returns the whole collection in stored order.
func (r *Repository) All() []task.Task {
	return r.load()
}

func (r *Repository) Get(id int64) (task.Task, bool) {
	tasks := r.load()
	i := r.index(tasks, id)
	if i < 0 {
		return task.Task{}, false
	}
	return tasks[i], true
}

func (r *Repository) Active() []task.Task {
	return filter(r.load(), func(t task.Task) bool { return !t.Archived })
}

func (r *Repository) Archived() []task.Task {
	return filter(r.load(), func(t task.Task) bool { return t.Archived })
}

func filter(tasks []task.Task, keep func(task.Task) bool) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// CheckDue expands every due recurring task into a new instance, stores
// the result and returns the instances created. Nothing is written when
// no task is due.
func (r *Repository) CheckDue() []task.Task {
	tasks, spawned := r.engine.ExpandDue(r.load())
	if len(spawned) == 0 {
		return nil
	}
	r.store.SaveAll(tasks)
	r.logger.Info("generated recurring instances", "count", len(spawned))
	return spawned
}

// Import appends tasks from an external collection. Records whose id is
// already taken get a fresh one; instance links to remapped templates
// follow them.
func (r *Repository) Import(in []task.Task) (int, error) {
	for _, t := range in {
		if err := t.Validate(); err != nil {
			return 0, err
		}
	}
	tasks := r.load()
	taken := make(map[int64]struct{}, len(tasks)+len(in))
	for _, t := range tasks {
		taken[t.ID] = struct{}{}
	}
	now := r.now()
	remap := map[int64]int64{}
	added := make([]task.Task, 0, len(in))
	for _, t := range in {
		t = t.Clone()
		r.ids.Observe(t.ID)
		if _, dup := taken[t.ID]; dup {
			fresh := r.ids.Next(now)
			remap[t.ID] = fresh
			t.ID = fresh
		}
		taken[t.ID] = struct{}{}
		added = append(added, t)
	}
	for i := range added {
		if to, ok := remap[added[i].InstanceOf]; ok {
			added[i].InstanceOf = to
		}
	}
	tasks = append(tasks, added...)
	r.store.SaveAll(tasks)
	r.logger.Info("imported tasks", "count", len(added), "renumbered", len(remap))
	return len(added), nil
}

// Groups returns the active tasks grouped by creation day.
func (r *Repository) Groups() []Group {
	return GroupByCreationDate(r.Active(), r.loc)
}

func (r *Repository) Location() *time.Location { return r.loc }
