package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todovoice/internal/task"
)

var now = time.Date(2026, 7, 1, 18, 45, 12, 345_000_000, time.UTC)

func sampleTasks(t *testing.T) []task.Task {
	t.Helper()
	every3, err := task.EveryDays(3)
	require.NoError(t, err)

	plain, err := task.New("Buy milk", nil, now.UnixMilli(), now)
	require.NoError(t, err)
	daily, err := task.New("Water plants", &task.Recurrence{Interval: task.Daily, NextDate: now.AddDate(0, 0, 1)}, now.UnixMilli()+1, now)
	require.NoError(t, err)
	custom, err := task.New("Stretch", &task.Recurrence{Interval: every3, NextDate: now}, now.UnixMilli()+2, now)
	require.NoError(t, err)
	custom.Completed = true
	done, err := task.New("File taxes", nil, now.UnixMilli()+3, now.Add(-time.Hour))
	require.NoError(t, err)
	done.Archive(now)
	inst := daily.Clone()
	inst.ID = now.UnixMilli() + 4
	inst.InstanceOf = daily.ID

	return []task.Task{plain, daily, custom, done, inst}
}

func quietLogger(buf *bytes.Buffer) *log.Logger {
	return log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
}

func testBackends() map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		"memory": func(t *testing.T) Backend { return NewMemory() },
		"file": func(t *testing.T) Backend {
			b, err := OpenFile(t.TempDir())
			require.NoError(t, err)
			return b
		},
		"sqlite": func(t *testing.T) Backend {
			b, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "todo.db"))
			require.NoError(t, err)
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, open := range testBackends() {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewStore(open(t), "tasks", quietLogger(&buf))
			want := sampleTasks(t)

			s.SaveAll(want)
			got := s.LoadAll()

			assert.Equal(t, want, got)
			assert.Empty(t, buf.String())
		})
	}
}

func TestStore_LoadMissingKeyIsEmpty(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(NewMemory(), "tasks", quietLogger(&buf))

	got := s.LoadAll()
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, buf.String())
}

func TestStore_NamespacesAreSeparate(t *testing.T) {
	mem := NewMemory()
	a := NewStore(mem, "work", nil)
	b := NewStore(mem, "home", nil)

	a.SaveAll(sampleTasks(t)[:1])
	assert.Len(t, a.LoadAll(), 1)
	assert.Empty(t, b.LoadAll())
}

func TestStore_LoadCorruptDataIsEmpty(t *testing.T) {
	cases := map[string]string{
		"not json":         `{{{`,
		"not an array":     `{"id":1}`,
		"missing text":     `[{"id":1,"completed":false,"createdAt":"2026-07-01T00:00:00Z"}]`,
		"empty text":       `[{"id":1,"text":"","completed":false,"createdAt":"2026-07-01T00:00:00Z"}]`,
		"unknown interval": `[{"id":1,"text":"a","completed":false,"createdAt":"2026-07-01T00:00:00Z","recurring":{"interval":"hourly","nextDate":"2026-07-01T00:00:00Z"}}]`,
		"zero days":        `[{"id":1,"text":"a","completed":false,"createdAt":"2026-07-01T00:00:00Z","recurring":{"interval":0,"nextDate":"2026-07-01T00:00:00Z"}}]`,
		"interval only":    `[{"id":1,"text":"a","completed":false,"createdAt":"2026-07-01T00:00:00Z","recurring":{"interval":"daily"}}]`,
		"bad timestamp":    `[{"id":1,"text":"a","completed":false,"createdAt":"yesterday"}]`,
		"archived no time": `[{"id":1,"text":"a","completed":false,"createdAt":"2026-07-01T00:00:00Z","archived":true}]`,
		"duplicate ids":    `[{"id":1,"text":"a","completed":false,"createdAt":"2026-07-01T00:00:00Z"},{"id":1,"text":"b","completed":false,"createdAt":"2026-07-01T00:00:00Z"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			mem := NewMemory()
			require.NoError(t, mem.Write("tasks", []byte(raw)))
			var buf bytes.Buffer
			s := NewStore(mem, "tasks", quietLogger(&buf))

			got := s.LoadAll()
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Contains(t, buf.String(), "reading tasks failed")
		})
	}
}

func TestDecode_AcceptsSourceShape(t *testing.T) {
	raw := `[{"id":1718000000000,"text":"Water plants","completed":false,"createdAt":"2024-06-10T06:13:20.000Z","recurring":{"interval":7,"nextDate":"2024-06-17T06:13:20.000Z"}},
	{"id":1718000000001,"text":"Old","completed":true,"createdAt":"2024-06-10T06:13:20.001Z","archived":true,"archivedAt":"2024-06-11T00:00:00.000Z"}]`

	got, err := Decode([]byte(raw))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 7, got[0].Recurring.Interval.Days())
	assert.True(t, got[1].Archived)
}

func TestStore_PurgeRemovesOnlyItsNamespace(t *testing.T) {
	for name, open := range testBackends() {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			backend := open(t)
			a := NewStore(backend, "tasks", quietLogger(&buf))
			b := NewStore(backend, "work", quietLogger(&buf))
			a.SaveAll(sampleTasks(t))
			b.SaveAll(sampleTasks(t)[:1])

			require.NoError(t, a.Purge())
			assert.Empty(t, a.LoadAll())
			assert.Len(t, b.LoadAll(), 1)
			assert.NotContains(t, buf.String(), "reading tasks failed")

			// purging an empty namespace is fine
			assert.NoError(t, a.Purge())
		})
	}
}

func TestDecode_SchemaSeesExactNumbers(t *testing.T) {
	raw := `[{"id":1718000000000,"text":"a","completed":false,"createdAt":"2024-06-10T06:13:20.000Z","recurring":{"interval":1.5,"nextDate":"2024-06-10T06:13:20.000Z"}}]`
	_, err := Decode([]byte(raw))
	assert.ErrorContains(t, err, "validate tasks")

	raw = `[{"id":9007199254740993,"text":"a","completed":false,"createdAt":"2024-06-10T06:13:20.000Z"}]`
	got, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), got[0].ID)
}

type failingBackend struct{ *MemoryBackend }

func (failingBackend) Write(string, []byte) error { return errors.New("disk full") }

func TestStore_SaveFailureIsLoggedOnly(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(failingBackend{MemoryBackend: NewMemory()}, "tasks", quietLogger(&buf))

	assert.NotPanics(t, func() { s.SaveAll(sampleTasks(t)) })
	assert.Contains(t, buf.String(), "disk full")
}

func TestFileBackend_RejectsPathKeys(t *testing.T) {
	b, err := OpenFile(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, b.Write("../escape", []byte("[]")))
	_, err = b.Read("a/b")
	assert.Error(t, err)
}

func TestSQLiteBackend_Overwrite(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "todo.db"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Write("tasks", []byte(`[1]`)))
	require.NoError(t, b.Write("tasks", []byte(`[2]`)))
	got, err := b.Read("tasks")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(got))

	require.NoError(t, b.Delete("tasks"))
	_, err = b.Read("tasks")
	assert.ErrorIs(t, err, ErrNotFound)
}
