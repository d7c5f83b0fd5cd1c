package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestNew_Defaults(t *testing.T) {
	tk, err := New("Buy milk", nil, 42, now)
	require.NoError(t, err)

	assert.Equal(t, int64(42), tk.ID)
	assert.Equal(t, "Buy milk", tk.Text)
	assert.False(t, tk.Completed)
	assert.False(t, tk.Archived)
	assert.Nil(t, tk.ArchivedAt)
	assert.Nil(t, tk.Recurring)
	assert.Equal(t, now, tk.CreatedAt)
}

func TestNew_RejectsBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := New(text, nil, 1, now)
		assert.ErrorIs(t, err, ErrEmptyText)
	}
}

func TestNew_KeepsTextUntrimmed(t *testing.T) {
	long := "  call the plumber about the kitchen sink that has been leaking since last week  "
	tk, err := New(long, nil, 1, now)
	require.NoError(t, err)
	assert.Equal(t, long, tk.Text)
}

func TestNew_CopiesRecurrence(t *testing.T) {
	rec := &Recurrence{Interval: Weekly, NextDate: now}
	tk, err := New("Water plants", rec, 1, now)
	require.NoError(t, err)

	rec.NextDate = now.Add(time.Hour)
	assert.Equal(t, now, tk.Recurring.NextDate)
}

func TestNew_RejectsInvalidInterval(t *testing.T) {
	_, err := New("x", &Recurrence{NextDate: now}, 1, now)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestArchive_SetsTimestampOnce(t *testing.T) {
	tk, _ := New("x", nil, 1, now)
	tk.Archive(now)
	later := now.Add(time.Hour)
	tk.Archive(later)

	assert.True(t, tk.Archived)
	require.NotNil(t, tk.ArchivedAt)
	assert.Equal(t, now, *tk.ArchivedAt)
	assert.NoError(t, tk.Validate())
}

func TestValidate_ArchivedInvariant(t *testing.T) {
	tk, _ := New("x", nil, 1, now)
	tk.Archived = true
	assert.Error(t, tk.Validate())

	tk.Archived = false
	tk.ArchivedAt = &now
	assert.Error(t, tk.Validate())
}

func TestClone_Independent(t *testing.T) {
	tk, _ := New("x", &Recurrence{Interval: Daily, NextDate: now}, 1, now)
	tk.Archive(now)

	c := tk.Clone()
	c.Recurring.NextDate = now.AddDate(0, 0, 1)
	*c.ArchivedAt = now.AddDate(1, 0, 0)

	assert.Equal(t, now, tk.Recurring.NextDate)
	assert.Equal(t, now, *tk.ArchivedAt)
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("Monthly")
	require.NoError(t, err)
	assert.Equal(t, Monthly, iv)

	iv, err = ParseInterval(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, KindDays, iv.Kind())
	assert.Equal(t, 3, iv.Days())

	for _, bad := range []string{"", "fortnightly", "0", "-2", "1.5"} {
		_, err := ParseInterval(bad)
		assert.ErrorIs(t, err, ErrInvalidInterval, bad)
	}
}

func TestInterval_ZeroValueInvalid(t *testing.T) {
	var iv Interval
	assert.False(t, iv.Valid())
	_, err := json.Marshal(iv)
	assert.Error(t, err)
}

func TestInterval_JSONShape(t *testing.T) {
	ten, _ := EveryDays(10)
	b, err := json.Marshal(Recurrence{Interval: ten, NextDate: now})
	require.NoError(t, err)
	assert.JSONEq(t, `{"interval":10,"nextDate":"2026-03-14T09:30:00Z"}`, string(b))

	b, err = json.Marshal(Recurrence{Interval: Yearly, NextDate: now})
	require.NoError(t, err)
	assert.JSONEq(t, `{"interval":"yearly","nextDate":"2026-03-14T09:30:00Z"}`, string(b))
}

func TestInterval_JSONDecodeRejectsUnknown(t *testing.T) {
	var r Recurrence
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"interval":"hourly","nextDate":"2026-03-14T09:30:00Z"}`), &r), ErrInvalidInterval)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"interval":0,"nextDate":"2026-03-14T09:30:00Z"}`), &r), ErrInvalidInterval)
	assert.Error(t, json.Unmarshal([]byte(`{"interval":2.5,"nextDate":"2026-03-14T09:30:00Z"}`), &r))
}

func TestInterval_YAML(t *testing.T) {
	var r struct {
		A Interval `yaml:"a"`
		B Interval `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: weekly\nb: 14\n"), &r))
	assert.Equal(t, Weekly, r.A)
	assert.Equal(t, 14, r.B.Days())

	assert.Error(t, yaml.Unmarshal([]byte("a: sometimes\n"), &r))
	assert.Error(t, yaml.Unmarshal([]byte("a: -1\n"), &r))
}

func TestIDSource_Monotonic(t *testing.T) {
	var ids IDSource
	a := ids.Next(now)
	b := ids.Next(now)
	c := ids.Next(now.Add(-time.Second))

	assert.Equal(t, now.UnixMilli(), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
}

func TestIDSource_Observe(t *testing.T) {
	var ids IDSource
	ids.Observe(now.UnixMilli() + 500)
	assert.Equal(t, now.UnixMilli()+501, ids.Next(now))
}
