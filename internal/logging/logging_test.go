package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, Options{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, l.GetLevel())

	l.Info("hidden")
	l.Warn("reading tasks failed", "key", "tasks")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "reading tasks failed")
	assert.Contains(t, out, "key=tasks")
}

func TestNew_VerboseWins(t *testing.T) {
	l, err := New(&bytes.Buffer{}, Options{Level: "error", Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, l.GetLevel())
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	assert.Error(t, err)
}

func TestOpen_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "todo.log")

	l, c, err := Open(Options{Path: path})
	require.NoError(t, err)
	l.Info("first")
	require.NoError(t, c.Close())

	l, c, err = Open(Options{Path: path})
	require.NoError(t, err)
	l.Info("second")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestOpen_EmptyPathDiscards(t *testing.T) {
	l, c, err := Open(Options{})
	require.NoError(t, err)
	l.Error("nowhere")
	assert.NoError(t, c.Close())
}
