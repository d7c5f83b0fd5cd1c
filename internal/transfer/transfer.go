// Package transfer reads and writes task collections as files.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"todovoice/internal/recurrence"
	"todovoice/internal/repository"
	"todovoice/internal/storage"
	"todovoice/internal/task"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	Text Format = "txt"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".txt", ".md":
		return Text, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// Export writes the whole collection. The text format is a read-only
// checklist of active tasks grouped by creation day.
func Export(w io.Writer, tasks []task.Task, format Format, loc *time.Location) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return err
		}
		return enc.Close()
	case Text:
		return writeChecklist(w, tasks, loc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func writeChecklist(w io.Writer, tasks []task.Task, loc *time.Location) error {
	var active []task.Task
	for _, t := range tasks {
		if !t.Archived {
			active = append(active, t)
		}
	}
	var b strings.Builder
	for i, g := range repository.GroupByCreationDate(active, loc) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(g.Day.Format("2006-01-02") + ":\n")
		for _, t := range g.Tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			line := fmt.Sprintf("- [%s] %s", mark, t.Text)
			if t.Recurring != nil {
				line += " (" + recurrence.FormatInterval(t.Recurring.Interval) + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Import reads a collection written by Export. Text checklists cannot be
// imported.
func Import(r io.Reader, format Format) ([]task.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	switch format {
	case JSON:
		return storage.Decode(data)
	case YAML:
		var tasks []task.Task
		if err := yaml.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		for _, t := range tasks {
			if err := t.Validate(); err != nil {
				return nil, err
			}
		}
		if tasks == nil {
			tasks = []task.Task{}
		}
		return tasks, nil
	}
	return nil, fmt.Errorf("%w: cannot import %q", ErrUnknownFormat, format)
}
