package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todovoice/internal/capture"
	"todovoice/internal/config"
	"todovoice/internal/repository"
	"todovoice/internal/task"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeConfirmDelete
)

type screen int

const (
	screenActive screen = iota
	screenArchived
)

type addField int

const (
	fieldText addField = iota
	fieldRepeat
)

// speechMsg carries the outcome of one capture back into the update loop.
type speechMsg struct {
	h     capture.Handle
	text  string
	err   error
	ended bool
}

type Model struct {
	repo     *repository.Repository
	capturer capture.Capturer
	cfg      config.Config
	now      task.Clock

	screen  screen
	groups  []repository.Group
	items   []task.Task
	cursor  int
	mode    mode
	field   addField
	input   textinput.Model
	repeat  textinput.Model
	status  string
	pending *task.Task

	listening capture.Handle
	width     int
}

func Run(repo *repository.Repository, capturer capture.Capturer, cfg config.Config, configPath string, firstLaunch bool) error {
	m := New(repo, capturer, cfg)
	if firstLaunch {
		m.status = fmt.Sprintf("Wrote default config to %s", configPath)
	}

	program := tea.NewProgram(m)
	final, err := program.Run()
	if fm, ok := final.(Model); ok && fm.listening != nil {
		fm.listening.Stop()
	}
	return err
}

// New builds the model and runs the due check once, as the app does on
// every load.
func New(repo *repository.Repository, capturer capture.Capturer, cfg config.Config) Model {
	ti := textinput.New()
	ti.Placeholder = "What needs doing?"
	ti.Width = 40

	ri := textinput.New()
	ri.Placeholder = "none, daily, weekly, monthly, yearly or a number of days"
	ri.CharLimit = 16
	ri.Width = 40

	if capturer == nil {
		capturer = capture.Unsupported{}
	}
	m := Model{
		repo:     repo,
		capturer: capturer,
		cfg:      cfg,
		now:      task.SystemClock,
		input:    ti,
		repeat:   ri,
		mode:     modeList,
		status: fmt.Sprintf("Press '%s' to add, '%s' to speak, '%s' for the archive.",
			cfg.Keys.Add, cfg.Keys.Speak, cfg.Keys.Archived),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAddMode(msg)
		case modeConfirmDelete:
			return m.updateDeleteConfirm(msg.String())
		}
		return m.updateListMode(msg.String())
	case speechMsg:
		return m.handleSpeech(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 10
		m.repeat.Width = msg.Width - 10
	}
	return m, nil
}

// refresh runs the due check and reloads the visible list. It follows
// every mutation.
func (m *Model) refresh() int {
	spawned := m.repo.CheckDue()
	m.reload()
	return len(spawned)
}

func (m *Model) reload() {
	var items []task.Task
	if m.screen == screenArchived {
		m.groups = nil
		items = m.repo.Archived()
	} else {
		m.groups = m.repo.Groups()
		for _, g := range m.groups {
			items = append(items, g.Tasks...)
		}
	}
	m.items = items
	m.cursor = clampCursor(m.cursor, len(m.items))
}

func (m *Model) selectID(id int64) {
	for i, t := range m.items {
		if t.ID == id {
			m.cursor = i
			return
		}
	}
	m.cursor = clampCursor(m.cursor, len(m.items))
}

func (m Model) selected() (task.Task, bool) {
	if len(m.items) == 0 {
		return task.Task{}, false
	}
	return m.items[clampCursor(m.cursor, len(m.items))], true
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		if m.listening != nil {
			m.listening.Stop()
			m.listening = nil
		}
		return m, tea.Quit
	case k.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.items))
	case k.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.items))
	case k.Add:
		if m.screen == screenArchived {
			return m, nil
		}
		m.stopListening()
		return m.startAdd("")
	case k.Speak:
		return m.toggleSpeech()
	case k.Archived:
		if m.screen == screenArchived {
			m.screen = screenActive
			m.status = "Active tasks"
		} else {
			m.screen = screenArchived
			m.status = "Archived tasks"
		}
		m.cursor = 0
		m.reload()
	case k.Toggle:
		t, ok := m.selected()
		if !ok || m.screen == screenArchived {
			return m, nil
		}
		if !m.repo.ToggleCompleted(t.ID) {
			m.status = "Task can no longer be changed"
			m.reload()
			return m, nil
		}
		m.status = withSpawned("Toggled task", m.refresh())
		m.selectID(t.ID)
	case k.Archive:
		t, ok := m.selected()
		if !ok || m.screen == screenArchived {
			return m, nil
		}
		if m.repo.Archive(t.ID) {
			m.status = withSpawned(fmt.Sprintf("Archived %q", t.Text), m.refresh())
		} else {
			m.reload()
		}
	case k.Delete:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.screen != screenArchived {
			m.status = fmt.Sprintf("Archive a task with '%s' before deleting it", k.Archive)
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.pending = &t
		m.status = fmt.Sprintf("Delete %q for good? y/n", t.Text)
	case k.Detail:
		t, ok := m.selected()
		if !ok {
			m.status = "No tasks"
			return m, nil
		}
		m.status = m.describe(t)
	}
	return m, nil
}

func (m Model) startAdd(text string) (tea.Model, tea.Cmd) {
	m.mode = modeAdd
	m.field = fieldText
	m.input.SetValue(text)
	m.input.CursorEnd()
	m.repeat.SetValue("")
	m.repeat.Blur()
	m.status = "Type a task, tab to set a repeat, enter to save"
	cmd := m.input.Focus()
	return m, cmd
}

func (m *Model) resetAdd() {
	m.mode = modeList
	m.field = fieldText
	m.input.SetValue("")
	m.input.Blur()
	m.repeat.SetValue("")
	m.repeat.Blur()
}

func (m Model) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.cfg.Keys.Cancel, "esc":
		m.resetAdd()
		m.status = "Cancelled"
		return m, nil
	case "tab", "shift+tab":
		if m.field == fieldText {
			m.field = fieldRepeat
			m.input.Blur()
			cmd := m.repeat.Focus()
			return m, cmd
		}
		m.field = fieldText
		m.repeat.Blur()
		cmd := m.input.Focus()
		return m, cmd
	case m.cfg.Keys.Confirm, "enter":
		return m.submitTask()
	default:
		var cmd tea.Cmd
		if m.field == fieldRepeat {
			m.repeat, cmd = m.repeat.Update(msg)
		} else {
			m.input, cmd = m.input.Update(msg)
		}
		return m, cmd
	}
}

func (m Model) submitTask() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	rec, err := parseRepeat(m.repeat.Value(), m.now())
	if err != nil {
		m.status = fmt.Sprintf("Repeat not understood: %v", err)
		m.field = fieldRepeat
		m.input.Blur()
		cmd := m.repeat.Focus()
		return m, cmd
	}
	t, err := m.repo.CreateTask(text, rec)
	if err == nil {
		err = m.repo.Add(t)
	}
	if err != nil {
		m.status = fmt.Sprintf("add failed: %v", err)
		return m, nil
	}
	m.resetAdd()
	m.status = withSpawned("Added task", m.refresh())
	m.selectID(t.ID)
	return m, nil
}

// parseRepeat reads the repeat field of the add form. A new recurring task
// is due straight away.
func parseRepeat(v string, now time.Time) (*task.Recurrence, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "none") {
		return nil, nil
	}
	iv, err := task.ParseInterval(v)
	if err != nil {
		return nil, err
	}
	return &task.Recurrence{Interval: iv, NextDate: now}, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", "esc":
		m.status = "Delete cancelled"
	case "y", "Y":
		if m.pending == nil {
			m.status = "Nothing to delete"
		} else if m.repo.DeleteArchived(m.pending.ID) {
			m.status = withSpawned("Deleted task", m.refresh())
		} else {
			m.status = "Task is already gone"
			m.reload()
		}
	default:
		return m, nil
	}
	m.mode = modeList
	m.pending = nil
	return m, nil
}

func (m Model) toggleSpeech() (tea.Model, tea.Cmd) {
	if m.listening != nil {
		m.stopListening()
		m.status = "Stopped listening"
		return m, nil
	}
	ch := make(chan speechMsg, 1)
	h, err := m.capturer.Start(
		func(text string) { ch <- speechMsg{text: text} },
		func(err error) { ch <- speechMsg{err: err} },
	)
	switch {
	case errors.Is(err, capture.ErrUnsupported):
		m.status = "Speech recognition is not configured (set speech_command)"
		return m, nil
	case err != nil:
		m.status = fmt.Sprintf("Speech recognition failed: %v", err)
		return m, nil
	}
	m.listening = h
	m.status = fmt.Sprintf("Listening... press '%s' to stop", m.cfg.Keys.Speak)
	return m, waitForSpeech(h, ch)
}

func (m *Model) stopListening() {
	if m.listening != nil {
		m.listening.Stop()
		m.listening = nil
	}
}

func waitForSpeech(h capture.Handle, ch <-chan speechMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case r := <-ch:
			r.h = h
			return r
		case <-h.Done():
			select {
			case r := <-ch:
				r.h = h
				return r
			default:
				return speechMsg{h: h, ended: true}
			}
		}
	}
}

func (m Model) handleSpeech(msg speechMsg) (tea.Model, tea.Cmd) {
	if m.listening == nil || msg.h != m.listening {
		return m, nil
	}
	m.listening = nil
	switch {
	case msg.err != nil:
		m.status = fmt.Sprintf("Speech recognition failed: %v", msg.err)
		return m, nil
	case msg.ended:
		m.status = "Stopped listening"
		return m, nil
	}
	if m.mode != modeList || m.screen != screenActive {
		m.status = "Heard: " + msg.text
		return m, nil
	}
	next, cmd := m.startAdd(msg.text)
	nm := next.(Model)
	nm.status = "Heard you. Enter to save, esc to discard"
	return nm, cmd
}

func withSpawned(status string, spawned int) string {
	switch spawned {
	case 0:
		return status
	case 1:
		return status + " • 1 recurring task is due"
	}
	return fmt.Sprintf("%s • %d recurring tasks are due", status, spawned)
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
