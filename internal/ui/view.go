package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"todovoice/internal/config"
	"todovoice/internal/recurrence"
	"todovoice/internal/repository"
	"todovoice/internal/task"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	doneStyle   = lipgloss.NewStyle().Faint(true)
	repeatStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

const dayLayout = "Mon Jan 2 2006"

func (m Model) View() string {
	var b strings.Builder

	title := "Todo"
	if m.screen == screenArchived {
		title = "Todo • archive"
	}
	if m.listening != nil {
		title += " • listening"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	switch {
	case len(m.items) == 0 && m.screen == screenArchived:
		b.WriteString("Nothing archived.")
		b.WriteString("\n")
	case len(m.items) == 0:
		b.WriteString(fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.cfg.Keys.Add))
		b.WriteString("\n")
	case m.screen == screenArchived:
		b.WriteString(m.renderArchived())
	default:
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("\n---\n")
	if m.mode == modeAdd {
		b.WriteString(m.renderAddForm())
	} else {
		b.WriteString(m.renderDetailPanel())
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(renderHelp(m.cfg.Keys, m.screen)))

	return b.String()
}

func (m Model) renderTaskList() string {
	var b strings.Builder
	now := m.now()
	loc := m.repo.Location()
	i := 0
	for gi, g := range m.groups {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString(headerStyle.Render(repository.FormatDate(g.Day, now, loc)))
		b.WriteString("\n")
		for _, t := range g.Tasks {
			b.WriteString(m.renderRow(i, t))
			b.WriteString("\n")
			i++
		}
	}
	return b.String()
}

func (m Model) renderArchived() string {
	var b strings.Builder
	loc := m.repo.Location()
	for i, t := range m.items {
		row := m.renderRow(i, t)
		if t.ArchivedAt != nil {
			row += doneStyle.Render("  archived " + t.ArchivedAt.In(loc).Format(dayLayout))
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(i int, t task.Task) string {
	cursor := " "
	if m.cursor == i && m.mode != modeAdd {
		cursor = cursorStyle.Render(">")
	}

	checkbox := "[ ]"
	if t.Completed {
		checkbox = "[x]"
	}
	body := fmt.Sprintf("%s %s", checkbox, truncate(t.Text, m.width-20))
	if t.Completed {
		body = doneStyle.Render(body)
	}

	line := cursor + " " + body
	if t.Recurring != nil {
		line += " " + repeatStyle.Render("↻ "+recurrence.FormatInterval(t.Recurring.Interval))
	}
	return line
}

func (m Model) renderAddForm() string {
	var b strings.Builder
	label := func(f addField, name string) string {
		if m.field == f {
			return cursorStyle.Render("> " + name)
		}
		return "  " + name
	}
	b.WriteString(label(fieldText, "Task"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(label(fieldRepeat, "Repeat"))
	b.WriteString("\n")
	b.WriteString(m.repeat.View())
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderDetailPanel() string {
	t, ok := m.selected()
	if !ok {
		return "No task selected\n"
	}
	loc := m.repo.Location()
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Task      : %s\n", t.Text))
	b.WriteString(fmt.Sprintf("Status    : %s\n", humanStatus(t)))
	b.WriteString(fmt.Sprintf("Created   : %s\n", t.CreatedAt.In(loc).Format(dayLayout+" 15:04")))
	if t.Recurring != nil {
		b.WriteString(fmt.Sprintf("Repeats   : %s\n", recurrence.FormatInterval(t.Recurring.Interval)))
		if !t.IsInstance() {
			b.WriteString(fmt.Sprintf("Next      : %s\n", t.Recurring.NextDate.In(loc).Format(dayLayout)))
		}
	}
	return b.String()
}

// describe is the one-line summary shown by the detail key.
func (m Model) describe(t task.Task) string {
	info := fmt.Sprintf("Task #%d • %s • %s", t.ID, t.Text, humanStatus(t))
	if t.Recurring != nil {
		info += " • " + recurrence.FormatInterval(t.Recurring.Interval)
	}
	if t.IsInstance() {
		info += fmt.Sprintf(" • from #%d", t.InstanceOf)
	}
	return info
}

func renderHelp(k config.Keymap, s screen) string {
	if s == screenArchived {
		return fmt.Sprintf("%s/%s move • %s delete • %s detail • %s back • %s quit",
			k.Up, k.Down, k.Delete, k.Detail, k.Archived, k.Quit)
	}
	return fmt.Sprintf("%s/%s move • %s add • %s speak • %s toggle • %s archive • %s detail • %s archived • %s quit",
		k.Up, k.Down, k.Add, k.Speak, keyName(k.Toggle), k.Archive, k.Detail, k.Archived, k.Quit)
}

func keyName(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func humanStatus(t task.Task) string {
	switch {
	case t.Archived:
		return "archived"
	case t.Completed:
		return "done"
	}
	return "pending"
}

// truncate shortens text for display only.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
