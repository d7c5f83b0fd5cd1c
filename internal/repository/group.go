package repository

import (
	"sort"
	"time"

	"todovoice/internal/task"
)

const dayLabelLayout = "Mon Jan 02 2006"

// Group holds the tasks created on one calendar day.
type Group struct {
	Day   time.Time
	Label string
	Tasks []task.Task
}

// GroupByCreationDate buckets tasks by the calendar day of CreatedAt in
// loc. Groups run newest day first; inside a group incomplete tasks come
// before completed ones and each part keeps its input order.
func GroupByCreationDate(tasks []task.Task, loc *time.Location) []Group {
	if loc == nil {
		loc = time.Local
	}
	byDay := map[time.Time]*Group{}
	var order []time.Time
	for _, t := range tasks {
		day := startOfDay(t.CreatedAt, loc)
		g, ok := byDay[day]
		if !ok {
			g = &Group{Day: day, Label: day.Format(dayLabelLayout)}
			byDay[day] = g
			order = append(order, day)
		}
		g.Tasks = append(g.Tasks, t)
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].After(order[j]) })

	groups := make([]Group, 0, len(order))
	for _, day := range order {
		g := byDay[day]
		sort.SliceStable(g.Tasks, func(i, j int) bool {
			return !g.Tasks[i].Completed && g.Tasks[j].Completed
		})
		groups = append(groups, *g)
	}
	return groups
}

// FormatDate renders a day relative to now: "Today", "Yesterday", or a
// full date such as "Monday, January 2, 2006".
func FormatDate(day, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	d := startOfDay(day, loc)
	today := startOfDay(now, loc)
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	return d.Format("Monday, January 2, 2006")
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
