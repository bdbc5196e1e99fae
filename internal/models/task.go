package models

import "time"

// TaskList is a named list of tasks.
type TaskList struct {
	ID    string
	Title string
}

// TaskItem is an incomplete task.
type TaskItem struct {
	ID       string
	Title    string
	Notes    string
	ListName string
	Due      *time.Time // nil when the task has no due date; date-only at UTC midnight from Google
}

// InLocation moves the due date to the last second of that date in loc, so
// a task due today is not overdue until the user's day ends.
func (t TaskItem) InLocation(loc *time.Location) TaskItem {
	if t.Due == nil || loc == nil {
		return t
	}
	y, m, d := t.Due.UTC().Date()
	due := time.Date(y, m, d, 23, 59, 59, 0, loc)
	t.Due = &due
	return t
}
