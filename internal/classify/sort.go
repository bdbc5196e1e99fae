package classify

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"meetprep/internal/models"
)

// ClassifiedEvent is a calendar event with its priority-digest labels.
type ClassifiedEvent struct {
	models.CalendarEvent
	Type     models.MeetingType
	Priority models.Urgency
}

// ClassifiedEmail is a message with its heuristic label.
type ClassifiedEmail struct {
	models.EmailMessage
	EmailClassification
}

// ClassifiedTask is a task with its heuristic label.
type ClassifiedTask struct {
	models.TaskItem
	TaskClassification
}

// SortEvents orders by priority, then start time, then id.
func SortEvents(events []ClassifiedEvent) {
	slices.SortStableFunc(events, func(a, b ClassifiedEvent) int {
		return cmp.Or(
			cmp.Compare(a.Priority.Rank(), b.Priority.Rank()),
			a.Start.Compare(b.Start),
			strings.Compare(a.ID, b.ID),
		)
	})
}

// SortEmails orders by urgency, then newest first, then id.
func SortEmails(emails []ClassifiedEmail) {
	slices.SortStableFunc(emails, func(a, b ClassifiedEmail) int {
		return cmp.Or(
			cmp.Compare(a.Urgency.Rank(), b.Urgency.Rank()),
			b.ReceivedAt.Compare(a.ReceivedAt),
			strings.Compare(a.ID, b.ID),
		)
	})
}

// SortTasks orders by urgency, then earliest due date with undated tasks
// last, then title.
func SortTasks(tasks []ClassifiedTask) {
	slices.SortStableFunc(tasks, func(a, b ClassifiedTask) int {
		return cmp.Or(
			cmp.Compare(a.Urgency.Rank(), b.Urgency.Rank()),
			compareDue(a.Due, b.Due),
			strings.Compare(a.Title, b.Title),
			strings.Compare(a.ID, b.ID),
		)
	})
}

func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}
