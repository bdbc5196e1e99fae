package classify

import (
	"strings"
	"time"

	"meetprep/internal/models"
)

// TaskClassification is the heuristic label of a task at a point in time.
type TaskClassification struct {
	Overdue     bool                `json:"overdue"`
	DueToday    bool                `json:"due_today"`
	DueThisWeek bool                `json:"due_this_week"`
	Urgency     models.Urgency      `json:"urgency"`
	Category    models.TaskCategory `json:"category"`
}

var (
	taskCriticalWords = []string{"urgent", "critical", "asap"}
	taskHighWords     = []string{"important", "priority"}
)

var taskCategoryRules = []rule[models.TaskCategory]{
	{[]string{"approve", "approval", "sign off", "sign-off"}, models.TaskApproval},
	{[]string{"prepare", "prep", "draft", "review"}, models.TaskPreparation},
	{[]string{"email", "call", "reply", "respond", "send", "message"}, models.TaskCommunication},
	{[]string{"decide", "decision", "choose"}, models.TaskDecision},
	{[]string{"follow up", "follow-up", "followup", "check in", "check-in"}, models.TaskFollowUp},
}

// StartOfDay returns midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Task labels a task. Due-date arithmetic sets the baseline urgency; title
// keywords can only escalate it.
func Task(task models.TaskItem, now time.Time, loc *time.Location) TaskClassification {
	var c TaskClassification
	urgency := models.UrgencyNormal

	if task.Due != nil {
		due := *task.Due
		endOfToday := StartOfDay(now, loc).AddDate(0, 0, 1)
		switch {
		case due.Before(now):
			c.Overdue = true
			urgency = models.UrgencyCritical
		case due.Before(endOfToday):
			c.DueToday = true
			urgency = models.UrgencyHigh
		case due.Before(now.Add(7 * 24 * time.Hour)):
			c.DueThisWeek = true
			urgency = models.UrgencyHigh
		}
	}

	title := strings.ToLower(task.Title)
	switch {
	case containsAny(title, taskCriticalWords):
		urgency = urgency.Max(models.UrgencyCritical)
	case containsAny(title, taskHighWords):
		urgency = urgency.Max(models.UrgencyHigh)
	}
	c.Urgency = urgency

	category, ok := firstMatch(title, taskCategoryRules)
	if !ok {
		category = models.TaskGeneral
	}
	c.Category = category
	return c
}
