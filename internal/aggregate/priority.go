package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"meetprep/internal/classify"
	"meetprep/internal/gateway"
	"meetprep/internal/models"
)

const (
	digestCalendarDays = 3
	maxDigestEvents    = 50
	digestEmailDays    = 3
	maxDigestEmails    = 30
	maxTaskLists       = 3
	maxTasksPerList    = 20
	workdayHours       = 8.0
)

const priorityEmailQuery = "(is:unread OR is:starred OR is:important)"

// UrgencyCounts tallies items per urgency.
type UrgencyCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Normal   int `json:"normal"`
}

func (c *UrgencyCounts) add(u models.Urgency) {
	switch u {
	case models.UrgencyCritical:
		c.Critical++
	case models.UrgencyHigh:
		c.High++
	default:
		c.Normal++
	}
}

// CalendarSummary covers events from the start of today through three days out.
type CalendarSummary struct {
	Events            []classify.ClassifiedEvent `json:"-"`
	Total             int                        `json:"total"`
	Today             int                        `json:"today"`
	ByPriority        UrgencyCounts              `json:"by_priority"`
	MeetingHoursToday float64                    `json:"meeting_hours_today"`
	MeetingHoursTotal float64                    `json:"meeting_hours_total"`
}

// EmailSummary covers flagged or unread mail from the last three days.
type EmailSummary struct {
	Emails          []classify.ClassifiedEmail `json:"-"`
	Total           int                        `json:"total"`
	Unread          int                        `json:"unread"`
	ByUrgency       UrgencyCounts              `json:"by_urgency"`
	RequiresAction  int                        `json:"requires_action"`
	DecisionsNeeded int                        `json:"decisions_needed"`
}

// TaskSummary covers incomplete tasks across the first task lists.
type TaskSummary struct {
	Tasks       []classify.ClassifiedTask `json:"-"`
	Total       int                       `json:"total"`
	ByUrgency   UrgencyCounts             `json:"by_urgency"`
	Overdue     int                       `json:"overdue"`
	DueToday    int                       `json:"due_today"`
	DueThisWeek int                       `json:"due_this_week"`
	Decisions   int                       `json:"decisions"`
}

// DayHealth is the fixed metrics block at the top of the digest.
type DayHealth struct {
	MeetingHours        float64 `json:"meeting_hours"`
	AvailableFocusHours float64 `json:"available_focus_hours"`
	PendingDecisions    int     `json:"pending_decisions"`
	OverdueCount        int     `json:"overdue_count"`
	CriticalItems       int     `json:"critical_items"`
}

// PriorityContext is the classified snapshot behind a priority digest.
type PriorityContext struct {
	Date           time.Time
	Calendar       CalendarSummary
	Email          EmailSummary
	Tasks          TaskSummary
	DayHealth      DayHealth
	StrategicGoals []string
}

// PriorityContextBuilder gathers and classifies calendar, mail and tasks.
type PriorityContextBuilder struct {
	services   gateway.Services
	calendarID string
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

func NewPriorityContextBuilder(logger *slog.Logger, services gateway.Services, calendarID string, loc *time.Location) *PriorityContextBuilder {
	return &PriorityContextBuilder{
		services:   services,
		calendarID: calendarID,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

func (b *PriorityContextBuilder) WithClock(now func() time.Time) *PriorityContextBuilder {
	b.now = now
	return b
}

// Build fetches the three sources in parallel. A failing source contributes
// an empty summary.
func (b *PriorityContextBuilder) Build(ctx context.Context, strategicGoals string) *PriorityContext {
	now := b.now().In(b.loc)
	today := classify.StartOfDay(now, b.loc)

	var (
		events fetchResult[models.CalendarEvent]
		emails fetchResult[models.EmailMessage]
		tasks  fetchResult[models.TaskItem]
	)
	join(ctx,
		func(ctx context.Context) {
			events = fetch(ctx, func(ctx context.Context) ([]models.CalendarEvent, error) {
				return b.services.Calendar.ListEvents(ctx, b.calendarID, gateway.EventQuery{
					TimeMin:    today,
					TimeMax:    today.AddDate(0, 0, digestCalendarDays),
					MaxResults: maxDigestEvents,
				})
			})
		},
		func(ctx context.Context) {
			emails = fetch(ctx, func(ctx context.Context) ([]models.EmailMessage, error) {
				return b.priorityEmails(ctx, now)
			})
		},
		func(ctx context.Context) {
			tasks = fetch(ctx, b.incompleteTasks)
		},
	)

	pc := &PriorityContext{
		Date:           today,
		Calendar:       summarizeEvents(events.orEmpty(b.logger, "calendar"), today, b.loc),
		Email:          summarizeEmails(emails.orEmpty(b.logger, "email")),
		Tasks:          summarizeTasks(tasks.orEmpty(b.logger, "tasks"), now, b.loc),
		StrategicGoals: ParseStrategicGoals(strategicGoals),
	}
	pc.DayHealth = computeDayHealth(pc.Calendar, pc.Email, pc.Tasks)
	return pc
}

func (b *PriorityContextBuilder) priorityEmails(ctx context.Context, now time.Time) ([]models.EmailMessage, error) {
	since := now.AddDate(0, 0, -digestEmailDays)
	query := priorityEmailQuery + " after:" + since.Format("2006/01/02")
	ids, err := b.services.Mail.Search(ctx, query, maxDigestEmails)
	if err != nil {
		return nil, fmt.Errorf("failed to search priority emails: %w", err)
	}
	return hydrate(ctx, b.logger, ids, maxDigestEmails, b.services.Mail.GetMetadata), nil
}

// incompleteTasks reads the first task lists. A list that fails to load is
// skipped.
func (b *PriorityContextBuilder) incompleteTasks(ctx context.Context) ([]models.TaskItem, error) {
	lists, err := b.services.Tasks.ListTaskLists(ctx, maxTaskLists)
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}
	if len(lists) > maxTaskLists {
		lists = lists[:maxTaskLists]
	}

	var out []models.TaskItem
	for _, list := range lists {
		items, err := b.services.Tasks.ListIncompleteTasks(ctx, list, maxTasksPerList)
		if err != nil {
			b.logger.Warn("Skipping task list", "list", list.Title, "error", err)
			continue
		}
		if len(items) > maxTasksPerList {
			items = items[:maxTasksPerList]
		}
		out = append(out, items...)
	}
	return out, nil
}

func summarizeEvents(events []models.CalendarEvent, today time.Time, loc *time.Location) CalendarSummary {
	tomorrow := today.AddDate(0, 0, 1)
	var s CalendarSummary
	var hoursToday, hoursTotal time.Duration
	for _, e := range events {
		e = e.InLocation(loc)
		if e.Cancelled {
			continue
		}
		ce := classify.ClassifiedEvent{
			CalendarEvent: e,
			Type:          classify.MeetingType(e.Title, len(e.SplitAttendees().External) > 0),
			Priority:      classify.MeetingPriority(e.Title),
		}
		s.Events = append(s.Events, ce)
		s.ByPriority.add(ce.Priority)
		hoursTotal += e.Duration()
		if !e.Start.Before(today) && e.Start.Before(tomorrow) {
			s.Today++
			hoursToday += e.Duration()
		}
	}
	classify.SortEvents(s.Events)
	s.Total = len(s.Events)
	s.MeetingHoursToday = roundHours(hoursToday)
	s.MeetingHoursTotal = roundHours(hoursTotal)
	return s
}

func summarizeEmails(msgs []models.EmailMessage) EmailSummary {
	var s EmailSummary
	for _, m := range msgs {
		ce := classify.ClassifiedEmail{EmailMessage: m, EmailClassification: classify.Email(m)}
		s.Emails = append(s.Emails, ce)
		s.ByUrgency.add(ce.Urgency)
		if !m.IsRead {
			s.Unread++
		}
		if ce.RequiresAction {
			s.RequiresAction++
		}
		if ce.Category == models.EmailDecisionNeeded {
			s.DecisionsNeeded++
		}
	}
	classify.SortEmails(s.Emails)
	s.Total = len(s.Emails)
	return s
}

func summarizeTasks(items []models.TaskItem, now time.Time, loc *time.Location) TaskSummary {
	var s TaskSummary
	for _, t := range items {
		t = t.InLocation(loc)
		ct := classify.ClassifiedTask{TaskItem: t, TaskClassification: classify.Task(t, now, loc)}
		s.Tasks = append(s.Tasks, ct)
		s.ByUrgency.add(ct.Urgency)
		switch {
		case ct.Overdue:
			s.Overdue++
		case ct.DueToday:
			s.DueToday++
		case ct.DueThisWeek:
			s.DueThisWeek++
		}
		if ct.Category == models.TaskDecision {
			s.Decisions++
		}
	}
	classify.SortTasks(s.Tasks)
	s.Total = len(s.Tasks)
	return s
}

func computeDayHealth(cal CalendarSummary, mail EmailSummary, tasks TaskSummary) DayHealth {
	return DayHealth{
		MeetingHours:        cal.MeetingHoursToday,
		AvailableFocusHours: math.Max(0, workdayHours-cal.MeetingHoursToday),
		PendingDecisions:    mail.DecisionsNeeded + tasks.Decisions,
		OverdueCount:        tasks.Overdue,
		CriticalItems:       cal.ByPriority.Critical + mail.ByUrgency.Critical + tasks.ByUrgency.Critical,
	}
}

// roundHours converts d to hours with one decimal.
func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*10) / 10
}
