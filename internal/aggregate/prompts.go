package aggregate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"meetprep/internal/gateway"
	"meetprep/internal/models"
)

// Items beyond these counts are summarized by their total only.
const (
	promptEmails           = 5
	promptDocuments        = 5
	promptPreviousMeetings = 3
	promptDigestItems      = 10
)

const meetingSystemPrompt = `You are an executive assistant preparing a busy executive for one meeting.

Write an HTML fragment using only these tags: h3, p, ul, li, strong, em, a.
Do not add html, head, body, style or script elements and do not use inline styles.

Possible sections, in this order, each introduced by an h3:
- Meeting Snapshot: what the meeting is about and the expected outcome.
- Key Attendees: who matters and what they likely care about.
- Objectives & Decision Points: decisions needed and questions to answer.
- Background Context: history from previous meetings, related emails and documents.
- Required Documents: links to the supplied documents.
- Potential Concerns: risks and sensitivities visible in the supplied data.
- Recommended Preparation: what to review beforehand.

Rules:
- Use only the data supplied in the message. Never invent people, numbers, dates or documents.
- Omit any section for which the supplied data gives nothing concrete. Do not write filler.
- If context is thin, say in one sentence what is unknown.
- Keep the whole fragment under 350 words.`

const prioritySystemPrompt = `You are a chief of staff writing a morning priority digest for an executive.

Write Markdown using exactly these level-2 headings, in this order, skipping any heading whose data is empty:
## Top 3 Priorities Today
## Calendar Watch
## Inbox Actions
## Task Focus
## Strategic Alignment

Rules:
- Use only the items and numbers supplied in the message. Never invent meetings, senders, tasks or figures.
- Lead with critical items, then high. Refer to items by their exact titles or subjects.
- In Strategic Alignment, relate today's items to the listed goals only where the link is evident.
- Use short bullet points. Keep the whole digest under 300 words.`

const inboxSystemPrompt = `You triage an executive's inbox.

Assign every email exactly one category:
- highPriority: important senders or topics that need attention today
- actionRequired: the sender asks the reader to do, approve or answer something
- followUp: a conversation the reader should come back to
- deadlines: mentions a due date, cutoff or time-bound commitment

Answer with a JSON array only, no prose and no code fences, one object per email:
[{"index": 0, "category": "highPriority"}]`

type promptAttendee struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status,omitempty"`
}

type promptEmail struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Snippet string `json:"snippet,omitempty"`
}

func attendeesJSON(as []models.Attendee) string {
	out := make([]promptAttendee, 0, len(as))
	for _, a := range as {
		out = append(out, promptAttendee{Name: a.Name(), Email: a.Email, Status: a.ResponseStatus})
	}
	return toJSON(out)
}

func emailsJSON(msgs []models.EmailMessage, loc *time.Location) string {
	out := make([]promptEmail, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, promptEmail{
			Subject: m.Subject,
			From:    m.From.String(),
			Date:    m.ReceivedAt.In(loc).Format(time.RFC1123),
			Snippet: m.Snippet,
		})
	}
	return toJSON(out)
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// MeetingPrompt asks for a bounded HTML brief grounded in mc.
func MeetingPrompt(mc *MeetingContext, loc *time.Location) gateway.Prompt {
	e := mc.Event
	var b strings.Builder

	fmt.Fprintf(&b, "Create a meeting preparation brief for:\n\n")
	fmt.Fprintf(&b, "MEETING: %s\n", orDefault(e.Title, "Untitled Meeting"))
	fmt.Fprintf(&b, "Type: %s\n", mc.Type)
	if e.AllDay {
		fmt.Fprintf(&b, "Time: all day on %s\n", e.Start.In(loc).Format("Monday, January 2"))
	} else {
		fmt.Fprintf(&b, "Time: %s to %s\n", e.Start.In(loc).Format(time.RFC1123), e.End.In(loc).Format(time.Kitchen))
	}
	fmt.Fprintf(&b, "Location: %s\n", orDefault(e.Location, "Not specified"))
	fmt.Fprintf(&b, "Conference: %s\n\n", orDefault(e.VideoLink, "No link"))

	fmt.Fprintf(&b, "ATTENDEES (%d people):\n", len(e.Attendees))
	fmt.Fprintf(&b, "Internal: %s\n", attendeesJSON(mc.Attendees.Internal))
	fmt.Fprintf(&b, "External: %s\n\n", attendeesJSON(mc.Attendees.External))

	fmt.Fprintf(&b, "DESCRIPTION:\n%s\n\n", orDefault(e.Description, "No description"))

	fmt.Fprintf(&b, "RELATED EMAILS (%d found):\n%s\n\n", len(mc.Emails), emailsJSON(firstN(mc.Emails, promptEmails), loc))
	fmt.Fprintf(&b, "RELATED DOCUMENTS (%d found):\n%s\n\n", len(mc.Documents), toJSON(firstN(mc.Documents, promptDocuments)))
	fmt.Fprintf(&b, "PREVIOUS MEETINGS (%d found):\n%s\n\n", len(mc.PreviousMeetings), toJSON(firstN(mc.PreviousMeetings, promptPreviousMeetings)))

	b.WriteString("Generate a concise, scannable meeting preparation brief.")
	return gateway.Prompt{System: meetingSystemPrompt, User: b.String()}
}

// PriorityPrompt asks for the Markdown digest of pc.
func PriorityPrompt(pc *PriorityContext, userName string, loc *time.Location) gateway.Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "Priority digest for %s, %s.\n\n", orDefault(userName, "the executive"), pc.Date.In(loc).Format("Monday, January 2, 2006"))

	h := pc.DayHealth
	fmt.Fprintf(&b, "DAY HEALTH: %.1f meeting hours today, %.1f focus hours available, %d pending decisions, %d overdue tasks, %d critical items.\n\n",
		h.MeetingHours, h.AvailableFocusHours, h.PendingDecisions, h.OverdueCount, h.CriticalItems)

	fmt.Fprintf(&b, "CALENDAR (%d events over the next %d days, %d today; critical %d, high %d):\n",
		pc.Calendar.Total, digestCalendarDays, pc.Calendar.Today, pc.Calendar.ByPriority.Critical, pc.Calendar.ByPriority.High)
	for _, e := range firstN(pc.Calendar.Events, promptDigestItems) {
		when := e.Start.In(loc).Format("Mon 15:04")
		if e.AllDay {
			when = e.Start.In(loc).Format("Mon") + " all day"
		}
		fmt.Fprintf(&b, "- [%s] %s | %s | %s | %d attendees\n", e.Priority, when, orDefault(e.Title, "Untitled"), e.Type, len(e.Attendees))
	}

	fmt.Fprintf(&b, "\nEMAIL (%d flagged or unread in the last %d days, %d need action, %d need a decision):\n",
		pc.Email.Total, digestEmailDays, pc.Email.RequiresAction, pc.Email.DecisionsNeeded)
	for _, m := range firstN(pc.Email.Emails, promptDigestItems) {
		fmt.Fprintf(&b, "- [%s] %s | from %s | %s\n", m.Urgency, m.Subject, m.From.String(), m.Category)
	}

	fmt.Fprintf(&b, "\nTASKS (%d open; %d overdue, %d due today, %d due this week):\n",
		pc.Tasks.Total, pc.Tasks.Overdue, pc.Tasks.DueToday, pc.Tasks.DueThisWeek)
	for _, t := range firstN(pc.Tasks.Tasks, promptDigestItems) {
		due := "no due date"
		if t.Due != nil {
			due = "due " + t.Due.In(loc).Format("Mon Jan 2")
		}
		fmt.Fprintf(&b, "- [%s] %s | %s | list %s | %s\n", t.Urgency, t.Title, due, orDefault(t.ListName, "default"), t.Category)
	}

	b.WriteString("\nSTRATEGIC GOALS:\n")
	for i, g := range pc.StrategicGoals {
		fmt.Fprintf(&b, "%d. %s\n", i+1, g)
	}

	return gateway.Prompt{System: prioritySystemPrompt, User: b.String()}
}

// InboxPrompt lists the batch with zero-based indexes for categorization.
func InboxPrompt(msgs []models.EmailMessage) gateway.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Categorize these %d emails:\n\n", len(msgs))
	for i, m := range msgs {
		fmt.Fprintf(&b, "[%d] From: %s\nSubject: %s\nPreview: %s\n\n", i, m.From.String(), m.Subject, orDefault(m.BodyPreview, m.Snippet))
	}
	return gateway.Prompt{System: inboxSystemPrompt, User: b.String()}
}
