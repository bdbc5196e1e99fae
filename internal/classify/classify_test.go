package classify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetprep/internal/models"
)

func TestMeetingType(t *testing.T) {
	tests := []struct {
		title       string
		hasExternal bool
		want        models.MeetingType
	}{
		{"Interview: Board Review", false, models.MeetingInterview},
		{"External interview with ACME", true, models.MeetingInterview},
		{"Daily Stand-up", false, models.MeetingStandup},
		{"Alex / Sam 1:1", false, models.MeetingOneOnOne},
		{"Quarterly review", false, models.MeetingReview},
		{"Sprint 42", false, models.MeetingPlanning},
		{"Product demo", false, models.MeetingPresentation},
		{"Project Kick-off", false, models.MeetingKickoff},
		{"Coffee", true, models.MeetingExternal},
		{"Coffee", false, models.MeetingGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, MeetingType(tt.title, tt.hasExternal))
			assert.Equal(t, tt.want, MeetingType(tt.title, tt.hasExternal), "deterministic")
		})
	}
}

func TestMeetingPriority(t *testing.T) {
	tests := map[string]models.Urgency{
		"Board meeting":           models.UrgencyCritical,
		"Investor update":         models.UrgencyCritical,
		"Tax deadline sync":       models.UrgencyCritical,
		"Jo 1:1":                  models.UrgencyHigh,
		"Design review":           models.UrgencyHigh,
		"Company all-hands":       models.UrgencyHigh,
		"Interview - backend":     models.UrgencyHigh,
		"Team standup":            models.UrgencyNormal,
		"Weekly sync":             models.UrgencyNormal,
		"Lunch":                   models.UrgencyNormal,
		"Investor standup review": models.UrgencyCritical,
	}
	for title, want := range tests {
		assert.Equal(t, want, MeetingPriority(title), title)
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		name string
		msg  models.EmailMessage
		want EmailClassification
	}{
		{
			name: "urgent always critical",
			msg:  models.EmailMessage{Subject: "URGENT: please review the report", IsStarred: true},
			want: EmailClassification{models.UrgencyCritical, models.EmailRequest, true},
		},
		{
			name: "approval with deadline",
			msg:  models.EmailMessage{Subject: "Budget approval - deadline Friday"},
			want: EmailClassification{models.UrgencyHigh, models.EmailApprovalNeeded, true},
		},
		{
			name: "flagged important",
			msg:  models.EmailMessage{Subject: "Weekly metrics", IsImportant: true},
			want: EmailClassification{models.UrgencyHigh, models.EmailReport, false},
		},
		{
			name: "decision",
			msg:  models.EmailMessage{Subject: "Need a decision on vendor"},
			want: EmailClassification{models.UrgencyNormal, models.EmailDecisionNeeded, true},
		},
		{
			name: "fyi",
			msg:  models.EmailMessage{Subject: "FYI new office hours"},
			want: EmailClassification{models.UrgencyNormal, models.EmailInformational, false},
		},
		{
			name: "meeting",
			msg:  models.EmailMessage{Subject: "Invitation: offsite"},
			want: EmailClassification{models.UrgencyNormal, models.EmailMeetingRelated, false},
		},
		{
			name: "general",
			msg:  models.EmailMessage{Subject: "Hello"},
			want: EmailClassification{models.UrgencyNormal, models.EmailGeneral, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Email(tt.msg))
		})
	}
}

func TestEmail_UrgentSubjectIsCritical(t *testing.T) {
	for _, subject := range []string{"urgent", "Re: urgent fix", "not urgent?", "URGENT approval decision"} {
		for _, flagged := range []bool{true, false} {
			got := Email(models.EmailMessage{Subject: subject, IsImportant: flagged, IsStarred: flagged})
			assert.Equal(t, models.UrgencyCritical, got.Urgency, subject)
		}
	}
}

func at(t time.Time) *time.Time { return &t }

func TestTask(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, loc)

	tests := []struct {
		name string
		task models.TaskItem
		want TaskClassification
	}{
		{
			name: "overdue ignores title",
			task: models.TaskItem{Title: "someday maybe", Due: at(now.Add(-time.Minute))},
			want: TaskClassification{Overdue: true, Urgency: models.UrgencyCritical, Category: models.TaskGeneral},
		},
		{
			name: "due today",
			task: models.TaskItem{Title: "Prepare board deck", Due: at(now.Add(5 * time.Hour))},
			want: TaskClassification{DueToday: true, Urgency: models.UrgencyHigh, Category: models.TaskPreparation},
		},
		{
			name: "due today escalated by keyword",
			task: models.TaskItem{Title: "URGENT reply to legal", Due: at(now.Add(5 * time.Hour))},
			want: TaskClassification{DueToday: true, Urgency: models.UrgencyCritical, Category: models.TaskCommunication},
		},
		{
			name: "due this week",
			task: models.TaskItem{Title: "Decide on hire", Due: at(now.Add(3 * 24 * time.Hour))},
			want: TaskClassification{DueThisWeek: true, Urgency: models.UrgencyHigh, Category: models.TaskDecision},
		},
		{
			name: "far future priority keyword",
			task: models.TaskItem{Title: "Priority: follow up with Dana", Due: at(now.Add(30 * 24 * time.Hour))},
			want: TaskClassification{Urgency: models.UrgencyHigh, Category: models.TaskFollowUp},
		},
		{
			name: "no due date",
			task: models.TaskItem{Title: "Approve expenses"},
			want: TaskClassification{Urgency: models.UrgencyNormal, Category: models.TaskApproval},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Task(tt.task, now, loc))
		})
	}
}

func TestTask_OverdueAlwaysCritical(t *testing.T) {
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	for _, title := range []string{"", "low prio", "important", "urgent"} {
		c := Task(models.TaskItem{Title: title, Due: at(now.Add(-48 * time.Hour))}, now, time.UTC)
		assert.True(t, c.Overdue)
		assert.Equal(t, models.UrgencyCritical, c.Urgency)
	}
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, "Budget Forecast ACME", Keywords("Budget review: Forecast w/ ACME (sync)", ""))
	assert.Equal(t, "", Keywords("The 1:1 call", ""))

	got := Keywords("Roadmap Planning", "<p>Discuss <b>quarterly</b> roadmap and hiring priorities for platform</p>")
	assert.Equal(t, "Roadmap Planning Discuss quarterly roadmap hiring priorities", got)
}

func TestKeywords_Bounds(t *testing.T) {
	got := Keywords(
		"alpha1 bravo2 charlie3 delta4 echo55 foxtrot6 golf77",
		"indigo juliet kilos limas mikes novembers",
	)
	tokens := strings.Fields(got)
	assert.Len(t, tokens, 8)
	assert.Equal(t, []string{"alpha1", "bravo2", "charlie3", "delta4", "echo55", "indigo", "juliet", "kilos"}, tokens)
}

func TestKeywords_TitleTokensFiltered(t *testing.T) {
	got := Keywords("Meeting with the Sync Update team for Discussion on Review", "")
	for _, tok := range strings.Fields(got) {
		assert.Greater(t, len(tok), 3)
		_, stop := stopWords[strings.ToLower(tok)]
		assert.False(t, stop, tok)
	}
	assert.Equal(t, "team", got)
}

func TestKeywords_IdempotentOnCleanInput(t *testing.T) {
	once := Keywords("Q3 Budget: Forecast & Hiring -- ACME Corp!", "")
	assert.Equal(t, once, Keywords(once, ""))
}

func TestParseInboxCategories(t *testing.T) {
	raw := "```json\n[{\"index\": 0, \"category\": \"actionRequired\"}, {\"index\": \"2\", \"category\": \"deadlines\"}, {\"index\": 7, \"category\": \"followUp\"}, {\"index\": 1, \"category\": \"spam\"}]\n```"

	got, err := ParseInboxCategories(raw, 4)
	require.NoError(t, err)

	assert.Equal(t, InboxAssignment{
		models.InboxActionRequired,
		models.InboxHighPriority,
		models.InboxDeadlines,
		models.InboxHighPriority,
	}, got)
}

func TestParseInboxCategories_MalformedFallsBack(t *testing.T) {
	for _, raw := range []string{"", "I could not classify these.", "[{index: 0]", "[{\"index\": true}]"} {
		got, err := ParseInboxCategories(raw, 5)
		require.ErrorIs(t, err, ErrMalformedModelOutput, raw)
		assert.Nil(t, got)

		fallback := FallbackInboxAssignment(5)
		total := 0
		for _, n := range fallback.Counts() {
			total += n
		}
		assert.Equal(t, 5, total)
		assert.Equal(t, 5, fallback.Counts()[models.InboxHighPriority])
	}
}

func TestInboxAssignmentCounts(t *testing.T) {
	counts := InboxAssignment{models.InboxFollowUp, models.InboxFollowUp}.Counts()
	assert.Equal(t, 2, counts[models.InboxFollowUp])
	assert.Equal(t, 0, counts[models.InboxDeadlines])
	assert.Len(t, counts, 4)
}

func TestSortEmails(t *testing.T) {
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	mk := func(id string, u models.Urgency, age time.Duration) ClassifiedEmail {
		return ClassifiedEmail{
			EmailMessage:        models.EmailMessage{ID: id, ReceivedAt: base.Add(-age)},
			EmailClassification: EmailClassification{Urgency: u},
		}
	}
	emails := []ClassifiedEmail{
		mk("old-normal", models.UrgencyNormal, 3*time.Hour),
		mk("new-high", models.UrgencyHigh, time.Hour),
		mk("critical", models.UrgencyCritical, 10*time.Hour),
		mk("old-high", models.UrgencyHigh, 2*time.Hour),
	}
	SortEmails(emails)

	var ids []string
	for _, e := range emails {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"critical", "new-high", "old-high", "old-normal"}, ids)
}

func TestSortTasks(t *testing.T) {
	due := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	mk := func(title string, u models.Urgency, d *time.Time) ClassifiedTask {
		return ClassifiedTask{
			TaskItem:           models.TaskItem{Title: title, Due: d},
			TaskClassification: TaskClassification{Urgency: u},
		}
	}
	tasks := []ClassifiedTask{
		mk("b undated", models.UrgencyHigh, nil),
		mk("a undated", models.UrgencyHigh, nil),
		mk("later", models.UrgencyHigh, at(due.Add(24*time.Hour))),
		mk("sooner", models.UrgencyHigh, at(due)),
		mk("overdue", models.UrgencyCritical, nil),
	}
	SortTasks(tasks)

	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"overdue", "sooner", "later", "a undated", "b undated"}, titles)
}

func TestSortEvents(t *testing.T) {
	nine := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	events := []ClassifiedEvent{
		{CalendarEvent: models.CalendarEvent{ID: "sync", Start: nine}, Priority: models.UrgencyNormal},
		{CalendarEvent: models.CalendarEvent{ID: "review-late", Start: nine.Add(2 * time.Hour)}, Priority: models.UrgencyHigh},
		{CalendarEvent: models.CalendarEvent{ID: "review-early", Start: nine.Add(time.Hour)}, Priority: models.UrgencyHigh},
		{CalendarEvent: models.CalendarEvent{ID: "board", Start: nine.Add(5 * time.Hour)}, Priority: models.UrgencyCritical},
	}
	SortEvents(events)

	var ids []string
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"board", "review-early", "review-late", "sync"}, ids)
}
