package compose

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"meetprep/internal/aggregate"
	"meetprep/internal/models"
)

// PlaceholderNote replaces a brief whose generation failed. It never carries
// the underlying error.
const PlaceholderNote = "A brief could not be generated for this meeting. The details above are still accurate."

// MeetingBrief is one meeting's section of the daily brief.
type MeetingBrief struct {
	EventID   string                  `json:"event_id"`
	Subject   string                  `json:"subject"`
	Start     time.Time               `json:"start_time"`
	End       time.Time               `json:"end_time"`
	AllDay    bool                    `json:"all_day"`
	Attendees []models.Attendee       `json:"attendees"`
	VideoLink string                  `json:"video_link,omitempty"`
	Context   aggregate.ContextCounts `json:"context"`
	Brief     string                  `json:"brief"` // generated, untrusted
	Failed    bool                    `json:"failed"`
}

// NewMeetingBrief builds the brief for mc from the generated text.
func NewMeetingBrief(mc *aggregate.MeetingContext, generated string) MeetingBrief {
	e := mc.Event
	return MeetingBrief{
		EventID:   e.ID,
		Subject:   orUntitled(e.Title),
		Start:     e.Start,
		End:       e.End,
		AllDay:    e.AllDay,
		Attendees: e.Attendees,
		VideoLink: e.VideoLink,
		Context:   mc.Counts(),
		Brief:     generated,
	}
}

// PlaceholderBrief stands in for a meeting whose brief could not be generated.
func PlaceholderBrief(mc *aggregate.MeetingContext) MeetingBrief {
	b := NewMeetingBrief(mc, PlaceholderNote)
	b.Failed = true
	return b
}

func orUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled Meeting"
	}
	return title
}

const meetingContent = `{{define "content"}}{{range .Body}}
<div style="background: #4f5bd5; color: #ffffff; padding: 18px; border-radius: 10px; margin-bottom: 12px;">
<h2 style="margin: 0 0 8px 0; font-size: 19px;">{{.Subject}}</h2>
<div style="font-size: 14px;">{{.Time}} &middot; {{.Attendees}} attendees &middot; {{.Emails}} emails &middot; {{.Documents}} docs &middot; {{.Previous}} previous meetings</div>
{{with .JoinLink}}<div style="margin-top: 10px;"><a href="{{.}}" style="color: #ffffff; font-weight: bold;">Join meeting</a></div>{{end}}
</div>
<div style="background: #f8f9fa; padding: 18px; border-radius: 8px; border-left: 4px solid #4f5bd5; margin-bottom: 32px; line-height: 1.6; color: #333333;">
{{if .Failed}}<p><em>{{.Note}}</em></p>{{else}}{{.Fragment}}{{end}}
</div>
{{end}}{{end}}`

var meetingTemplate = mustTemplate(meetingContent)

type meetingCard struct {
	Subject   string
	Time      string
	Attendees int
	Emails    int
	Documents int
	Previous  int
	JoinLink  string
	Failed    bool
	Note      string
	Fragment  template.HTML
}

func formatMeetingTime(b MeetingBrief, loc *time.Location) string {
	if b.AllDay {
		return "All day"
	}
	if b.Start.IsZero() {
		return "TBD"
	}
	return b.Start.In(loc).Format("3:04 PM")
}

// MeetingBriefEmail renders the daily meeting brief. now sets the date line
// and the time zone of meeting times.
func MeetingBriefEmail(briefs []MeetingBrief, now time.Time) (Email, error) {
	loc := now.Location()
	date := now.Format("Monday, January 2, 2006")
	total := len(briefs)

	cards := make([]meetingCard, 0, total)
	var text strings.Builder
	fmt.Fprintf(&text, "Meeting Preparation Brief, %s\nYou have %d %s today.\n", date, total, plural(total, "meeting"))

	for _, b := range briefs {
		card := meetingCard{
			Subject:   b.Subject,
			Time:      formatMeetingTime(b, loc),
			Attendees: len(b.Attendees),
			Emails:    b.Context.Emails,
			Documents: b.Context.Documents,
			Previous:  b.Context.PreviousMeetings,
			JoinLink:  b.VideoLink,
			Failed:    b.Failed,
		}
		if b.Failed {
			card.Note = b.Brief
		} else {
			card.Fragment = Fragment(b.Brief)
		}
		cards = append(cards, card)

		fmt.Fprintf(&text, "\n%s - %s (%d attendees)\n", card.Time, card.Subject, card.Attendees)
		if b.VideoLink != "" {
			fmt.Fprintf(&text, "Join: %s\n", b.VideoLink)
		}
		if b.Failed {
			fmt.Fprintf(&text, "%s\n", b.Brief)
		}
	}

	html, err := render(meetingTemplate, page{
		Heading: "Meeting Preparation Brief",
		Date:    date,
		Tagline: fmt.Sprintf("You have %d %s today", total, plural(total, "meeting")),
		Body:    cards,
	})
	if err != nil {
		return Email{}, fmt.Errorf("failed to render meeting brief: %w", err)
	}

	return Email{
		Subject: fmt.Sprintf("Meeting Prep Brief: %d %s today - %s", total, plural(total, "meeting"), date),
		HTML:    html,
		Text:    text.String(),
	}, nil
}
