package compose

import (
	"fmt"
	"strings"
	"time"

	"meetprep/internal/aggregate"
	"meetprep/internal/models"
)

var inboxLabels = map[models.InboxCategory]string{
	models.InboxHighPriority:   "High Priority",
	models.InboxActionRequired: "Action Required",
	models.InboxFollowUp:       "Follow Up",
	models.InboxDeadlines:      "Deadlines",
}

// InboxLabel is the display name of an inbox category.
func InboxLabel(c models.InboxCategory) string {
	if l, ok := inboxLabels[c]; ok {
		return l
	}
	return string(c)
}

const inboxContent = `{{define "content"}}{{range .Body}}
<h2 style="font-size: 18px; color: #4f5bd5; margin: 24px 0 8px 0;">{{.Label}} ({{len .Emails}})</h2>
{{range .Emails}}<div style="padding: 10px 12px; border-left: 3px solid #4f5bd5; background: #f8f9fa; margin-bottom: 8px;">
<div style="font-weight: bold;">{{.Subject}}</div>
<div style="font-size: 13px; color: #555555;">{{.From}} &middot; {{.Received}}</div>
{{with .Snippet}}<div style="font-size: 13px; color: #333333; margin-top: 4px;">{{.}}</div>{{end}}
</div>
{{end}}{{end}}{{end}}`

var inboxTemplate = mustTemplate(inboxContent)

type inboxSection struct {
	Label  string
	Emails []inboxRow
}

type inboxRow struct {
	Subject  string
	From     string
	Received string
	Snippet  string
}

// InboxSummaryEmail renders one section per non-empty category in display order.
func InboxSummaryEmail(ic *aggregate.InboxContext, now time.Time) (Email, error) {
	loc := now.Location()
	date := now.Format("Monday, January 2, 2006")
	total := len(ic.Emails)

	var sections []inboxSection
	var text strings.Builder
	fmt.Fprintf(&text, "Inbox Summary, %s\n%d %s in the last 24 hours.\n", date, total, plural(total, "email"))

	for _, cat := range models.InboxCategories {
		emails := ic.ByCategory(cat)
		if len(emails) == 0 {
			continue
		}
		section := inboxSection{Label: InboxLabel(cat)}
		fmt.Fprintf(&text, "\n%s (%d)\n", section.Label, len(emails))
		for _, e := range emails {
			row := inboxRow{
				Subject:  e.Subject,
				From:     e.From.String(),
				Received: e.ReceivedAt.In(loc).Format("Mon 3:04 PM"),
				Snippet:  e.Snippet,
			}
			section.Emails = append(section.Emails, row)
			fmt.Fprintf(&text, "- %s (%s)\n", row.Subject, row.From)
		}
		sections = append(sections, section)
	}

	tagline := fmt.Sprintf("%d %s in the last 24 hours", total, plural(total, "email"))
	if ic.Fallback {
		tagline += ", all shown as high priority"
	}

	html, err := render(inboxTemplate, page{
		Heading: "Inbox Summary",
		Date:    date,
		Tagline: tagline,
		Body:    sections,
	})
	if err != nil {
		return Email{}, fmt.Errorf("failed to render inbox summary: %w", err)
	}

	return Email{
		Subject: fmt.Sprintf("Inbox Summary: %d %s need attention - %s", total, plural(total, "email"), date),
		HTML:    html,
		Text:    text.String(),
	}, nil
}
