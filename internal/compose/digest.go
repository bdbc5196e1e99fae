package compose

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"meetprep/internal/aggregate"
)

const digestContent = `{{define "content"}}{{with .Body}}
<table role="presentation" width="100%" style="border-collapse: collapse; margin-bottom: 24px; text-align: center;">
<tr>
<td style="padding: 10px; background: #eef0fb;"><div style="font-size: 22px; font-weight: bold;">{{printf "%.1f" .Health.MeetingHours}}</div><div style="font-size: 12px;">meeting hours</div></td>
<td style="padding: 10px; background: #eef7ee;"><div style="font-size: 22px; font-weight: bold;">{{printf "%.1f" .Health.AvailableFocusHours}}</div><div style="font-size: 12px;">focus hours</div></td>
<td style="padding: 10px; background: #fdf6e6;"><div style="font-size: 22px; font-weight: bold;">{{.Health.PendingDecisions}}</div><div style="font-size: 12px;">pending decisions</div></td>
<td style="padding: 10px; background: #fdecec;"><div style="font-size: 22px; font-weight: bold;">{{.Health.OverdueCount}}</div><div style="font-size: 12px;">overdue</div></td>
<td style="padding: 10px; background: #fbe3e3;"><div style="font-size: 22px; font-weight: bold;">{{.Health.CriticalItems}}</div><div style="font-size: 12px;">critical</div></td>
</tr>
</table>
<div style="line-height: 1.6; color: #333333;">{{.Fragment}}</div>
<p style="font-size: 12px; color: #888888;">Based on {{.Events}} calendar events, {{.Emails}} emails and {{.Tasks}} open tasks.</p>
{{end}}{{end}}`

var digestTemplate = mustTemplate(digestContent)

type digestView struct {
	Health   aggregate.DayHealth
	Fragment template.HTML
	Events   int
	Emails   int
	Tasks    int
}

// PriorityDigestEmail renders the day-health block and the generated
// Markdown digest.
func PriorityDigestEmail(pc *aggregate.PriorityContext, generated string, now time.Time) (Email, error) {
	date := now.Format("Monday, January 2, 2006")
	h := pc.DayHealth

	html, err := render(digestTemplate, page{
		Heading: "Executive Priority Digest",
		Date:    date,
		Tagline: fmt.Sprintf("%d critical %s need your attention", h.CriticalItems, plural(h.CriticalItems, "item")),
		Body: digestView{
			Health:   h,
			Fragment: Fragment(generated),
			Events:   pc.Calendar.Total,
			Emails:   pc.Email.Total,
			Tasks:    pc.Tasks.Total,
		},
	})
	if err != nil {
		return Email{}, fmt.Errorf("failed to render priority digest: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Executive Priority Digest, %s\n\n", date)
	fmt.Fprintf(&text, "Meeting hours: %.1f | Focus hours: %.1f | Pending decisions: %d | Overdue: %d | Critical: %d\n\n",
		h.MeetingHours, h.AvailableFocusHours, h.PendingDecisions, h.OverdueCount, h.CriticalItems)
	text.WriteString(stripCodeFence(generated))
	text.WriteString("\n")

	return Email{
		Subject: fmt.Sprintf("Priority Digest: %d critical %s - %s", h.CriticalItems, plural(h.CriticalItems, "item"), date),
		HTML:    html,
		Text:    text.String(),
	}, nil
}
