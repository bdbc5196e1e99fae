package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meetprep/internal/classify"
	"meetprep/internal/gateway"
	"meetprep/internal/models"
)

const (
	relatedEmailDays       = 14
	maxRelatedEmails       = 8
	maxQueryAttendees      = 5
	maxDocumentKeywords    = 3
	maxRelatedDocuments    = 6
	previousMeetingDays    = 60
	maxPreviousMeetings    = 5
	previousDescriptionLen = 200
)

// MeetingContext is everything gathered about one meeting before prompting.
type MeetingContext struct {
	Event            models.CalendarEvent
	Type             models.MeetingType
	Attendees        models.AttendeeSplit
	Keywords         string
	Emails           []models.EmailMessage
	Documents        []models.DriveDocument
	PreviousMeetings []models.PreviousMeeting
}

// ContextCounts is the number of supporting items found for a meeting.
type ContextCounts struct {
	Emails           int `json:"emails"`
	Documents        int `json:"documents"`
	PreviousMeetings int `json:"previous_meetings"`
}

func (c *MeetingContext) Counts() ContextCounts {
	return ContextCounts{
		Emails:           len(c.Emails),
		Documents:        len(c.Documents),
		PreviousMeetings: len(c.PreviousMeetings),
	}
}

// MeetingContextBuilder gathers related emails, documents and previous
// meetings for a calendar event.
type MeetingContextBuilder struct {
	mail       gateway.MailGateway
	documents  gateway.DocumentGateway
	calendar   gateway.CalendarGateway
	calendarID string
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

func NewMeetingContextBuilder(logger *slog.Logger, services gateway.Services, calendarID string, loc *time.Location) *MeetingContextBuilder {
	return &MeetingContextBuilder{
		mail:       services.Mail,
		documents:  services.Documents,
		calendar:   services.Calendar,
		calendarID: calendarID,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (b *MeetingContextBuilder) WithClock(now func() time.Time) *MeetingContextBuilder {
	b.now = now
	return b
}

// Build never fails: each of the three sources degrades to an empty list.
func (b *MeetingContextBuilder) Build(ctx context.Context, event models.CalendarEvent) *MeetingContext {
	split := event.SplitAttendees()
	mc := &MeetingContext{
		Event:     event,
		Type:      classify.MeetingType(event.Title, len(split.External) > 0),
		Attendees: split,
		Keywords:  classify.Keywords(event.Title, event.Description),
	}

	var (
		emails   fetchResult[models.EmailMessage]
		docs     fetchResult[models.DriveDocument]
		previous fetchResult[models.PreviousMeeting]
	)
	join(ctx,
		func(ctx context.Context) {
			emails = fetch(ctx, func(ctx context.Context) ([]models.EmailMessage, error) {
				return b.relatedEmails(ctx, mc.Keywords, event.Attendees)
			})
		},
		func(ctx context.Context) {
			docs = fetch(ctx, func(ctx context.Context) ([]models.DriveDocument, error) {
				return b.relatedDocuments(ctx, mc.Keywords)
			})
		},
		func(ctx context.Context) {
			previous = fetch(ctx, func(ctx context.Context) ([]models.PreviousMeeting, error) {
				return b.previousMeetings(ctx, event.Title)
			})
		},
	)

	log := b.logger.With("eventID", event.ID)
	mc.Emails = emails.orEmpty(log, "related emails")
	mc.Documents = docs.orEmpty(log, "related documents")
	mc.PreviousMeetings = previous.orEmpty(log, "previous meetings")

	log.Debug("Built meeting context", "type", mc.Type, "keywords", mc.Keywords,
		"emails", len(mc.Emails), "documents", len(mc.Documents), "previous", len(mc.PreviousMeetings))
	return mc
}

func (b *MeetingContextBuilder) relatedEmails(ctx context.Context, keywords string, attendees []models.Attendee) ([]models.EmailMessage, error) {
	since := b.now().In(b.loc).AddDate(0, 0, -relatedEmailDays)
	query := relatedEmailQuery(keywords, attendees, since)
	if query == "" {
		return nil, nil
	}

	ids, err := b.mail.Search(ctx, query, maxRelatedEmails)
	if err != nil {
		return nil, fmt.Errorf("failed to search related emails: %w", err)
	}
	return hydrate(ctx, b.logger, ids, maxRelatedEmails, b.mail.GetMetadata), nil
}

// relatedEmailQuery matches mail about the topic or from other attendees:
// "(k1 k2) OR (from:a OR from:b) after:2006/01/02". Empty when there is
// nothing to match on.
func relatedEmailQuery(keywords string, attendees []models.Attendee, since time.Time) string {
	var from []string
	for _, a := range attendees {
		if a.IsSelf || a.Email == "" {
			continue
		}
		if len(from) == maxQueryAttendees {
			break
		}
		from = append(from, "from:"+a.Email)
	}

	var parts []string
	if keywords != "" {
		parts = append(parts, "("+keywords+")")
	}
	if len(from) > 0 {
		parts = append(parts, "("+strings.Join(from, " OR ")+")")
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " OR ") + " after:" + since.Format("2006/01/02")
}

func (b *MeetingContextBuilder) relatedDocuments(ctx context.Context, keywords string) ([]models.DriveDocument, error) {
	query := documentQuery(keywords)
	if query == "" {
		return nil, nil
	}
	docs, err := b.documents.Search(ctx, query, maxRelatedDocuments)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	if len(docs) > maxRelatedDocuments {
		docs = docs[:maxRelatedDocuments]
	}
	return docs, nil
}

// documentQuery is a full-text OR over the first three keywords.
func documentQuery(keywords string) string {
	words := strings.Fields(keywords)
	if len(words) > maxDocumentKeywords {
		words = words[:maxDocumentKeywords]
	}
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, "fullText contains '"+strings.ReplaceAll(w, "'", `\'`)+"'")
	}
	return strings.Join(parts, " or ")
}

func (b *MeetingContextBuilder) previousMeetings(ctx context.Context, title string) ([]models.PreviousMeeting, error) {
	words := strings.Fields(title)
	if len(words) == 0 {
		return nil, nil
	}

	now := b.now()
	events, err := b.calendar.ListEvents(ctx, b.calendarID, gateway.EventQuery{
		TimeMin:    now.AddDate(0, 0, -previousMeetingDays),
		TimeMax:    classify.StartOfDay(now, b.loc),
		Text:       words[0],
		MaxResults: maxPreviousMeetings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search previous meetings: %w", err)
	}

	out := make([]models.PreviousMeeting, 0, min(len(events), maxPreviousMeetings))
	for _, e := range events {
		if len(out) == maxPreviousMeetings {
			break
		}
		out = append(out, models.PreviousMeeting{
			Title:         e.Title,
			Date:          e.Start,
			AttendeeCount: len(e.Attendees),
			Description:   truncateRunes(e.Description, previousDescriptionLen),
		})
	}
	return out, nil
}
