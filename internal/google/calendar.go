package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"meetprep/internal/gateway"
	"meetprep/internal/models"
)

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewCalendarClient creates a Calendar client from already-authenticated options.
func NewCalendarClient(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// ListEvents fetches single (expanded) events in [q.TimeMin, q.TimeMax] ordered by start time.
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID string, q gateway.EventQuery) ([]models.CalendarEvent, error) {
	c.logger.Debug("Fetching events", "calendarID", calendarID, "timeMin", q.TimeMin, "timeMax", q.TimeMax, "q", q.Text)

	call := c.service.Events.List(calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(q.TimeMin.Format(time.RFC3339)).
		TimeMax(q.TimeMax.Format(time.RFC3339)).
		OrderBy("startTime")
	if q.Text != "" {
		call = call.Q(q.Text)
	}
	if q.MaxResults > 0 {
		call = call.MaxResults(q.MaxResults)
	}

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Debug("Fetched events from Google Calendar", "count", len(events.Items), "calendarID", calendarID)
	return toInternalEvents(events.Items, calendarLocation(events.TimeZone)), nil
}

// calendarLocation resolves the calendar's own zone, UTC when unknown.
func calendarLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// toInternalEvents converts Google Calendar events to the internal model.
// All-day dates without their own zone are placed in calLoc.
func toInternalEvents(items []*calendar.Event, calLoc *time.Location) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, toInternalEvent(item, calLoc))
	}
	return out
}

func toInternalEvent(item *calendar.Event, calLoc *time.Location) models.CalendarEvent {
	start, allDay := parseEventTime(item.Start, calLoc)
	end, _ := parseEventTime(item.End, calLoc)

	attendees := make([]models.Attendee, 0, len(item.Attendees))
	for _, a := range item.Attendees {
		if a == nil {
			continue
		}
		attendees = append(attendees, models.Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
			IsOrganizer:    a.Organizer,
			IsSelf:         a.Self,
		})
	}

	return models.CalendarEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Location:    item.Location,
		VideoLink:   videoLink(item),
		Attendees:   attendees,
		Cancelled:   item.Status == "cancelled",
	}
}

// parseEventTime reads either a dateTime or an all-day date. A date is
// midnight in its own zone, else in fallback.
func parseEventTime(dt *calendar.EventDateTime, fallback *time.Location) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err == nil {
			return t, false
		}
	}
	if dt.Date != "" {
		loc := fallback
		if dt.TimeZone != "" {
			if l, err := time.LoadLocation(dt.TimeZone); err == nil {
				loc = l
			}
		}
		t, err := time.ParseInLocation(time.DateOnly, dt.Date, loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func videoLink(item *calendar.Event) string {
	if item.HangoutLink != "" {
		return item.HangoutLink
	}
	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep != nil && ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ""
}

// DiscoverCalendars finds all calendars associated with the authenticated account.
func (c *CalendarClient) DiscoverCalendars(ctx context.Context) ([]string, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendarIDs []string
	for _, item := range list.Items {
		calendarIDs = append(calendarIDs, item.Id)
	}
	return calendarIDs, nil
}
