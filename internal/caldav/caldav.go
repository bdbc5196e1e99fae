// Package caldav reads calendar events from a CalDAV server (iCloud, Fastmail,
// Nextcloud, ...) as an alternative to the Google Calendar API.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"meetprep/internal/gateway"
	"meetprep/internal/models"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "meetprep/1.0")
	return t.Transport.RoundTrip(req)
}

// Client is a read-only calendar gateway over CalDAV.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
	username     string
}

// NewClient discovers the calendar named calendarName on the server at endpoint.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName string) (*Client, error) {
	httpClient := &http.Client{Transport: &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		logger:       logger,
		username:     username,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// ListEvents runs a time-range calendar-query. The calendarID argument is
// ignored, the calendar is fixed at construction. Text filtering and result
// limits are applied client-side since CalDAV has no full-text search.
func (c *Client) ListEvents(ctx context.Context, _ string, q gateway.EventQuery) ([]models.CalendarEvent, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompEvent, Start: q.TimeMin, End: q.TimeMax}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []models.CalendarEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, child := range obj.Data.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			event := parseEvent(child, c.username)
			if !matchesText(event, q.Text) {
				continue
			}
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	if q.MaxResults > 0 && int64(len(events)) > q.MaxResults {
		events = events[:q.MaxResults]
	}

	c.logger.Debug("Fetched events from CalDAV", "count", len(events))
	return events, nil
}

func matchesText(e models.CalendarEvent, text string) bool {
	if text == "" {
		return true
	}
	text = strings.ToLower(text)
	return strings.Contains(strings.ToLower(e.Title), text) ||
		strings.Contains(strings.ToLower(e.Description), text)
}

// parseEvent converts a VEVENT into the internal model. selfEmail marks the
// attendee representing the account owner.
func parseEvent(comp *ical.Component, selfEmail string) models.CalendarEvent {
	event := models.CalendarEvent{}

	if p := comp.Props.Get(ical.PropUID); p != nil {
		event.ID = p.Value
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		event.Title = p.Value
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		event.Description = p.Value
		event.VideoLink = extractMeetingLink(p.Value)
	}
	if p := comp.Props.Get(ical.PropLocation); p != nil {
		event.Location = p.Value
		if event.VideoLink == "" {
			event.VideoLink = extractMeetingLink(p.Value)
		}
	}
	if p := comp.Props.Get(ical.PropDateTimeStart); p != nil {
		event.Start, event.AllDay = parseDateTime(p)
	}
	if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
		event.End, _ = parseDateTime(p)
	}
	if p := comp.Props.Get(ical.PropStatus); p != nil {
		event.Cancelled = strings.EqualFold(p.Value, "CANCELLED")
	}

	organizer := ""
	if p := comp.Props.Get(ical.PropOrganizer); p != nil {
		organizer = mailto(p.Value)
	}

	for _, p := range comp.Props.Values(ical.PropAttendee) {
		email := mailto(p.Value)
		event.Attendees = append(event.Attendees, models.Attendee{
			Email:          email,
			DisplayName:    p.Params.Get(ical.ParamCommonName),
			ResponseStatus: responseStatus(p.Params.Get(ical.ParamParticipationStatus)),
			IsOrganizer:    organizer != "" && strings.EqualFold(email, organizer),
			IsSelf:         selfEmail != "" && strings.EqualFold(email, selfEmail),
		})
	}

	return event
}

func parseDateTime(p *ical.Prop) (time.Time, bool) {
	allDay := strings.EqualFold(p.Params.Get(ical.ParamValue), "DATE") || len(p.Value) == len("20060102")
	if t, err := p.DateTime(time.UTC); err == nil {
		return t, allDay
	}
	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, p.Value, time.UTC); err == nil {
			return t, allDay
		}
	}
	return time.Time{}, allDay
}

func mailto(v string) string {
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return v
}

// responseStatus maps PARTSTAT to the Google Calendar vocabulary.
func responseStatus(partstat string) string {
	switch strings.ToUpper(partstat) {
	case "ACCEPTED":
		return "accepted"
	case "DECLINED":
		return "declined"
	case "TENTATIVE":
		return "tentative"
	default:
		return "needsAction"
	}
}

var meetingLinkRe = regexp.MustCompile(`https://[^\s"<>]*(meet\.google\.com|zoom\.us|teams\.microsoft\.com|webex\.com)[^\s"<>]*`)

func extractMeetingLink(text string) string {
	return meetingLinkRe.FindString(text)
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
