package models

import (
	"strings"
	"time"
)

// CalendarEvent represents a calendar event.
// This is an internal representation, independent of any specific calendar provider.
type CalendarEvent struct {
	ID          string     // Unique identifier for the event (e.g., from the source calendar)
	Title       string     // Summary or title of the event
	Description string     // Detailed description of the event, may contain HTML
	Start       time.Time  // Start time of the event
	End         time.Time  // End time of the event
	AllDay      bool       // True when the source only carries a date
	Location    string     // Location of the event
	VideoLink   string     // Conference link (Meet, Zoom, ...)
	Attendees   []Attendee // Attendees in the order the provider returned them
	Cancelled   bool       // Whether the event status is cancelled
}

// Attendee is one participant of a CalendarEvent.
type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string
	IsOrganizer    bool
	IsSelf         bool
}

// Name returns the display name, or the local part of the email when absent.
func (a Attendee) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	local, _, _ := strings.Cut(a.Email, "@")
	return local
}

// Domain returns the lower-cased part of the email after the last '@'.
func (a Attendee) Domain() string {
	i := strings.LastIndex(a.Email, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(a.Email[i+1:])
}

// AttendeeSplit groups attendees of an event relative to the self-attendee.
type AttendeeSplit struct {
	Self     *Attendee
	Internal []Attendee
	External []Attendee
}

// SplitAttendees partitions the attendees by comparing their email domain to the
// self-attendee's domain. When the self domain cannot be determined every
// attendee is treated as internal.
func (e CalendarEvent) SplitAttendees() AttendeeSplit {
	var split AttendeeSplit
	selfDomain := ""
	for i := range e.Attendees {
		if e.Attendees[i].IsSelf {
			a := e.Attendees[i]
			split.Self = &a
			selfDomain = a.Domain()
			break
		}
	}

	for _, a := range e.Attendees {
		if selfDomain == "" || a.Domain() == selfDomain {
			split.Internal = append(split.Internal, a)
		} else {
			split.External = append(split.External, a)
		}
	}
	return split
}

// Duration returns the event length, zero for all-day or malformed events.
func (e CalendarEvent) Duration() time.Duration {
	if e.AllDay || !e.End.After(e.Start) {
		return 0
	}
	return e.End.Sub(e.Start)
}

// InLocation re-anchors an all-day event to midnight of its dates in loc,
// so the date is the same for every viewer. Timed events are unchanged.
func (e CalendarEvent) InLocation(loc *time.Location) CalendarEvent {
	if !e.AllDay || loc == nil {
		return e
	}
	e.Start = sameDateIn(e.Start, loc)
	e.End = sameDateIn(e.End, loc)
	return e
}

func sameDateIn(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// IsMeeting reports whether the event qualifies for a brief: it has at least
// one attendee and is not cancelled.
func (e CalendarEvent) IsMeeting() bool {
	return len(e.Attendees) > 0 && !e.Cancelled
}

// PreviousMeeting is a condensed past event found by title search.
type PreviousMeeting struct {
	Title         string    `json:"subject"`
	Date          time.Time `json:"date"`
	AttendeeCount int       `json:"attendee_count"`
	Description   string    `json:"description,omitempty"`
}
