// Package classify holds the pure, deterministic heuristics that label
// calendar events, emails and tasks from their text fields.
package classify

import (
	"strings"

	"meetprep/internal/models"
)

type rule[T any] struct {
	needles []string
	value   T
}

// firstMatch returns the value of the first rule with a needle contained in s.
func firstMatch[T any](s string, rules []rule[T]) (T, bool) {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(s, n) {
				return r.value, true
			}
		}
	}
	var zero T
	return zero, false
}

var meetingTypeRules = []rule[models.MeetingType]{
	{[]string{"interview"}, models.MeetingInterview},
	{[]string{"standup", "stand-up", "stand up"}, models.MeetingStandup},
	{[]string{"1:1", "1-1", "one on one", "one-on-one"}, models.MeetingOneOnOne},
	{[]string{"review"}, models.MeetingReview},
	{[]string{"planning", "sprint"}, models.MeetingPlanning},
	{[]string{"demo", "presentation"}, models.MeetingPresentation},
	{[]string{"kickoff", "kick-off", "kick off"}, models.MeetingKickoff},
}

// MeetingType detects the kind of meeting from its title. Title rules take
// precedence over the external-attendee fallback.
func MeetingType(title string, hasExternal bool) models.MeetingType {
	if t, ok := firstMatch(strings.ToLower(title), meetingTypeRules); ok {
		return t
	}
	if hasExternal {
		return models.MeetingExternal
	}
	return models.MeetingGeneral
}

var meetingPriorityRules = []rule[models.Urgency]{
	{[]string{"board", "investor"}, models.UrgencyCritical},
	{[]string{"deadline", "due"}, models.UrgencyCritical},
	{[]string{"1:1", "1-1", "one on one", "one-on-one"}, models.UrgencyHigh},
	{[]string{"review", "decision"}, models.UrgencyHigh},
	{[]string{"all-hands", "all hands", "town hall", "townhall"}, models.UrgencyHigh},
	{[]string{"interview"}, models.UrgencyHigh},
	{[]string{"standup", "stand-up", "sync"}, models.UrgencyNormal},
}

// MeetingPriority maps an event title to the priority-digest signal.
func MeetingPriority(title string) models.Urgency {
	if u, ok := firstMatch(strings.ToLower(title), meetingPriorityRules); ok {
		return u
	}
	return models.UrgencyNormal
}
