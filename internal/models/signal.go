package models

// Urgency is the coarse triage label assigned by a classifier.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyNormal   Urgency = "normal"
)

// Rank orders urgencies, lower is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	default:
		return 2
	}
}

// Max returns the more urgent of u and o.
func (u Urgency) Max(o Urgency) Urgency {
	if o.Rank() < u.Rank() {
		return o
	}
	return u
}

// MeetingType is the kind of meeting detected from the event title.
type MeetingType string

const (
	MeetingInterview    MeetingType = "interview"
	MeetingStandup      MeetingType = "standup"
	MeetingOneOnOne     MeetingType = "one-on-one"
	MeetingReview       MeetingType = "review"
	MeetingPlanning     MeetingType = "planning"
	MeetingPresentation MeetingType = "presentation"
	MeetingKickoff      MeetingType = "kickoff"
	MeetingExternal     MeetingType = "external"
	MeetingGeneral      MeetingType = "general"
)

// EmailCategory is the heuristic category of an email.
type EmailCategory string

const (
	EmailApprovalNeeded EmailCategory = "approval-needed"
	EmailDecisionNeeded EmailCategory = "decision-needed"
	EmailInformational  EmailCategory = "informational"
	EmailRequest        EmailCategory = "request"
	EmailMeetingRelated EmailCategory = "meeting-related"
	EmailReport         EmailCategory = "report"
	EmailGeneral        EmailCategory = "general"
)

// RequiresAction reports whether the category asks something of the reader.
func (c EmailCategory) RequiresAction() bool {
	switch c {
	case EmailApprovalNeeded, EmailDecisionNeeded, EmailRequest:
		return true
	}
	return false
}

// TaskCategory is the heuristic category of a task.
type TaskCategory string

const (
	TaskApproval      TaskCategory = "approval"
	TaskPreparation   TaskCategory = "preparation"
	TaskCommunication TaskCategory = "communication"
	TaskDecision      TaskCategory = "decision"
	TaskFollowUp      TaskCategory = "follow-up"
	TaskGeneral       TaskCategory = "general"
)

// InboxCategory is the bucket assigned by the generative inbox classifier.
type InboxCategory string

const (
	InboxHighPriority   InboxCategory = "highPriority"
	InboxActionRequired InboxCategory = "actionRequired"
	InboxFollowUp       InboxCategory = "followUp"
	InboxDeadlines      InboxCategory = "deadlines"
)

// InboxCategories lists the valid inbox buckets in display order.
var InboxCategories = []InboxCategory{InboxHighPriority, InboxActionRequired, InboxFollowUp, InboxDeadlines}

// Valid reports whether c is one of the fixed inbox buckets.
func (c InboxCategory) Valid() bool {
	for _, v := range InboxCategories {
		if c == v {
			return true
		}
	}
	return false
}
