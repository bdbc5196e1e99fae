package classify

import (
	"strings"

	"meetprep/internal/models"
)

// EmailClassification is the local heuristic label of a message.
type EmailClassification struct {
	Urgency        models.Urgency       `json:"urgency"`
	Category       models.EmailCategory `json:"category"`
	RequiresAction bool                 `json:"requires_action"`
}

var (
	emailCriticalWords = []string{"urgent", "asap", "immediately", "critical"}
	emailHighWords     = []string{"important", "action required", "deadline", "reminder"}
)

var emailCategoryRules = []rule[models.EmailCategory]{
	{[]string{"approval", "approve", "sign off", "sign-off", "signoff"}, models.EmailApprovalNeeded},
	{[]string{"decision", "decide", "vote", "go/no-go"}, models.EmailDecisionNeeded},
	{[]string{"fyi", "newsletter", "announcement", "digest"}, models.EmailInformational},
	{[]string{"request", "can you", "could you", "please", "help needed", "question"}, models.EmailRequest},
	{[]string{"meeting", "invitation", "invite", "calendar", "agenda", "reschedule"}, models.EmailMeetingRelated},
	{[]string{"report", "summary", "metrics", "dashboard", "weekly", "monthly"}, models.EmailReport},
}

// Email labels a message from its subject and source flags. Urgency and
// category are assigned independently.
func Email(msg models.EmailMessage) EmailClassification {
	subject := strings.ToLower(msg.Subject)

	urgency := models.UrgencyNormal
	switch {
	case containsAny(subject, emailCriticalWords):
		urgency = models.UrgencyCritical
	case containsAny(subject, emailHighWords), msg.IsImportant, msg.IsStarred:
		urgency = models.UrgencyHigh
	}

	category, ok := firstMatch(subject, emailCategoryRules)
	if !ok {
		category = models.EmailGeneral
	}

	return EmailClassification{
		Urgency:        urgency,
		Category:       category,
		RequiresAction: category.RequiresAction(),
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
