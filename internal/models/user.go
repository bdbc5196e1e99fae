package models

import "time"

// User is the persisted account record.
type User struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	GoogleAccessToken     string     `json:"-"`
	GoogleRefreshToken    string     `json:"-"`
	TokenExpiry           *time.Time `json:"token_expiry,omitempty"`
	CalendarID            string     `json:"calendar_id"`
	StrategicGoals        string     `json:"strategic_goals,omitempty"` // JSON array or newline-delimited text
	Timezone              string     `json:"timezone"`
	SendTime              string     `json:"send_time"` // HH:MM in the user's timezone
	IsActive              bool       `json:"is_active"`
	PriorityDigestEnabled bool       `json:"priority_digest_enabled"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// HasGoogleConnection reports whether the user granted Google access.
func (u *User) HasGoogleConnection() bool {
	return u.GoogleAccessToken != "" || u.GoogleRefreshToken != ""
}

// Calendar returns the calendar id, defaulting to the primary calendar.
func (u *User) Calendar() string {
	if u.CalendarID == "" {
		return "primary"
	}
	return u.CalendarID
}

// Preferences are the user-editable settings.
type Preferences struct {
	CalendarID            string `json:"calendar_id" validate:"omitempty,max=255"`
	StrategicGoals        string `json:"strategic_goals" validate:"max=4000"`
	Timezone              string `json:"timezone" validate:"omitempty,timezone"`
	SendTime              string `json:"send_time" validate:"omitempty,datetime=15:04"`
	IsActive              bool   `json:"is_active"`
	PriorityDigestEnabled bool   `json:"priority_digest_enabled"`
}

// Session binds a browser cookie to a user.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// Feature names the pipeline that produced a log entry.
type Feature string

const (
	FeatureMeetingBrief   Feature = "meeting_brief"
	FeaturePriorityDigest Feature = "priority_digest"
	FeatureInboxSummary   Feature = "inbox_summary"
)

// Log statuses.
const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
)

// ErrorMessageLimit bounds the error text persisted in a log entry.
const ErrorMessageLimit = 500

// BriefingLogEntry is an append-only audit record of one pipeline run.
type BriefingLogEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Feature      Feature   `json:"feature"`
	ItemCount    int       `json:"item_count"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
