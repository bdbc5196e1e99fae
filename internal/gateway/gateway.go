// Package gateway declares the external capabilities the briefing pipeline
// consumes. Implementations live in the google, caldav and llm packages.
package gateway

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"meetprep/internal/models"
)

// EventQuery bounds a calendar listing.
type EventQuery struct {
	TimeMin    time.Time
	TimeMax    time.Time
	Text       string // optional full-text filter
	MaxResults int64  // zero means provider default
}

type CalendarGateway interface {
	ListEvents(ctx context.Context, calendarID string, q EventQuery) ([]models.CalendarEvent, error)
}

type MailGateway interface {
	// Search returns message ids matching a provider query string.
	Search(ctx context.Context, query string, maxResults int64) ([]string, error)
	// GetMetadata fetches subject/from/date/snippet and labels.
	GetMetadata(ctx context.Context, id string) (models.EmailMessage, error)
	// GetFull fetches the message including a plain-text body prefix.
	GetFull(ctx context.Context, id string) (models.EmailMessage, error)
	// Send delivers a pre-built RFC 5322 message.
	Send(ctx context.Context, raw []byte) error
}

type DocumentGateway interface {
	Search(ctx context.Context, query string, maxResults int64) ([]models.DriveDocument, error)
}

type TaskGateway interface {
	ListTaskLists(ctx context.Context, maxResults int64) ([]models.TaskList, error)
	ListIncompleteTasks(ctx context.Context, list models.TaskList, maxResults int64) ([]models.TaskItem, error)
}

// Prompt is one text-generation request.
type Prompt struct {
	System string
	User   string
}

type TextGenerator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Services bundles the per-user data gateways.
type Services struct {
	Calendar  CalendarGateway
	Mail      MailGateway
	Documents DocumentGateway
	Tasks     TaskGateway
}

// TokenGateway refreshes a user's Google token and binds the data gateways to it.
type TokenGateway interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Connect(ctx context.Context, tok *oauth2.Token) (Services, error)
}
