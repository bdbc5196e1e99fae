// Package store persists users, sessions and the append-only briefing log.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meetprep/internal/models"
)

var ErrNotFound = errors.New("record not found")

// GoogleAccount is what a completed OAuth flow learns about a user.
type GoogleAccount struct {
	Email        string
	Name         string
	AccessToken  string
	RefreshToken string // empty keeps the stored refresh token
	Expiry       *time.Time
	Timezone     string // applied only when the user is created
}

// Store is the record store behind the pipeline and the HTTP API.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpsertGoogleUser creates the user on first sign-in and refreshes its
	// name and tokens afterwards.
	UpsertGoogleUser(ctx context.Context, acct GoogleAccount) (*models.User, error)
	// UpdateTokens stores a refreshed token. An empty refreshToken keeps the
	// stored one.
	UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry *time.Time) error
	UpdatePreferences(ctx context.Context, userID string, p models.Preferences) error
	DisconnectGoogle(ctx context.Context, userID string) error
	ListActiveUsers(ctx context.Context) ([]models.User, error)

	AppendLog(ctx context.Context, entry models.BriefingLogEntry) error
	// ListLogs returns the newest entries first.
	ListLogs(ctx context.Context, userID string, limit int) ([]models.BriefingLogEntry, error)
	// SucceededSince reports whether feature has a success entry for the
	// user at or after since.
	SucceededSince(ctx context.Context, userID string, feature models.Feature, since time.Time) (bool, error)

	CreateSession(ctx context.Context, s models.Session) error
	// GetSession returns ErrNotFound for unknown and expired sessions.
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error

	Close() error
}

// Open returns the Store for driver, "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		s, err := NewSQLiteStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

const (
	defaultCalendarID = "primary"
	defaultSendTime   = "07:00"
	defaultTimezone   = "UTC"
	defaultLogLimit   = 50
	maxLogLimit       = 500
)

func logLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLogLimit
	case limit > maxLogLimit:
		return maxLogLimit
	}
	return limit
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
