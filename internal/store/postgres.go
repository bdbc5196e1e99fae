package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"meetprep/internal/models"
)

// PostgresSchema creates the tables used by PostgresStore.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	google_access_token TEXT NOT NULL DEFAULT '',
	google_refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry TIMESTAMPTZ,
	calendar_id TEXT NOT NULL DEFAULT 'primary',
	strategic_goals TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT 'UTC',
	send_time TEXT NOT NULL DEFAULT '07:00',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	priority_digest_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS briefing_logs (
	seq BIGSERIAL,
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	feature TEXT NOT NULL,
	item_count INTEGER NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_briefing_logs_user ON briefing_logs(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at TIMESTAMPTZ NOT NULL
);
`

const pgUserColumns = `id::text, email, name, google_access_token, google_refresh_token, token_expiry,
	calendar_id, strategic_goals, timezone, send_time, is_active, priority_digest_enabled,
	created_at, updated_at`

// PostgresStore is the Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to dsn, checks the connection and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to apply schema: %w", err)
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func scanPgUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.GoogleAccessToken, &u.GoogleRefreshToken, &u.TokenExpiry,
		&u.CalendarID, &u.StrategicGoals, &u.Timezone, &u.SendTime, &u.IsActive, &u.PriorityDigestEnabled,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	return scanPgUser(s.pool.QueryRow(ctx, "SELECT "+pgUserColumns+" FROM users WHERE id = $1", id))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanPgUser(s.pool.QueryRow(ctx, "SELECT "+pgUserColumns+" FROM users WHERE lower(email) = lower($1)", email))
}

func (s *PostgresStore) UpsertGoogleUser(ctx context.Context, acct GoogleAccount) (*models.User, error) {
	now := s.now()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, google_access_token, google_refresh_token, token_expiry,
			calendar_id, timezone, send_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			google_access_token = EXCLUDED.google_access_token,
			google_refresh_token = COALESCE(NULLIF(EXCLUDED.google_refresh_token, ''), users.google_refresh_token),
			token_expiry = EXCLUDED.token_expiry,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+pgUserColumns,
		uuid.NewString(), acct.Email, acct.Name, acct.AccessToken, acct.RefreshToken, acct.Expiry,
		defaultCalendarID, orDefault(acct.Timezone, defaultTimezone), defaultSendTime, now,
	)
	u, err := scanPgUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry *time.Time) error {
	if uuid.Validate(userID) != nil {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET
			google_access_token = $2,
			google_refresh_token = COALESCE(NULLIF($3, ''), google_refresh_token),
			token_expiry = $4,
			updated_at = $5
		 WHERE id = $1`,
		userID, accessToken, refreshToken, expiry, s.now(),
	)
	return pgAffected(tag, err)
}

func (s *PostgresStore) UpdatePreferences(ctx context.Context, userID string, p models.Preferences) error {
	if uuid.Validate(userID) != nil {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET
			calendar_id = $2, strategic_goals = $3, timezone = $4, send_time = $5,
			is_active = $6, priority_digest_enabled = $7, updated_at = $8
		 WHERE id = $1`,
		userID, orDefault(p.CalendarID, defaultCalendarID), p.StrategicGoals, orDefault(p.Timezone, defaultTimezone),
		orDefault(p.SendTime, defaultSendTime), p.IsActive, p.PriorityDigestEnabled, s.now(),
	)
	return pgAffected(tag, err)
}

func (s *PostgresStore) DisconnectGoogle(ctx context.Context, userID string) error {
	if uuid.Validate(userID) != nil {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET google_access_token = '', google_refresh_token = '', token_expiry = NULL, updated_at = $2
		 WHERE id = $1`,
		userID, s.now(),
	)
	return pgAffected(tag, err)
}

func (s *PostgresStore) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+pgUserColumns+` FROM users
		 WHERE is_active AND (google_access_token <> '' OR google_refresh_token <> '')
		 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanPgUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) AppendLog(ctx context.Context, entry models.BriefingLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO briefing_logs (id, user_id, feature, item_count, status, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, string(entry.Feature), entry.ItemCount, entry.Status, entry.ErrorMessage, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLogs(ctx context.Context, userID string, limit int) ([]models.BriefingLogEntry, error) {
	if uuid.Validate(userID) != nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id::text, feature, item_count, status, error_message, created_at
		 FROM briefing_logs WHERE user_id = $1
		 ORDER BY created_at DESC, seq DESC LIMIT $2`,
		userID, logLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	var entries []models.BriefingLogEntry
	for rows.Next() {
		var (
			e       models.BriefingLogEntry
			feature string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &feature, &e.ItemCount, &e.Status, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Feature = models.Feature(feature)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) SucceededSince(ctx context.Context, userID string, feature models.Feature, since time.Time) (bool, error) {
	if uuid.Validate(userID) != nil {
		return false, nil
	}
	var found bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM briefing_logs
		 WHERE user_id = $1 AND feature = $2 AND status = $3 AND created_at >= $4)`,
		userID, string(feature), models.LogStatusSuccess, since,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check logs: %w", err)
	}
	return found, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)",
		sess.ID, sess.UserID, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.pool.QueryRow(ctx,
		"SELECT id, user_id::text, expires_at FROM sessions WHERE id = $1 AND expires_at > $2",
		id, s.now(),
	).Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	return err
}

func pgAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
