package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"meetprep/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	google_access_token TEXT NOT NULL DEFAULT '',
	google_refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry INTEGER,
	calendar_id TEXT NOT NULL DEFAULT 'primary',
	strategic_goals TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT 'UTC',
	send_time TEXT NOT NULL DEFAULT '07:00',
	is_active INTEGER NOT NULL DEFAULT 1,
	priority_digest_enabled INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS briefing_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	feature TEXT NOT NULL,
	item_count INTEGER NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_briefing_logs_user ON briefing_logs(user_id, created_at);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at INTEGER NOT NULL
);
`

const userColumns = `id, email, name, google_access_token, google_refresh_token, token_expiry,
	calendar_id, strategic_goals, timezone, send_time, is_active, priority_digest_enabled,
	created_at, updated_at`

// SQLiteStore keeps records in a local SQLite file. Timestamps are stored
// as Unix milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the PRAGMAs in effect and serializes writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (*models.User, error) {
	var (
		u                    models.User
		expiry               sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.GoogleAccessToken, &u.GoogleRefreshToken, &expiry,
		&u.CalendarID, &u.StrategicGoals, &u.Timezone, &u.SendTime, &u.IsActive, &u.PriorityDigestEnabled,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		t := fromMillis(expiry.Int64)
		u.TokenExpiry = &t
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanSQLiteUser(row)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? COLLATE NOCASE", email)
	return scanSQLiteUser(row)
}

func (s *SQLiteStore) UpsertGoogleUser(ctx context.Context, acct GoogleAccount) (*models.User, error) {
	now := toMillis(s.now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, google_access_token, google_refresh_token, token_expiry,
			calendar_id, timezone, send_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN users.name ELSE excluded.name END,
			google_access_token = excluded.google_access_token,
			google_refresh_token = CASE WHEN excluded.google_refresh_token = '' THEN users.google_refresh_token ELSE excluded.google_refresh_token END,
			token_expiry = excluded.token_expiry,
			updated_at = excluded.updated_at`,
		uuid.NewString(), acct.Email, acct.Name, acct.AccessToken, acct.RefreshToken, nullMillis(acct.Expiry),
		defaultCalendarID, orDefault(acct.Timezone, defaultTimezone), defaultSendTime, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return s.GetUserByEmail(ctx, acct.Email)
}

func (s *SQLiteStore) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET
			google_access_token = ?,
			google_refresh_token = CASE WHEN ? = '' THEN google_refresh_token ELSE ? END,
			token_expiry = ?,
			updated_at = ?
		 WHERE id = ?`,
		accessToken, refreshToken, refreshToken, nullMillis(expiry), toMillis(s.now()), userID,
	)
	return affected(res, err)
}

func (s *SQLiteStore) UpdatePreferences(ctx context.Context, userID string, p models.Preferences) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET
			calendar_id = ?, strategic_goals = ?, timezone = ?, send_time = ?,
			is_active = ?, priority_digest_enabled = ?, updated_at = ?
		 WHERE id = ?`,
		orDefault(p.CalendarID, defaultCalendarID), p.StrategicGoals, orDefault(p.Timezone, defaultTimezone),
		orDefault(p.SendTime, defaultSendTime), p.IsActive, p.PriorityDigestEnabled, toMillis(s.now()), userID,
	)
	return affected(res, err)
}

func (s *SQLiteStore) DisconnectGoogle(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET google_access_token = '', google_refresh_token = '', token_expiry = NULL, updated_at = ?
		 WHERE id = ?`,
		toMillis(s.now()), userID,
	)
	return affected(res, err)
}

func (s *SQLiteStore) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+` FROM users
		 WHERE is_active = 1 AND (google_access_token != '' OR google_refresh_token != '')
		 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) AppendLog(ctx context.Context, entry models.BriefingLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO briefing_logs (id, user_id, feature, item_count, status, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, string(entry.Feature), entry.ItemCount, entry.Status, entry.ErrorMessage, toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLogs(ctx context.Context, userID string, limit int) ([]models.BriefingLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, feature, item_count, status, error_message, created_at
		 FROM briefing_logs WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		userID, logLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	var entries []models.BriefingLogEntry
	for rows.Next() {
		var (
			e         models.BriefingLogEntry
			feature   string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &feature, &e.ItemCount, &e.Status, &e.ErrorMessage, &createdAt); err != nil {
			return nil, err
		}
		e.Feature = models.Feature(feature)
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) SucceededSince(ctx context.Context, userID string, feature models.Feature, since time.Time) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM briefing_logs
		 WHERE user_id = ? AND feature = ? AND status = ? AND created_at >= ?)`,
		userID, string(feature), models.LogStatusSuccess, toMillis(since),
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check logs: %w", err)
	}
	return found, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)",
		sess.ID, sess.UserID, toMillis(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var (
		sess      models.Session
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at FROM sessions WHERE id = ? AND expires_at > ?",
		id, toMillis(s.now()),
	).Scan(&sess.ID, &sess.UserID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt = fromMillis(expiresAt)
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
