package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"meetprep/internal/models"
	"meetprep/internal/store"
)

// Store is a mock type for the store.Store type.
type Store struct {
	mock.Mock
}

func (_m *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	ret := _m.Called(ctx, id)
	u, _ := ret.Get(0).(*models.User)
	return u, ret.Error(1)
}

func (_m *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ret := _m.Called(ctx, email)
	u, _ := ret.Get(0).(*models.User)
	return u, ret.Error(1)
}

func (_m *Store) UpsertGoogleUser(ctx context.Context, acct store.GoogleAccount) (*models.User, error) {
	ret := _m.Called(ctx, acct)
	u, _ := ret.Get(0).(*models.User)
	return u, ret.Error(1)
}

func (_m *Store) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry *time.Time) error {
	ret := _m.Called(ctx, userID, accessToken, refreshToken, expiry)
	return ret.Error(0)
}

func (_m *Store) UpdatePreferences(ctx context.Context, userID string, p models.Preferences) error {
	ret := _m.Called(ctx, userID, p)
	return ret.Error(0)
}

func (_m *Store) DisconnectGoogle(ctx context.Context, userID string) error {
	ret := _m.Called(ctx, userID)
	return ret.Error(0)
}

func (_m *Store) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	ret := _m.Called(ctx)
	users, _ := ret.Get(0).([]models.User)
	return users, ret.Error(1)
}

func (_m *Store) AppendLog(ctx context.Context, entry models.BriefingLogEntry) error {
	ret := _m.Called(ctx, entry)
	return ret.Error(0)
}

func (_m *Store) ListLogs(ctx context.Context, userID string, limit int) ([]models.BriefingLogEntry, error) {
	ret := _m.Called(ctx, userID, limit)
	entries, _ := ret.Get(0).([]models.BriefingLogEntry)
	return entries, ret.Error(1)
}

func (_m *Store) SucceededSince(ctx context.Context, userID string, feature models.Feature, since time.Time) (bool, error) {
	ret := _m.Called(ctx, userID, feature, since)
	return ret.Bool(0), ret.Error(1)
}

func (_m *Store) CreateSession(ctx context.Context, s models.Session) error {
	ret := _m.Called(ctx, s)
	return ret.Error(0)
}

func (_m *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	ret := _m.Called(ctx, id)
	s, _ := ret.Get(0).(*models.Session)
	return s, ret.Error(1)
}

func (_m *Store) DeleteSession(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *Store) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

var _ store.Store = (*Store)(nil)
