//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/suite"

	"meetprep/internal/models"
)

const (
	postgresUser     = "meetprep"
	postgresPassword = "meetprep_pwd"
	postgresDB       = "meetprep_test"
)

func TestPostgresStore(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

type PostgresSuite struct {
	suite.Suite
	dockerPool       *dockertest.Pool
	postgresResource *dockertest.Resource
	store            *PostgresStore
}

func (s *PostgresSuite) SetupSuite() {
	pool, err := dockertest.NewPool("")
	if err != nil {
		s.T().Fatalf("Could not connect to docker: %s", err)
	}
	pool.MaxWait = time.Minute
	s.dockerPool = pool

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=" + postgresUser,
			"POSTGRES_PASSWORD=" + postgresPassword,
			"POSTGRES_DB=" + postgresDB,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		s.T().Fatalf("Could not start postgres: %s", err)
	}
	s.postgresResource = resource
	_ = resource.Expire(120)

	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, resource.GetPort("5432/tcp"), postgresDB)

	err = pool.Retry(func() error {
		st, err := NewPostgresStore(context.Background(), dsn)
		if err != nil {
			return err
		}
		s.store = st
		return nil
	})
	if err != nil {
		s.TearDownSuite()
		s.T().Fatalf("Could not connect to postgres: %s", err)
	}
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.store.pool.Exec(context.Background(), "TRUNCATE users CASCADE")
	s.Require().NoError(err)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.dockerPool != nil && s.postgresResource != nil {
		_ = s.dockerPool.Purge(s.postgresResource)
	}
}

func (s *PostgresSuite) TestUserLifecycle() {
	ctx := context.Background()

	u, err := s.store.UpsertGoogleUser(ctx, GoogleAccount{
		Email:        "dana@acme.com",
		Name:         "Dana",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	})
	s.Require().NoError(err)
	s.Equal("primary", u.CalendarID)
	s.True(u.IsActive)

	s.Require().NoError(s.store.UpdateTokens(ctx, u.ID, "access-2", "", nil))
	got, err := s.store.GetUserByEmail(ctx, "DANA@acme.com")
	s.Require().NoError(err)
	s.Equal("access-2", got.GoogleAccessToken)
	s.Equal("refresh-1", got.GoogleRefreshToken)

	s.Require().NoError(s.store.UpdatePreferences(ctx, u.ID, models.Preferences{IsActive: true, PriorityDigestEnabled: true}))
	users, err := s.store.ListActiveUsers(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.True(users[0].PriorityDigestEnabled)

	s.Require().NoError(s.store.DisconnectGoogle(ctx, u.ID))
	users, err = s.store.ListActiveUsers(ctx)
	s.Require().NoError(err)
	s.Empty(users)

	_, err = s.store.GetUser(ctx, "not-a-uuid")
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresSuite) TestLogsAndSessions() {
	ctx := context.Background()
	u, err := s.store.UpsertGoogleUser(ctx, GoogleAccount{Email: "dana@acme.com", AccessToken: "a"})
	s.Require().NoError(err)

	at := time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.AppendLog(ctx, models.BriefingLogEntry{UserID: u.ID, Feature: models.FeatureMeetingBrief, ItemCount: 3, Status: models.LogStatusSuccess, CreatedAt: at}))
	s.Require().NoError(s.store.AppendLog(ctx, models.BriefingLogEntry{UserID: u.ID, Feature: models.FeatureInboxSummary, Status: models.LogStatusFailed, ErrorMessage: "boom", CreatedAt: at}))

	logs, err := s.store.ListLogs(ctx, u.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(logs, 2)
	s.Equal(models.FeatureInboxSummary, logs[0].Feature)
	s.Equal(3, logs[1].ItemCount)

	sent, err := s.store.SucceededSince(ctx, u.ID, models.FeatureMeetingBrief, at.Add(-time.Hour))
	s.Require().NoError(err)
	s.True(sent)
	sent, err = s.store.SucceededSince(ctx, u.ID, models.FeatureInboxSummary, at.Add(-time.Hour))
	s.Require().NoError(err)
	s.False(sent)
	sent, err = s.store.SucceededSince(ctx, u.ID, models.FeatureMeetingBrief, at.Add(time.Minute))
	s.Require().NoError(err)
	s.False(sent)

	s.Require().NoError(s.store.CreateSession(ctx, models.Session{ID: "sid", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}))
	sess, err := s.store.GetSession(ctx, "sid")
	s.Require().NoError(err)
	s.Equal(u.ID, sess.UserID)
}
