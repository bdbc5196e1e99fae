package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"

	"meetprep/internal/brief"
	"meetprep/internal/models"
	"meetprep/internal/store"
	"meetprep/mocks"
)

type pipelinesMock struct {
	mock.Mock
}

func (_m *pipelinesMock) GenerateMeetingBriefs(ctx context.Context, userID string) (*brief.MeetingBriefResult, error) {
	ret := _m.Called(ctx, userID)
	res, _ := ret.Get(0).(*brief.MeetingBriefResult)
	return res, ret.Error(1)
}

func (_m *pipelinesMock) GeneratePriorityDigest(ctx context.Context, userID string) (*brief.PriorityDigestResult, error) {
	ret := _m.Called(ctx, userID)
	res, _ := ret.Get(0).(*brief.PriorityDigestResult)
	return res, ret.Error(1)
}

func (_m *pipelinesMock) GenerateInboxSummary(ctx context.Context, userID string) (*brief.InboxSummaryResult, error) {
	ret := _m.Called(ctx, userID)
	res, _ := ret.Get(0).(*brief.InboxSummaryResult)
	return res, ret.Error(1)
}

type oauthMock struct {
	mock.Mock
}

func (_m *oauthMock) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (_m *oauthMock) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ret := _m.Called(ctx, code)
	tok, _ := ret.Get(0).(*oauth2.Token)
	return tok, ret.Error(1)
}

func (_m *oauthMock) UserInfo(ctx context.Context, tok *oauth2.Token) (string, string, error) {
	ret := _m.Called(ctx, tok)
	return ret.String(0), ret.String(1), ret.Error(2)
}

func (_m *oauthMock) Revoke(ctx context.Context, token string) error {
	ret := _m.Called(ctx, token)
	return ret.Error(0)
}

const cookieName = "meetprep_session"

func TestHTTPServer(t *testing.T) {
	suite.Run(t, new(HTTPSuite))
}

type HTTPSuite struct {
	suite.Suite
	store     *mocks.Store
	oauth     *oauthMock
	pipelines *pipelinesMock
	server    *HTTPServer
	user      *models.User
}

func (s *HTTPSuite) SetupTest() {
	s.store = &mocks.Store{}
	s.oauth = &oauthMock{}
	s.pipelines = &pipelinesMock{}
	s.server = NewHTTPServer(slog.New(slog.NewTextHandler(io.Discard, nil)), s.store, s.oauth, s.pipelines, Options{
		CookieName:      cookieName,
		SessionTTL:      24 * time.Hour,
		DefaultTimezone: "Europe/Paris",
	})
	s.user = &models.User{
		ID:                 "u1",
		Email:              "dana@acme.com",
		GoogleAccessToken:  "access",
		GoogleRefreshToken: "refresh",
		CalendarID:         "primary",
		Timezone:           "UTC",
		SendTime:           "07:00",
		IsActive:           true,
	}
}

func (s *HTTPSuite) TearDownTest() {
	s.store.AssertExpectations(s.T())
	s.oauth.AssertExpectations(s.T())
	s.pipelines.AssertExpectations(s.T())
}

func (s *HTTPSuite) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)
	return rec
}

func (s *HTTPSuite) session() *http.Cookie {
	s.store.On("GetSession", mock.Anything, "sid").Return(&models.Session{ID: "sid", UserID: "u1"}, nil)
	return &http.Cookie{Name: cookieName, Value: "sid"}
}

func (s *HTTPSuite) errorBody(rec *httptest.ResponseRecorder) string {
	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func (s *HTTPSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"status":"ok"`)
}

func (s *HTTPSuite) TestMeetingBrief_NoSession() {
	s.pipelines.On("GenerateMeetingBriefs", mock.Anything, "").Return(nil, brief.ErrUnauthenticated)

	rec := s.do(http.MethodPost, "/api/v1/briefs/meeting", "")

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("Unauthorized", s.errorBody(rec))
}

func (s *HTTPSuite) TestMeetingBrief_ExpiredSession() {
	s.store.On("GetSession", mock.Anything, "old").Return(nil, store.ErrNotFound)
	s.pipelines.On("GenerateMeetingBriefs", mock.Anything, "").Return(nil, brief.ErrUnauthenticated)

	rec := s.do(http.MethodPost, "/api/v1/briefs/meeting", "", &http.Cookie{Name: cookieName, Value: "old"})

	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HTTPSuite) TestMeetingBrief_OK() {
	cookie := s.session()
	s.pipelines.On("GenerateMeetingBriefs", mock.Anything, "u1").
		Return(&brief.MeetingBriefResult{Success: true, Message: "No meetings found for today"}, nil)

	rec := s.do(http.MethodPost, "/api/v1/briefs/meeting", "", cookie)

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"success":true,"message":"No meetings found for today","meeting_count":0,"briefs":null}`, rec.Body.String())
}

func (s *HTTPSuite) TestPriorityDigest_NotConnected() {
	cookie := s.session()
	s.pipelines.On("GeneratePriorityDigest", mock.Anything, "u1").Return(nil, brief.ErrNotConnected)

	rec := s.do(http.MethodPost, "/api/v1/briefs/priority", "", cookie)

	s.Equal(http.StatusPreconditionFailed, rec.Code)
}

func (s *HTTPSuite) TestInboxSummary_PipelineFailureHidesCause() {
	cookie := s.session()
	s.pipelines.On("GenerateInboxSummary", mock.Anything, "u1").Return(nil, &brief.PipelineError{
		Feature: models.FeatureInboxSummary,
		Err:     errors.New("gmail: 403 insufficient scope for token ya29.secret"),
	})

	rec := s.do(http.MethodPost, "/api/v1/briefs/inbox", "", cookie)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Failed to generate inbox summary. Please try again later.", s.errorBody(rec))
	s.NotContains(rec.Body.String(), "ya29")
}

func (s *HTTPSuite) TestLogin_SetsState() {
	rec := s.do(http.MethodGet, "/auth/google/login", "")

	s.Equal(http.StatusFound, rec.Code)
	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookieName {
			state = c.Value
		}
	}
	s.Require().NotEmpty(state)
	s.Contains(rec.Header().Get("Location"), "state="+state)
}

func (s *HTTPSuite) TestCallback_StateMismatch() {
	rec := s.do(http.MethodGet, "/auth/google/callback?code=abc&state=forged", "",
		&http.Cookie{Name: stateCookieName, Value: "expected"})

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid OAuth state", s.errorBody(rec))
}

func (s *HTTPSuite) TestCallback_CreatesSession() {
	expiry := time.Now().Add(time.Hour)
	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}
	s.oauth.On("Exchange", mock.Anything, "abc").Return(tok, nil)
	s.oauth.On("UserInfo", mock.Anything, tok).Return("dana@acme.com", "Dana", nil)
	s.store.On("UpsertGoogleUser", mock.Anything, mock.MatchedBy(func(a store.GoogleAccount) bool {
		return a.Email == "dana@acme.com" && a.RefreshToken == "refresh" && a.Timezone == "Europe/Paris" &&
			a.Expiry != nil && a.Expiry.Equal(expiry)
	})).Return(s.user, nil)
	s.store.On("CreateSession", mock.Anything, mock.MatchedBy(func(sess models.Session) bool {
		return sess.UserID == "u1" && sess.ID != ""
	})).Return(nil)

	rec := s.do(http.MethodGet, "/auth/google/callback?code=abc&state=st", "",
		&http.Cookie{Name: stateCookieName, Value: "st"})

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"google_connected":true`)
	s.NotContains(rec.Body.String(), "refresh")
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	s.Require().NotNil(session)
	s.True(session.HttpOnly)
}

func (s *HTTPSuite) TestMe_Unauthenticated() {
	rec := s.do(http.MethodGet, "/api/v1/me", "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HTTPSuite) TestUpdatePreferences() {
	cookie := s.session()
	s.store.On("GetUser", mock.Anything, "u1").Return(s.user, nil)
	s.store.On("UpdatePreferences", mock.Anything, "u1", models.Preferences{
		Timezone:              "America/New_York",
		SendTime:              "06:30",
		IsActive:              true,
		PriorityDigestEnabled: true,
	}).Return(nil)

	rec := s.do(http.MethodPut, "/api/v1/preferences",
		`{"timezone":"America/New_York","send_time":"06:30","is_active":true,"priority_digest_enabled":true}`, cookie)

	s.Equal(http.StatusOK, rec.Code)
}

func (s *HTTPSuite) TestUpdatePreferences_Invalid() {
	cookie := s.session()
	s.store.On("GetUser", mock.Anything, "u1").Return(s.user, nil)

	rec := s.do(http.MethodPut, "/api/v1/preferences", `{"timezone":"Mars/Olympus","send_time":"25:99"}`, cookie)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid preferences", s.errorBody(rec))
	s.store.AssertNotCalled(s.T(), "UpdatePreferences", mock.Anything, mock.Anything, mock.Anything)
}

func (s *HTTPSuite) TestDisconnect_RevokeFailureStillDisconnects() {
	cookie := s.session()
	s.store.On("GetUser", mock.Anything, "u1").Return(s.user, nil)
	s.oauth.On("Revoke", mock.Anything, "refresh").Return(errors.New("already revoked"))
	s.store.On("DisconnectGoogle", mock.Anything, "u1").Return(nil)

	rec := s.do(http.MethodDelete, "/api/v1/connection", "", cookie)

	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *HTTPSuite) TestLogs() {
	cookie := s.session()
	s.store.On("GetUser", mock.Anything, "u1").Return(s.user, nil)
	s.store.On("ListLogs", mock.Anything, "u1", 5).Return([]models.BriefingLogEntry{
		{ID: "l1", UserID: "u1", Feature: models.FeatureMeetingBrief, ItemCount: 2, Status: models.LogStatusSuccess},
	}, nil)

	rec := s.do(http.MethodGet, "/api/v1/logs?limit=5", "", cookie)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"feature":"meeting_brief"`)

	bad := s.do(http.MethodGet, "/api/v1/logs?limit=zero", "", cookie)
	s.Equal(http.StatusBadRequest, bad.Code)
}

func (s *HTTPSuite) TestLogout() {
	s.store.On("DeleteSession", mock.Anything, "sid").Return(nil)

	rec := s.do(http.MethodPost, "/auth/logout", "", &http.Cookie{Name: cookieName, Value: "sid"})

	s.Equal(http.StatusNoContent, rec.Code)
}
