package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"meetprep/internal/models"
	"meetprep/internal/store"
)

const (
	stateCookieName = "meetprep_oauth_state"
	stateTTL        = 10 * time.Minute
)

func (s *HTTPServer) meetingBrief(c echo.Context) error {
	res, err := s.pipelines.GenerateMeetingBriefs(c.Request().Context(), userID(c))
	if err != nil {
		return s.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) priorityDigest(c echo.Context) error {
	res, err := s.pipelines.GeneratePriorityDigest(c.Request().Context(), userID(c))
	if err != nil {
		return s.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) inboxSummary(c echo.Context) error {
	res, err := s.pipelines.GenerateInboxSummary(c.Request().Context(), userID(c))
	if err != nil {
		return s.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) setCookie(c echo.Context, name, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  s.now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) login(c echo.Context) error {
	state := uuid.NewString()
	s.setCookie(c, stateCookieName, state, stateTTL)
	return c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state))
}

type callbackRequest struct {
	Code  string `query:"code" validate:"required"`
	State string `query:"state" validate:"required"`
	Error string `query:"error"`
}

func (s *HTTPServer) callback(c echo.Context) error {
	var req callbackRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	if req.Error != "" {
		return errorJSON(c, http.StatusBadRequest, "Google authorization was denied")
	}
	if err := c.Validate(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Missing code or state")
	}
	cookie, err := c.Cookie(stateCookieName)
	if err != nil || cookie.Value != req.State {
		return errorJSON(c, http.StatusBadRequest, "Invalid OAuth state")
	}
	s.clearCookie(c, stateCookieName)

	ctx := c.Request().Context()
	tok, err := s.oauth.Exchange(ctx, req.Code)
	if err != nil {
		s.logger.Error("OAuth exchange failed", "error", err)
		return errorJSON(c, http.StatusBadGateway, "Could not connect Google account")
	}
	email, name, err := s.oauth.UserInfo(ctx, tok)
	if err != nil {
		s.logger.Error("Failed to read Google profile", "error", err)
		return errorJSON(c, http.StatusBadGateway, "Could not connect Google account")
	}

	acct := store.GoogleAccount{
		Email:        email,
		Name:         name,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Timezone:     s.opts.DefaultTimezone,
	}
	if !tok.Expiry.IsZero() {
		acct.Expiry = &tok.Expiry
	}
	user, err := s.store.UpsertGoogleUser(ctx, acct)
	if err != nil {
		s.logger.Error("Failed to save user", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	sess := models.Session{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: s.now().Add(s.opts.SessionTTL)}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		s.logger.Error("Failed to create session", "userID", user.ID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	s.setCookie(c, s.opts.CookieName, sess.ID, s.opts.SessionTTL)

	s.logger.Info("Google account connected.", "userID", user.ID)
	return c.JSON(http.StatusOK, newProfile(user))
}

func (s *HTTPServer) logout(c echo.Context) error {
	if cookie, err := c.Cookie(s.opts.CookieName); err == nil && cookie.Value != "" {
		if err := s.store.DeleteSession(c.Request().Context(), cookie.Value); err != nil {
			s.logger.Error("Failed to delete session", "error", err)
		}
	}
	s.clearCookie(c, s.opts.CookieName)
	return c.NoContent(http.StatusNoContent)
}

// profile is the user as shown to its owner.
type profile struct {
	*models.User
	GoogleConnected bool `json:"google_connected"`
}

func newProfile(u *models.User) profile {
	return profile{User: u, GoogleConnected: u.HasGoogleConnection()}
}

// currentUser loads the session user. When the user is nil the error
// response has been written and the second value is the write result.
func (s *HTTPServer) currentUser(c echo.Context) (*models.User, error) {
	id := userID(c)
	if id == "" {
		return nil, errorJSON(c, http.StatusUnauthorized, "Unauthorized")
	}
	user, err := s.store.GetUser(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errorJSON(c, http.StatusUnauthorized, "Unauthorized")
	}
	if err != nil {
		s.logger.Error("Failed to load user", "userID", id, "error", err)
		return nil, errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return user, nil
}

func (s *HTTPServer) me(c echo.Context) error {
	user, resp := s.currentUser(c)
	if user == nil {
		return resp
	}
	return c.JSON(http.StatusOK, newProfile(user))
}

func (s *HTTPServer) updatePreferences(c echo.Context) error {
	user, resp := s.currentUser(c)
	if user == nil {
		return resp
	}

	var req models.Preferences
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "Invalid preferences",
			"details": err.Error(),
		})
	}

	ctx := c.Request().Context()
	if err := s.store.UpdatePreferences(ctx, user.ID, req); err != nil {
		s.logger.Error("Failed to update preferences", "userID", user.ID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	updated, err := s.store.GetUser(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to reload user", "userID", user.ID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, newProfile(updated))
}

// disconnect revokes the Google grant and forgets the tokens. A failed
// revoke is logged; the tokens are dropped either way.
func (s *HTTPServer) disconnect(c echo.Context) error {
	user, resp := s.currentUser(c)
	if user == nil {
		return resp
	}

	ctx := c.Request().Context()
	token := user.GoogleRefreshToken
	if token == "" {
		token = user.GoogleAccessToken
	}
	if token != "" {
		if err := s.oauth.Revoke(ctx, token); err != nil {
			s.logger.Warn("Token revoke failed", "userID", user.ID, "error", err)
		}
	}
	if err := s.store.DisconnectGoogle(ctx, user.ID); err != nil {
		s.logger.Error("Failed to disconnect Google", "userID", user.ID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) logs(c echo.Context) error {
	user, resp := s.currentUser(c)
	if user == nil {
		return resp
	}

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return errorJSON(c, http.StatusBadRequest, "Invalid limit")
		}
		limit = n
	}

	entries, err := s.store.ListLogs(c.Request().Context(), user.ID, limit)
	if err != nil {
		s.logger.Error("Failed to list logs", "userID", user.ID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	if entries == nil {
		entries = []models.BriefingLogEntry{}
	}
	return c.JSON(http.StatusOK, map[string]any{"logs": entries})
}
