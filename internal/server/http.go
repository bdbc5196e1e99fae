// Package server exposes the briefing pipelines and account settings over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/oauth2"

	"meetprep/internal/brief"
	"meetprep/internal/store"
)

// Pipelines are the three on-demand briefing runs.
type Pipelines interface {
	GenerateMeetingBriefs(ctx context.Context, userID string) (*brief.MeetingBriefResult, error)
	GeneratePriorityDigest(ctx context.Context, userID string) (*brief.PriorityDigestResult, error)
	GenerateInboxSummary(ctx context.Context, userID string) (*brief.InboxSummaryResult, error)
}

// OAuthProvider runs the Google consent flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, tok *oauth2.Token) (email, name string, err error)
	Revoke(ctx context.Context, token string) error
}

type Options struct {
	CookieName      string
	CookieSecure    bool
	SessionTTL      time.Duration
	DefaultTimezone string
}

type HTTPServer struct {
	echo      *echo.Echo
	logger    *slog.Logger
	store     store.Store
	oauth     OAuthProvider
	pipelines Pipelines
	opts      Options
	now       func() time.Time
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func NewHTTPServer(logger *slog.Logger, st store.Store, oauth OAuthProvider, pipelines Pipelines, opts Options) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURIPath:  true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				logger.Error("Request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("Request handled", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &HTTPServer{
		echo:      e,
		logger:    logger,
		store:     st,
		oauth:     oauth,
		pipelines: pipelines,
		opts:      opts,
		now:       time.Now,
	}

	// Routes
	e.GET("/health", s.healthCheck)

	auth := e.Group("/auth")
	auth.GET("/google/login", s.login)
	auth.GET("/google/callback", s.callback)
	auth.POST("/logout", s.logout)

	api := e.Group("/api/v1", s.identify)
	api.POST("/briefs/meeting", s.meetingBrief)
	api.POST("/briefs/priority", s.priorityDigest)
	api.POST("/briefs/inbox", s.inboxSummary)
	api.GET("/me", s.me)
	api.PUT("/preferences", s.updatePreferences)
	api.DELETE("/connection", s.disconnect)
	api.GET("/logs", s.logs)

	return s
}

func (s *HTTPServer) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "meetprep",
	})
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *HTTPServer) Start(address string) error {
	s.logger.Info("Starting HTTP server.", "address", address)
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server.")
	return s.echo.Shutdown(ctx)
}

const userIDKey = "userID"

// identify resolves the session cookie to a user id. Requests without a
// valid session continue anonymously; handlers decide whether that is allowed.
func (s *HTTPServer) identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(s.opts.CookieName)
		if err == nil && cookie.Value != "" {
			sess, err := s.store.GetSession(c.Request().Context(), cookie.Value)
			switch {
			case err == nil:
				c.Set(userIDKey, sess.UserID)
			case !errors.Is(err, store.ErrNotFound):
				s.logger.Error("Failed to load session", "error", err)
			}
		}
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// pipelineError maps a pipeline error to its HTTP response. The body never
// carries the underlying cause.
func (s *HTTPServer) pipelineError(c echo.Context, err error) error {
	var pe *brief.PipelineError
	switch {
	case errors.Is(err, brief.ErrUnauthenticated):
		return errorJSON(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, brief.ErrNotConnected):
		return errorJSON(c, http.StatusPreconditionFailed, "Google account not connected")
	case errors.As(err, &pe):
		return errorJSON(c, http.StatusInternalServerError, pe.Error())
	}
	s.logger.Error("Unexpected pipeline error", "error", err)
	return errorJSON(c, http.StatusInternalServerError, "Internal server error")
}
