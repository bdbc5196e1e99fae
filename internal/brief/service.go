// Package brief runs the meeting brief, priority digest and inbox summary
// pipelines for one user: load, refresh, gather, generate, compose, send, log.
package brief

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"time"

	"meetprep/internal/aggregate"
	"meetprep/internal/classify"
	"meetprep/internal/compose"
	"meetprep/internal/gateway"
	"meetprep/internal/models"
	"meetprep/internal/store"
)

const (
	maxTodayEvents = 50
	previewLimit   = 500

	noMeetingsNote = "No meetings found"
	noEmailsNote   = "No emails need attention"
)

// MeetingBriefResult is returned by GenerateMeetingBriefs.
type MeetingBriefResult struct {
	Success      bool                   `json:"success"`
	Message      string                 `json:"message"`
	MeetingCount int                    `json:"meeting_count"`
	Briefs       []compose.MeetingBrief `json:"briefs"`
}

// DigestCounts are the item totals a digest was built from.
type DigestCounts struct {
	Events   int `json:"events"`
	Emails   int `json:"emails"`
	Tasks    int `json:"tasks"`
	Critical int `json:"critical"`
}

// PriorityDigestResult is returned by GeneratePriorityDigest.
type PriorityDigestResult struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Counts    DigestCounts        `json:"counts"`
	DayHealth aggregate.DayHealth `json:"day_health"`
	Preview   string              `json:"preview"`
}

// InboxSummaryResult is returned by GenerateInboxSummary.
type InboxSummaryResult struct {
	Success    bool                         `json:"success"`
	Message    string                       `json:"message"`
	EmailCount int                          `json:"email_count"`
	Categories map[models.InboxCategory]int `json:"categories"`
	Fallback   bool                         `json:"fallback,omitempty"`
}

// Service runs the three pipelines.
type Service struct {
	store      store.Store
	tokens     *TokenManager
	oauth      gateway.TokenGateway
	generator  gateway.TextGenerator
	defaultLoc *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(logger *slog.Logger, st store.Store, oauth gateway.TokenGateway, generator gateway.TextGenerator, defaultLoc *time.Location) *Service {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Service{
		store:      st,
		tokens:     NewTokenManager(logger, st, oauth),
		oauth:      oauth,
		generator:  generator,
		defaultLoc: defaultLoc,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source of the service and its token manager.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.tokens.now = now
	return s
}

// run is the per-invocation state once the preconditions hold.
type run struct {
	feature  models.Feature
	user     *models.User
	services gateway.Services
	loc      *time.Location
	now      time.Time
	logger   *slog.Logger
}

// begin resolves the user and connects the Google gateways. Precondition
// errors are returned without writing a log entry.
func (s *Service) begin(ctx context.Context, userID string, feature models.Feature) (*run, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		s.logger.Error("Failed to load user", "userID", userID, "feature", feature, "error", err)
		return nil, &PipelineError{Feature: feature, Err: fmt.Errorf("failed to load user: %w", err)}
	}
	if !user.HasGoogleConnection() {
		return nil, ErrNotConnected
	}

	loc := s.location(user.Timezone)
	r := &run{
		feature: feature,
		user:    user,
		loc:     loc,
		now:     s.now().In(loc),
		logger:  s.logger.With("userID", user.ID, "feature", feature),
	}

	tok, err := s.tokens.Token(ctx, user)
	if err != nil {
		r.logger.Warn("Token refresh failed, continuing with stored token", "error", err)
	}

	services, err := s.oauth.Connect(ctx, tok)
	if err != nil {
		return nil, s.fail(ctx, r, fmt.Errorf("failed to connect google services: %w", err))
	}
	r.services = services
	return r, nil
}

func (s *Service) location(name string) *time.Location {
	if name == "" {
		return s.defaultLoc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logger.Warn("Unknown timezone, using default", "timezone", name, "error", err)
		return s.defaultLoc
	}
	return loc
}

// GenerateMeetingBriefs sends one email covering today's meetings.
func (s *Service) GenerateMeetingBriefs(ctx context.Context, userID string) (*MeetingBriefResult, error) {
	r, err := s.begin(ctx, userID, models.FeatureMeetingBrief)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Starting meeting brief.")

	meetings, err := s.todaysMeetings(ctx, r)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	if len(meetings) == 0 {
		r.logger.Info("No meetings today, nothing to send.")
		s.appendLog(ctx, r, 0, models.LogStatusSuccess, noMeetingsNote)
		return &MeetingBriefResult{
			Success: true,
			Message: "No meetings found for today",
			Briefs:  []compose.MeetingBrief{},
		}, nil
	}

	builder := aggregate.NewMeetingContextBuilder(r.logger, r.services, r.user.Calendar(), r.loc).WithClock(s.now)
	briefs := make([]compose.MeetingBrief, 0, len(meetings))
	for _, event := range meetings {
		mc := builder.Build(ctx, event)
		text, err := s.generator.Generate(ctx, aggregate.MeetingPrompt(mc, r.loc))
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("empty response")
		}
		if err != nil {
			r.logger.Warn("Brief generation failed, using placeholder", "eventID", event.ID, "error", err)
			briefs = append(briefs, compose.PlaceholderBrief(mc))
			continue
		}
		briefs = append(briefs, compose.NewMeetingBrief(mc, text))
	}

	email, err := compose.MeetingBriefEmail(briefs, r.now)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	if err := s.send(ctx, r, email); err != nil {
		return nil, s.fail(ctx, r, err)
	}

	s.appendLog(ctx, r, len(meetings), models.LogStatusSuccess, "")
	r.logger.Info("Meeting brief sent.", "meetings", len(meetings))
	return &MeetingBriefResult{
		Success:      true,
		Message:      fmt.Sprintf("Brief sent for %d %s", len(meetings), pluralize(len(meetings), "meeting")),
		MeetingCount: len(meetings),
		Briefs:       briefs,
	}, nil
}

// todaysMeetings lists today's events that have attendees and are not
// cancelled, ordered by start time.
func (s *Service) todaysMeetings(ctx context.Context, r *run) ([]models.CalendarEvent, error) {
	today := classify.StartOfDay(r.now, r.loc)
	events, err := r.services.Calendar.ListEvents(ctx, r.user.Calendar(), gateway.EventQuery{
		TimeMin:    today,
		TimeMax:    today.AddDate(0, 0, 1),
		MaxResults: maxTodayEvents,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list today's events: %w", err)
	}

	meetings := slices.DeleteFunc(events, func(e models.CalendarEvent) bool { return !e.IsMeeting() })
	for i := range meetings {
		meetings[i] = meetings[i].InLocation(r.loc)
	}
	slices.SortStableFunc(meetings, func(a, b models.CalendarEvent) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return meetings, nil
}

// GeneratePriorityDigest sends the executive priority digest. A generation
// failure is fatal since the digest has no per-item fallback.
func (s *Service) GeneratePriorityDigest(ctx context.Context, userID string) (*PriorityDigestResult, error) {
	r, err := s.begin(ctx, userID, models.FeaturePriorityDigest)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Starting priority digest.")

	pc := aggregate.NewPriorityContextBuilder(r.logger, r.services, r.user.Calendar(), r.loc).
		WithClock(s.now).
		Build(ctx, r.user.StrategicGoals)

	text, err := s.generator.Generate(ctx, aggregate.PriorityPrompt(pc, r.user.Name, r.loc))
	if err != nil {
		return nil, s.fail(ctx, r, fmt.Errorf("failed to generate digest: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return nil, s.fail(ctx, r, errors.New("failed to generate digest: empty response"))
	}

	email, err := compose.PriorityDigestEmail(pc, text, r.now)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	if err := s.send(ctx, r, email); err != nil {
		return nil, s.fail(ctx, r, err)
	}

	counts := DigestCounts{
		Events:   pc.Calendar.Total,
		Emails:   pc.Email.Total,
		Tasks:    pc.Tasks.Total,
		Critical: pc.DayHealth.CriticalItems,
	}
	s.appendLog(ctx, r, counts.Events+counts.Emails+counts.Tasks, models.LogStatusSuccess, "")
	r.logger.Info("Priority digest sent.", "critical", counts.Critical)
	return &PriorityDigestResult{
		Success:   true,
		Message:   fmt.Sprintf("Priority digest sent with %d critical %s", counts.Critical, pluralize(counts.Critical, "item")),
		Counts:    counts,
		DayHealth: pc.DayHealth,
		Preview:   truncate(text, previewLimit),
	}, nil
}

// GenerateInboxSummary sends the categorized summary of the last 24 hours
// of priority mail.
func (s *Service) GenerateInboxSummary(ctx context.Context, userID string) (*InboxSummaryResult, error) {
	r, err := s.begin(ctx, userID, models.FeatureInboxSummary)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Starting inbox summary.")

	ic, err := aggregate.NewInboxContextBuilder(r.logger, r.services.Mail, s.generator).WithClock(s.now).Build(ctx)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	if len(ic.Emails) == 0 {
		r.logger.Info("No emails need attention, nothing to send.")
		s.appendLog(ctx, r, 0, models.LogStatusSuccess, noEmailsNote)
		return &InboxSummaryResult{
			Success:    true,
			Message:    noEmailsNote,
			Categories: ic.Counts,
		}, nil
	}

	email, err := compose.InboxSummaryEmail(ic, r.now)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	if err := s.send(ctx, r, email); err != nil {
		return nil, s.fail(ctx, r, err)
	}

	s.appendLog(ctx, r, len(ic.Emails), models.LogStatusSuccess, "")
	r.logger.Info("Inbox summary sent.", "emails", len(ic.Emails), "fallback", ic.Fallback)
	return &InboxSummaryResult{
		Success:    true,
		Message:    fmt.Sprintf("Inbox summary sent with %d %s", len(ic.Emails), pluralize(len(ic.Emails), "email")),
		EmailCount: len(ic.Emails),
		Categories: ic.Counts,
		Fallback:   ic.Fallback,
	}, nil
}

func (s *Service) send(ctx context.Context, r *run, email compose.Email) error {
	to := (&mail.Address{Name: r.user.Name, Address: r.user.Email}).String()
	raw, err := compose.BuildMIME(to, email)
	if err != nil {
		return err
	}
	if err := r.services.Mail.Send(ctx, raw); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// fail records a failed run and returns the error for the caller.
func (s *Service) fail(ctx context.Context, r *run, err error) error {
	r.logger.Error("Pipeline failed", "error", err)
	s.appendLog(ctx, r, 0, models.LogStatusFailed, truncate(err.Error(), models.ErrorMessageLimit))
	return &PipelineError{Feature: r.feature, Err: err}
}

// appendLog writes the audit entry. A store failure is logged and does not
// change the outcome of the run.
func (s *Service) appendLog(ctx context.Context, r *run, count int, status, message string) {
	entry := models.BriefingLogEntry{
		UserID:       r.user.ID,
		Feature:      r.feature,
		ItemCount:    count,
		Status:       status,
		ErrorMessage: message,
		CreatedAt:    s.now(),
	}
	if err := s.store.AppendLog(ctx, entry); err != nil {
		r.logger.Error("Failed to write briefing log", "status", status, "error", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
