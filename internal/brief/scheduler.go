package brief

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"meetprep/internal/classify"
	"meetprep/internal/models"
	"meetprep/internal/store"
)

// Pipelines is what the scheduler runs for each due user.
type Pipelines interface {
	GenerateMeetingBriefs(ctx context.Context, userID string) (*MeetingBriefResult, error)
	GeneratePriorityDigest(ctx context.Context, userID string) (*PriorityDigestResult, error)
}

// Scheduler sends the daily briefs. Each cycle runs the users whose local
// hour matches their send hour.
type Scheduler struct {
	logger     *slog.Logger
	store      store.Store
	pipelines  Pipelines
	defaultLoc *time.Location
	now        func() time.Time
}

func NewScheduler(logger *slog.Logger, st store.Store, pipelines Pipelines, defaultLoc *time.Location) *Scheduler {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Scheduler{
		logger:     logger,
		store:      st,
		pipelines:  pipelines,
		defaultLoc: defaultLoc,
		now:        time.Now,
	}
}

// CycleStats summarizes one scheduling cycle.
type CycleStats struct {
	Users     int
	Processed int
	Failed    int
	Skipped   int // due, but everything was already sent today
}

// RunOnce performs a single cycle. Per-user failures are logged and do not
// stop the cycle; the pipelines record them in the briefing log. A feature
// with a success entry since the user's local midnight is not sent again.
func (s *Scheduler) RunOnce(ctx context.Context) (CycleStats, error) {
	s.logger.Info("Starting schedule cycle.")

	users, err := s.store.ListActiveUsers(ctx)
	if err != nil {
		return CycleStats{}, fmt.Errorf("failed to list active users: %w", err)
	}

	now := s.now()
	stats := CycleStats{Users: len(users)}
	for _, u := range users {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		loc := s.location(u)
		if !s.isSendTime(u, now.In(loc)) {
			continue
		}

		dayStart := classify.StartOfDay(now, loc)
		meeting := !s.alreadySent(ctx, u, models.FeatureMeetingBrief, dayStart)
		digest := u.PriorityDigestEnabled && !s.alreadySent(ctx, u, models.FeaturePriorityDigest, dayStart)
		if !meeting && !digest {
			stats.Skipped++
			s.logger.Info("Daily briefs already sent, skipping.", "userID", u.ID)
			continue
		}

		s.logger.Info("Sending daily briefs.", "userID", u.ID)
		stats.Processed++
		if meeting {
			if _, err := s.pipelines.GenerateMeetingBriefs(ctx, u.ID); err != nil {
				stats.Failed++
				s.logger.Error("Meeting brief failed", "userID", u.ID, "error", causeOf(err))
			}
		}
		if digest {
			if _, err := s.pipelines.GeneratePriorityDigest(ctx, u.ID); err != nil {
				stats.Failed++
				s.logger.Error("Priority digest failed", "userID", u.ID, "error", causeOf(err))
			}
		}
	}

	s.logger.Info("Schedule cycle finished.", "users", stats.Users, "processed", stats.Processed,
		"failed", stats.Failed, "skipped", stats.Skipped)
	return stats, nil
}

// alreadySent checks the briefing log. A lookup failure is logged and
// counts as not sent.
func (s *Scheduler) alreadySent(ctx context.Context, u models.User, feature models.Feature, since time.Time) bool {
	sent, err := s.store.SucceededSince(ctx, u.ID, feature, since)
	if err != nil {
		s.logger.Warn("Could not check briefing log", "userID", u.ID, "feature", feature, "error", err)
		return false
	}
	return sent
}

// Run repeats RunOnce every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	s.logger.Info("Starting scheduler.", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Schedule cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped.")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) location(u models.User) *time.Location {
	if u.Timezone != "" {
		if l, err := time.LoadLocation(u.Timezone); err == nil {
			return l
		}
	}
	return s.defaultLoc
}

// isSendTime reports whether the user's local hour equals the hour of their
// send time. Malformed send times never match.
func (s *Scheduler) isSendTime(u models.User, localNow time.Time) bool {
	hour, ok := sendHour(u.SendTime)
	if !ok {
		s.logger.Warn("Invalid send time, skipping user", "userID", u.ID, "sendTime", u.SendTime)
		return false
	}
	return localNow.Hour() == hour
}

func sendHour(sendTime string) (int, bool) {
	h, _, _ := strings.Cut(strings.TrimSpace(sendTime), ":")
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// causeOf unwraps a PipelineError so server logs show the real failure.
func causeOf(err error) error {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err
	}
	return err
}
