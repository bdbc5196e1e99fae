package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"meetprep/internal/brief"
	"meetprep/internal/caldav"
	"meetprep/internal/config"
	"meetprep/internal/gateway"
	"meetprep/internal/google"
	"meetprep/internal/llm"
	"meetprep/internal/models"
	"meetprep/internal/server"
	"meetprep/internal/store"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "meetprep",
		Usage: "Daily meeting prep briefs, priority digests and inbox summaries from your Google account.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, EnvVars: []string{"MEETPREP_CONFIG"}, Usage: "Path to a YAML config file."},
		},
		Commands: []*cli.Command{
			serveCommand(),
			authCommand(),
			runCommand(),
			scheduleCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Store
	oauth     *google.OAuth
	tokens    gateway.TokenGateway
	generator gateway.TextGenerator
}

func setup(c *cli.Context, withGenerator bool) (*app, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)

	st, err := store.Open(c.Context, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: st}

	a.oauth, err = google.NewOAuth(logger, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL, cfg.Google.CredentialsFile)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to get google oauth config: %w", err)
	}
	a.tokens = a.oauth

	if cfg.Calendar.CalDAV.Enabled {
		dav := cfg.Calendar.CalDAV
		cal, err := caldav.NewClient(c.Context, logger, dav.URL, dav.Username, dav.Password, dav.CalendarName)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		a.tokens = caldav.WithCalendar(a.oauth, cal)
		logger.Info("Reading calendars over CalDAV.", "calendar", dav.CalendarName)
	}

	if withGenerator {
		a.generator, err = llm.NewGenerator(c.Context, logger, llm.Options{
			APIKey:          cfg.GenAI.APIKey,
			Model:           cfg.GenAI.Model,
			Temperature:     cfg.GenAI.Temperature,
			MaxOutputTokens: cfg.GenAI.MaxOutputTokens,
			BaseURL:         cfg.GenAI.BaseURL,
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
	}
	return a, nil
}

func (a *app) service() *brief.Service {
	return brief.NewService(a.logger, a.store, a.tokens, a.generator, a.cfg.Location())
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the daily scheduler.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-scheduler", Usage: "Serve the API without sending scheduled briefs."},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			c.Context = ctx

			a, err := setup(c, true)
			if err != nil {
				return err
			}
			defer a.store.Close()

			svc := a.service()
			srv := server.NewHTTPServer(a.logger, a.store, a.oauth, svc, server.Options{
				CookieName:      a.cfg.HTTP.CookieName,
				CookieSecure:    a.cfg.HTTP.CookieSecure,
				SessionTTL:      a.cfg.HTTP.SessionTTL,
				DefaultTimezone: a.cfg.DefaultTimezone,
			})

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(a.cfg.HTTP.Addr) })
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if !c.Bool("no-scheduler") && a.cfg.Schedule.Interval > 0 {
				scheduler := brief.NewScheduler(a.logger, a.store, svc, a.cfg.Location())
				g.Go(func() error { return scheduler.Run(ctx, a.cfg.Schedule.Interval) })
			}
			return g.Wait()
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Connect a Google account from the terminal.",
		Action: func(c *cli.Context) error {
			a, err := setup(c, false)
			if err != nil {
				return err
			}
			defer a.store.Close()
			logger := a.logger
			logger.Info("Starting Google authentication flow.")

			authURL := a.oauth.AuthCodeURL("state-token")
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			tok, err := a.oauth.Exchange(c.Context, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}
			email, name, err := a.oauth.UserInfo(c.Context, tok)
			if err != nil {
				return err
			}

			acct := store.GoogleAccount{
				Email:        email,
				Name:         name,
				AccessToken:  tok.AccessToken,
				RefreshToken: tok.RefreshToken,
				Timezone:     a.cfg.DefaultTimezone,
			}
			if !tok.Expiry.IsZero() {
				acct.Expiry = &tok.Expiry
			}
			user, err := a.store.UpsertGoogleUser(c.Context, acct)
			if err != nil {
				return fmt.Errorf("failed to save user: %w", err)
			}

			cal, err := google.NewCalendarClient(c.Context, logger, option.WithHTTPClient(a.oauth.HTTPClient(c.Context, tok)))
			if err != nil {
				return err
			}
			calendarIDs, err := cal.DiscoverCalendars(c.Context)
			if err != nil {
				logger.Warn("Could not list calendars, keeping the current one.", "error", err)
			} else {
				fmt.Println("Calendars on this account:")
				for _, id := range calendarIDs {
					fmt.Printf("  %s\n", id)
				}
				fmt.Printf("Calendar to brief from [%s]: ", user.Calendar())
				choice, _ := reader.ReadString('\n')
				if choice = strings.TrimSpace(choice); choice != "" && choice != user.Calendar() {
					prefs := preferencesOf(user)
					prefs.CalendarID = choice
					if err := a.store.UpdatePreferences(c.Context, user.ID, prefs); err != nil {
						return fmt.Errorf("failed to save calendar: %w", err)
					}
				}
			}

			logger.Info("Successfully authenticated and saved user.", "userID", user.ID, "email", email)
			return nil
		},
	}
}

func preferencesOf(u *models.User) models.Preferences {
	return models.Preferences{
		CalendarID:            u.CalendarID,
		StrategicGoals:        u.StrategicGoals,
		Timezone:              u.Timezone,
		SendTime:              u.SendTime,
		IsActive:              u.IsActive,
		PriorityDigestEnabled: u.PriorityDigestEnabled,
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one briefing pipeline for a user now.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "User id or email address."},
			&cli.StringFlag{Name: "feature", Value: "meeting", Usage: "One of meeting, priority or inbox."},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c, true)
			if err != nil {
				return err
			}
			defer a.store.Close()

			userID := c.String("user")
			if strings.Contains(userID, "@") {
				u, err := a.store.GetUserByEmail(c.Context, userID)
				if err != nil {
					return fmt.Errorf("unknown user %s: %w", userID, err)
				}
				userID = u.ID
			}

			svc := a.service()
			var res any
			switch c.String("feature") {
			case "meeting":
				res, err = svc.GenerateMeetingBriefs(c.Context, userID)
			case "priority":
				res, err = svc.GeneratePriorityDigest(c.Context, userID)
			case "inbox":
				res, err = svc.GenerateInboxSummary(c.Context, userID)
			default:
				return fmt.Errorf("unknown feature %q", c.String("feature"))
			}
			if err != nil {
				var pe *brief.PipelineError
				if errors.As(err, &pe) {
					return fmt.Errorf("%s: %w", pe.Error(), pe.Err)
				}
				return err
			}

			a.logger.Info("Pipeline finished.", "feature", c.String("feature"), "result", fmt.Sprintf("%+v", res))
			return nil
		},
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Send the briefs that are due, without serving the API.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the schedule cycle once and exit."},
			&cli.DurationFlag{Name: "watch", Usage: "Run a cycle every interval. Overrides --once."},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			c.Context = ctx

			a, err := setup(c, true)
			if err != nil {
				return err
			}
			defer a.store.Close()

			scheduler := brief.NewScheduler(a.logger, a.store, a.service(), a.cfg.Location())

			// --watch flag takes precedence
			if c.IsSet("watch") {
				a.logger.Info("Starting watcher.", "interval", c.Duration("watch"))
				return scheduler.Run(ctx, c.Duration("watch"))
			}
			a.logger.Info("Running a single schedule cycle.")
			if _, err := scheduler.RunOnce(ctx); err != nil {
				return fmt.Errorf("single schedule cycle failed: %w", err)
			}
			return nil
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
