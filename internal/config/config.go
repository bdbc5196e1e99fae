// Package config loads process configuration from an optional YAML file and
// the environment. It is read once at startup and passed to constructors.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel        string         `yaml:"log_level"`
	DefaultTimezone string         `yaml:"default_timezone" validate:"required,timezone"`
	Google          GoogleConfig   `yaml:"google"`
	GenAI           GenAIConfig    `yaml:"genai"`
	Database        DatabaseConfig `yaml:"database"`
	HTTP            HTTPConfig     `yaml:"http"`
	Schedule        ScheduleConfig `yaml:"schedule"`
	Calendar        CalendarConfig `yaml:"calendar"`
}

type GoogleConfig struct {
	ClientID        string `yaml:"client_id" validate:"required_without=CredentialsFile"`
	ClientSecret    string `yaml:"client_secret" validate:"required_with=ClientID"`
	RedirectURL     string `yaml:"redirect_url" validate:"omitempty,url"`
	CredentialsFile string `yaml:"credentials_file"`
}

type GenAIConfig struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model" validate:"required"`
	Temperature     float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens int32   `yaml:"max_output_tokens" validate:"gt=0"`
	BaseURL         string  `yaml:"base_url" validate:"omitempty,url"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	CookieName   string        `yaml:"cookie_name" validate:"required"`
	CookieSecure bool          `yaml:"cookie_secure"`
	SessionTTL   time.Duration `yaml:"session_ttl" validate:"gt=0"`
}

type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

type CalendarConfig struct {
	Provider string `yaml:"provider" validate:"oneof=google caldav"`
	CalDAV   CalDAV `yaml:"caldav"`
}

type CalDAV struct {
	URL          string `yaml:"url" validate:"required_if=Enabled true"`
	Username     string `yaml:"username" validate:"required_if=Enabled true"`
	Password     string `yaml:"password"`
	CalendarName string `yaml:"calendar_name" validate:"required_if=Enabled true"`
	Enabled      bool   `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		DefaultTimezone: "UTC",
		GenAI: GenAIConfig{
			Model:           "gemini-2.5-flash",
			Temperature:     0.7,
			MaxOutputTokens: 2000,
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "meetprep.db"},
		HTTP: HTTPConfig{
			Addr:       ":8080",
			CookieName: "meetprep_session",
			SessionTTL: 30 * 24 * time.Hour,
		},
		Schedule: ScheduleConfig{Interval: time.Hour},
		Calendar: CalendarConfig{Provider: "google"},
	}
}

// Load reads path (optional, may be empty) then applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Calendar.CalDAV.Enabled = cfg.Calendar.Provider == "caldav"

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DefaultTimezone, "DEFAULT_TIMEZONE")

	setString(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
	setString(&cfg.Google.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")

	setString(&cfg.GenAI.APIKey, "GENAI_API_KEY")
	setString(&cfg.GenAI.Model, "GENAI_MODEL")
	setString(&cfg.GenAI.BaseURL, "GENAI_BASE_URL")
	if v := os.Getenv("GENAI_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid GENAI_TEMPERATURE %q: %w", v, err)
		}
		cfg.GenAI.Temperature = float32(f)
	}
	if v := os.Getenv("GENAI_MAX_OUTPUT_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid GENAI_MAX_OUTPUT_TOKENS %q: %w", v, err)
		}
		cfg.GenAI.MaxOutputTokens = int32(n)
	}

	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_DSN")

	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	setString(&cfg.HTTP.CookieName, "SESSION_COOKIE_NAME")
	if v := os.Getenv("SESSION_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_COOKIE_SECURE %q: %w", v, err)
		}
		cfg.HTTP.CookieSecure = b
	}
	if err := setDuration(&cfg.HTTP.SessionTTL, "SESSION_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Schedule.Interval, "SCHEDULE_INTERVAL"); err != nil {
		return err
	}

	setString(&cfg.Calendar.Provider, "CALENDAR_PROVIDER")
	setString(&cfg.Calendar.CalDAV.URL, "CALDAV_URL")
	setString(&cfg.Calendar.CalDAV.Username, "CALDAV_USERNAME")
	setString(&cfg.Calendar.CalDAV.Password, "CALDAV_PASSWORD")
	setString(&cfg.Calendar.CalDAV.CalendarName, "CALDAV_CALENDAR_NAME")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

// Location returns the default timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
