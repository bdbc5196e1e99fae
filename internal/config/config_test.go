package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("GENAI_TEMPERATURE", "0.2")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://localhost/meetprep")
	t.Setenv("SCHEDULE_INTERVAL", "30m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "id", cfg.Google.ClientID)
	assert.InDelta(t, 0.2, cfg.GenAI.Temperature, 1e-6)
	assert.Equal(t, int32(2000), cfg.GenAI.MaxOutputTokens)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.Interval)
	assert.Equal(t, "google", cfg.Calendar.Provider)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_timezone: Asia/Dubai
google:
  credentials_file: credentials.json
genai:
  model: gemini-2.0-flash
http:
  addr: ":9090"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Asia/Dubai", cfg.DefaultTimezone)
	assert.Equal(t, "gemini-2.0-flash", cfg.GenAI.Model)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "meetprep_session", cfg.HTTP.CookieName)
	assert.Equal(t, "Asia/Dubai", cfg.Location().String())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"no google credentials": {},
		"bad driver":            {"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s", "DATABASE_DRIVER": "mysql"},
		"bad timezone":          {"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s", "DEFAULT_TIMEZONE": "Mars/Base"},
		"caldav without url":    {"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s", "CALENDAR_PROVIDER": "caldav"},
		"bad temperature":       {"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s", "GENAI_TEMPERATURE": "hot"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
