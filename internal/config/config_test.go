package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plannr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "plannr://auth/callback", cfg.AppCallbackURL)
	assert.Equal(t, 5*time.Minute, cfg.StateTTL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "primary", cfg.Google.CalendarID)
	assert.True(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
http_addr: ":9000"
base_url: https://plannr.example.com/
state_ttl: 90s
log_format: json
google:
  client_id: file-id
  client_secret: file-secret
  scopes: [openid, email]
database:
  driver: pgx
  dsn: postgres://plannr@db/plannr
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 90*time.Second, cfg.StateTTL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "file-id", cfg.Google.ClientID)
	assert.Equal(t, []string{"openid", "email"}, cfg.Google.Scopes)
	assert.Equal(t, "primary", cfg.Google.CalendarID, "unset keys keep defaults")
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "https://plannr.example.com", cfg.PublicBaseURL())
	assert.Equal(t, "https://plannr.example.com/auth/callback", cfg.RedirectURL())
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "http_adr: typo\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(writeConfig(t, "state_ttl: soon\n"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
google:
  client_id: file-id
database:
  dsn: file:from-file.db
`)

	t.Setenv("GOOGLE_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")
	t.Setenv("PLANNR_DB_DSN", "file:from-env.db")
	t.Setenv("PLANNR_STATE_TTL", "2m")
	t.Setenv("PLANNR_GOOGLE_SCOPES", "openid, email ,")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PII", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Google.ClientID)
	assert.Equal(t, "env-secret", cfg.Google.ClientSecret)
	assert.Equal(t, "file:from-env.db", cfg.Database.DSN)
	assert.Equal(t, 2*time.Minute, cfg.StateTTL)
	assert.Equal(t, []string{"openid", "email"}, cfg.Google.Scopes)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Audit.IncludePII)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("PLANNR_STATE_TTL", "five minutes")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("PLANNR_STATE_TTL", "")
	t.Setenv("METRICS_ENABLED", "maybe")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no listen address", func(c *Config) { c.HTTPAddr = "" }},
		{"zero ttl", func(c *Config) { c.StateTTL = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"no dsn", func(c *Config) { c.Database.DSN = "" }},
		{"metrics without addr", func(c *Config) { c.Metrics.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateServer_RequiresGoogleClient(t *testing.T) {
	cfg := Default()
	err := cfg.ValidateServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
	assert.Contains(t, err.Error(), "client_secret")

	cfg.Google.ClientID = "id"
	cfg.Google.ClientSecret = "secret"
	assert.NoError(t, cfg.ValidateServer())
}

func TestPublicBaseURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL())
	assert.Equal(t, "http://localhost:8080/auth/callback", cfg.RedirectURL())

	cfg.HTTPAddr = "127.0.0.1:8081"
	assert.Equal(t, "http://127.0.0.1:8081", cfg.PublicBaseURL())

	cfg.Google.RedirectURL = "https://elsewhere.example.com/cb"
	assert.Equal(t, "https://elsewhere.example.com/cb", cfg.RedirectURL())
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"single value", "openid", []string{"openid"}},
		{"multiple values", "openid,email", []string{"openid", "email"}},
		{"spaces around comma", "openid, email", []string{"openid", "email"}},
		{"trailing comma", "openid,email,", []string{"openid", "email"}},
		{"consecutive commas", "openid,,email", []string{"openid", "email"}},
		{"only commas and spaces", ",  , , ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseList(tt.input))
		})
	}
}
