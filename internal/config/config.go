package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/plannr/internal/logging"
	"github.com/teemow/plannr/internal/oauth"
	"github.com/teemow/plannr/internal/store"
)

// Defaults.
const (
	DefaultHTTPAddr       = ":8080"
	DefaultAppCallbackURL = "plannr://auth/callback"
	DefaultDatabaseDSN    = "file:plannr.db"
	DefaultMetricsAddr    = ":9090"
	DefaultCalendarID     = "primary"
	CallbackPath          = "/auth/callback"
)

// Config is the top-level application configuration.
type Config struct {
	// HTTPAddr is the listen address of the API server.
	HTTPAddr string `yaml:"http_addr"`

	// BaseURL is the public URL of the API server. Derived from HTTPAddr
	// when empty, which is only suitable for local development.
	BaseURL string `yaml:"base_url"`

	// AppCallbackURL receives the result of the OAuth handshake.
	AppCallbackURL string `yaml:"app_callback_url"`

	// StateTTL bounds the lifetime of an OAuth state.
	StateTTL time.Duration `yaml:"state_ttl"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Google   GoogleConfig   `yaml:"google"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Audit    AuditConfig    `yaml:"audit"`
}

// GoogleConfig holds the OAuth client and calendar settings.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// RedirectURL defaults to BaseURL + CallbackPath.
	RedirectURL string `yaml:"redirect_url"`

	CalendarID string `yaml:"calendar_id"`

	// Scopes replaces the default scope set when not empty.
	Scopes []string `yaml:"scopes"`
}

// DatabaseConfig selects the credential store backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "pgx".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// MetricsConfig holds configuration for the metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AuditConfig controls the account audit log.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	IncludePII bool `yaml:"include_pii"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:       DefaultHTTPAddr,
		AppCallbackURL: DefaultAppCallbackURL,
		StateTTL:       oauth.DefaultStateTTL,
		LogLevel:       "info",
		LogFormat:      logging.FormatText,
		Google: GoogleConfig{
			CalendarID: DefaultCalendarID,
		},
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    DefaultDatabaseDSN,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    DefaultMetricsAddr,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// not empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML data onto c. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides c with values from environment variables that are set.
func (c *Config) ApplyEnv() error {
	setString(&c.HTTPAddr, "PLANNR_HTTP_ADDR")
	setString(&c.BaseURL, "PLANNR_BASE_URL")
	setString(&c.AppCallbackURL, "PLANNR_APP_CALLBACK_URL")
	setString(&c.LogLevel, "PLANNR_LOG_LEVEL")
	setString(&c.LogFormat, "PLANNR_LOG_FORMAT")

	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.RedirectURL, "PLANNR_GOOGLE_REDIRECT_URL")
	setString(&c.Google.CalendarID, "PLANNR_CALENDAR_ID")
	if v := os.Getenv("PLANNR_GOOGLE_SCOPES"); v != "" {
		c.Google.Scopes = ParseList(v)
	}

	setString(&c.Database.Driver, "PLANNR_DB_DRIVER")
	setString(&c.Database.DSN, "PLANNR_DB_DSN")
	setString(&c.Metrics.Addr, "METRICS_ADDR")

	if v := os.Getenv("PLANNR_STATE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PLANNR_STATE_TTL %q: %w", v, err)
		}
		c.StateTTL = ttl
	}

	for key, dst := range map[string]*bool{
		"METRICS_ENABLED":           &c.Metrics.Enabled,
		"AUDIT_LOGGING_ENABLED":     &c.Audit.Enabled,
		"AUDIT_LOGGING_INCLUDE_PII": &c.Audit.IncludePII,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = b
	}

	return nil
}

// Validate checks settings shared by all commands.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.StateTTL <= 0 {
		errs = append(errs, fmt.Errorf("state_ttl must be positive, got %s", c.StateTTL))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("log_format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.LogFormat))
	}
	if _, err := store.DialectForDriver(c.Database.Driver); err != nil {
		errs = append(errs, err)
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics addr is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}

// ValidateServer additionally checks what the API server needs.
func (c *Config) ValidateServer() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Google.ClientID == "" {
		errs = append(errs, errors.New("google client_id is required (GOOGLE_CLIENT_ID)"))
	}
	if c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("google client_secret is required (GOOGLE_CLIENT_SECRET)"))
	}
	if c.AppCallbackURL == "" {
		errs = append(errs, errors.New("app_callback_url is required"))
	}
	return errors.Join(errs...)
}

// PublicBaseURL returns BaseURL, or a localhost URL derived from HTTPAddr.
func (c *Config) PublicBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	if strings.HasPrefix(c.HTTPAddr, ":") {
		return "http://localhost" + c.HTTPAddr
	}
	return "http://" + c.HTTPAddr
}

// RedirectURL returns the OAuth redirect URL registered with Google.
func (c *Config) RedirectURL() string {
	if c.Google.RedirectURL != "" {
		return c.Google.RedirectURL
	}
	return c.PublicBaseURL() + CallbackPath
}

// ParseList splits a comma-separated string, trimming whitespace and
// dropping empty elements. It returns nil when nothing remains.
func ParseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
