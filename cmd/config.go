package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/plannr/internal/config"
	"github.com/teemow/plannr/internal/logging"
	"github.com/teemow/plannr/internal/store"
)

// stringFlagTargets maps flag names to the setting they override.
func stringFlagTargets(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"log-level":            &cfg.LogLevel,
		"log-format":           &cfg.LogFormat,
		"db-driver":            &cfg.Database.Driver,
		"db-dsn":               &cfg.Database.DSN,
		"http-addr":            &cfg.HTTPAddr,
		"base-url":             &cfg.BaseURL,
		"app-callback-url":     &cfg.AppCallbackURL,
		"google-client-id":     &cfg.Google.ClientID,
		"google-client-secret": &cfg.Google.ClientSecret,
		"calendar-id":          &cfg.Google.CalendarID,
		"metrics-addr":         &cfg.Metrics.Addr,
	}
}

// loadConfig builds the configuration for cmd: defaults, then the config
// file, then the environment, then flags the user set explicitly. Flag
// defaults never override the file or the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("PLANNR_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	for name, dst := range stringFlagTargets(cfg) {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Lookup("metrics-enabled") != nil && flags.Changed("metrics-enabled") {
		enabled, err := flags.GetBool("metrics-enabled")
		if err != nil {
			return err
		}
		cfg.Metrics.Enabled = enabled
	}

	if flags.Lookup("debug") != nil && flags.Changed("debug") {
		if debug, _ := flags.GetBool("debug"); debug {
			cfg.LogLevel = "debug"
		}
	}

	return nil
}

// newLogger builds the process logger from cfg and installs it as the
// slog default so packages that fall back to slog.Default() share it.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// openStore opens the configured database and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}
