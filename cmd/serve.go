package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/plannr/internal/calendar"
	"github.com/teemow/plannr/internal/config"
	"github.com/teemow/plannr/internal/google"
	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
	"github.com/teemow/plannr/internal/oauth"
	"github.com/teemow/plannr/internal/server"
)

// startupTimeout bounds how long a listener may take to bind.
const startupTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the plannr API server",
		Long: `Start the HTTP API used by the plannr apps.

Google OAuth (required):
  --google-client-id and --google-client-secret flags
  OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars

Base URL (required for deployed instances):
  --base-url https://your-domain.com OR PLANNR_BASE_URL env var
  Derived from --http-addr for localhost (development only).
  Google redirects to <base-url>/auth/callback, which must be registered
  as an authorized redirect URI of the OAuth client.

Metrics are served on a dedicated port (--metrics-addr) when the
Prometheus exporter is used.

POST /syllabus answers 501 Not Implemented: no event extractor is wired
into this binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().Bool("debug", false, "Enable debug logging")
	cmd.Flags().String("http-addr", config.DefaultHTTPAddr, "HTTP server address. Can also use PLANNR_HTTP_ADDR env var.")
	cmd.Flags().String("base-url", "", "Public base URL of the server. Can also use PLANNR_BASE_URL env var. Example: https://plannr.example.com")
	cmd.Flags().String("app-callback-url", config.DefaultAppCallbackURL, "URL the app receives the sign-in result on. Can also use PLANNR_APP_CALLBACK_URL env var.")
	cmd.Flags().String("google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().String("google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().String("calendar-id", config.DefaultCalendarID, "Calendar events are created in. Can also use PLANNR_CALENDAR_ID env var.")

	// Metrics server flags
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	baseURL := cfg.PublicBaseURL()
	if err := server.ValidateBaseURL(baseURL); err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Audit = instrumentation.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		IncludePII: cfg.Audit.IncludePII,
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		// ctx is already canceled here; flush with a fresh deadline.
		flushCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	metricsServer, err := startMetricsServer(cfg, provider, logger)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Error shutting down metrics server", logging.Err(err))
			}
		}()
	}

	users, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer users.Close()

	metrics := provider.Metrics()
	audit := instrumentation.NewAuditLogger(logger, instrConfig.Audit)

	states := oauth.NewStateStore(cfg.StateTTL, logger)
	states.SetMetrics(metrics)

	oauthConfig := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.RedirectURL(), cfg.Google.Scopes...)
	flow, err := oauth.NewFlow(oauth.FlowConfig{
		States:   states,
		Provider: google.NewProvider(oauthConfig, google.WithMetrics(metrics), google.WithLogger(logger)),
		Store:    users,
		Metrics:  metrics,
		Audit:    audit,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	engine, err := calendar.NewEngine(calendar.EngineConfig{
		Store: users,
		Connector: calendar.NewGoogleConnector(cfg.Google.CalendarID,
			calendar.WithConnectorMetrics(metrics),
			calendar.WithConnectorLogger(logger)),
		Metrics: metrics,
		Audit:   audit,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	api, err := server.New(server.Config{
		Handshake:      flow,
		Users:          users,
		Calendar:       engine,
		AppCallbackURL: cfg.AppCallbackURL,
		Health:         server.NewHealthChecker(users),
		Metrics:        metrics,
		Audit:          audit,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	logger.Info("plannr API configured",
		"base_url", baseURL,
		"redirect_url", cfg.RedirectURL(),
		"calendar_id", cfg.Google.CalendarID,
		"db_driver", cfg.Database.Driver)

	serverDone := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		serverDone <- api.Start(cfg.HTTPAddr, ready)
	}()

	select {
	case <-ready:
	case err := <-serverDone:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return fmt.Errorf("HTTP server startup timed out")
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverDone:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("error shutting down HTTP server: %w", err))
	}

	if runErr == nil {
		logger.Info("HTTP server gracefully stopped")
	}
	return runErr
}

// startMetricsServer starts the dedicated metrics listener when metrics
// are enabled and exported through Prometheus. It returns nil otherwise.
func startMetricsServer(cfg *config.Config, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	if !cfg.Metrics.Enabled || !provider.Enabled() {
		return nil, nil
	}
	if provider.PrometheusHandler() == nil {
		logger.Info("Metrics server disabled, exporter is not prometheus")
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Metrics.Addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ready := make(chan struct{})
	failed := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case <-ready:
		return metricsServer, nil
	case err := <-failed:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}
