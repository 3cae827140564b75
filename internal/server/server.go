package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/teemow/plannr/internal/calendar"
	"github.com/teemow/plannr/internal/events"
	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
	"github.com/teemow/plannr/internal/oauth"
	"github.com/teemow/plannr/internal/store"
)

// maxBodyBytes caps request bodies. Event lists and syllabus text are small.
const maxBodyBytes = 1 << 20

// Handshake runs the Google sign-in. *oauth.Flow implements it.
type Handshake interface {
	Begin() (string, error)
	Complete(ctx context.Context, code, state string) (*oauth.Identity, error)
}

// Users is the part of the user store the HTTP API reads and writes.
// *store.Store implements it.
type Users interface {
	FetchCredential(ctx context.Context, email string) (*string, error)
	FetchUser(ctx context.Context, email string) (*store.UserRecord, error)
	UpdateSyllabi(ctx context.Context, email, blob string) error
}

// Syncer pushes events into a user's calendar. *calendar.Engine implements it.
type Syncer interface {
	Sync(ctx context.Context, email string, list []events.Event) (*calendar.Report, error)
}

// Config holds the collaborators of a Server.
type Config struct {
	Handshake      Handshake
	Users          Users
	Calendar       Syncer
	AppCallbackURL string

	// Optional
	Extractor events.Extractor
	Health    *HealthChecker
	Metrics   *instrumentation.Metrics
	Audit     *instrumentation.AuditLogger
	Logger    *slog.Logger
}

// Server is the public HTTP API.
type Server struct {
	handshake   Handshake
	users       Users
	calendar    Syncer
	extractor   events.Extractor
	appCallback *url.URL
	health      *HealthChecker
	metrics     *instrumentation.Metrics
	audit       *instrumentation.AuditLogger
	logger      *slog.Logger

	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a Server from config.
func New(config Config) (*Server, error) {
	if config.Handshake == nil {
		return nil, fmt.Errorf("handshake is required")
	}
	if config.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if config.Calendar == nil {
		return nil, fmt.Errorf("calendar sync is required")
	}
	if config.AppCallbackURL == "" {
		return nil, fmt.Errorf("app callback URL is required")
	}

	callback, err := url.Parse(config.AppCallbackURL)
	if err != nil {
		return nil, fmt.Errorf("invalid app callback URL: %w", err)
	}
	if callback.Scheme == "" {
		return nil, fmt.Errorf("app callback URL %q has no scheme", config.AppCallbackURL)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	health := config.Health
	if health == nil {
		health = NewHealthChecker(nil)
	}

	s := &Server{
		handshake:   config.Handshake,
		users:       config.Users,
		calendar:    config.Calendar,
		extractor:   config.Extractor,
		appCallback: callback,
		health:      health,
		metrics:     config.Metrics,
		audit:       config.Audit,
		logger:      logging.WithComponent(logger, "http_server"),
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /auth/google", s.handle(s.handleAuthBegin))
	mux.Handle("GET /auth/callback", http.HandlerFunc(s.handleAuthCallback))

	mux.Handle("POST /export", s.handle(s.handleExport))
	mux.Handle("POST /calendar", s.handle(s.handleCalendar))

	mux.Handle("PUT /syllabi", s.handle(s.handleSaveSyllabi))
	mux.Handle("GET /syllabi", s.handle(s.handleGetSyllabi))
	mux.Handle("POST /syllabus", s.handle(s.handleExtract))

	s.health.RegisterHealthEndpoints(mux)

	return s.recoverPanics(s.observe(securityHeaders(mux)))
}

// Handler returns the fully wrapped API handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves until Shutdown is called. ready, if not
// nil, is closed once the listener is bound.
func (s *Server) Start(addr string, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Shutdown marks the server as not ready and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	return srv.Shutdown(ctx)
}

// ValidateBaseURL checks the public URL Google redirects back to. Plain
// HTTP is only accepted for loopback hosts.
func ValidateBaseURL(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth redirect requires HTTPS (got: %s). Use HTTPS or localhost for development", baseURL)
		}
		return nil
	default:
		return fmt.Errorf("invalid URL scheme: %q. Must be http (localhost only) or https", u.Scheme)
	}
}
