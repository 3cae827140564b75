package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
)

const (
	// DefaultStateTTL bounds how long a handshake may take.
	DefaultStateTTL = 300 * time.Second

	// stateBytes is the amount of randomness in each state value.
	stateBytes = 32
)

// Outcome is the result of validating a state value.
type Outcome int

// Validation outcomes.
const (
	Invalid Outcome = iota
	Ok
	Expired
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case Expired:
		return "expired"
	default:
		return "invalid"
	}
}

// Err maps the outcome to ErrInvalidState or ErrExpiredState, or nil for Ok.
func (o Outcome) Err() error {
	switch o {
	case Ok:
		return nil
	case Expired:
		return ErrExpiredState
	default:
		return ErrInvalidState
	}
}

// StateStore tracks outstanding handshake states. It is safe for concurrent
// use; a given state validates successfully at most once.
type StateStore struct {
	states  map[string]time.Time
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewStateStore creates a state store. A non-positive ttl selects
// DefaultStateTTL; a nil logger selects slog.Default().
func NewStateStore(ttl time.Duration, logger *slog.Logger) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StateStore{
		states: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
		logger: logging.WithComponent(logger, "oauth_state"),
	}
}

// SetMetrics attaches a recorder for the pending-state gauge.
func (s *StateStore) SetMetrics(m *instrumentation.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// TTL returns the configured state lifetime.
func (s *StateStore) TTL() time.Duration {
	return s.ttl
}

// Issue generates a new unpredictable state and records it. Expired entries
// are swept before the new one is inserted.
func (s *StateStore) Issue() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	swept := s.sweepLocked(now)
	s.states[state] = now

	s.metrics.AddPendingStates(context.Background(), 1-int64(swept))
	s.logger.Debug("Issued OAuth state",
		"state", logging.SanitizeToken(state),
		"swept", swept,
		"pending", len(s.states),
	)

	return state, nil
}

// ValidateAndConsume checks state and removes it. The entry is removed
// before its age is checked, so an expired state can never be replayed.
func (s *StateStore) ValidateAndConsume(state string) Outcome {
	if state == "" {
		return Invalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issuedAt, exists := s.states[state]
	if !exists {
		s.logger.Debug("Unknown OAuth state", "state", logging.SanitizeToken(state))
		return Invalid
	}
	delete(s.states, state)
	s.metrics.AddPendingStates(context.Background(), -1)

	if s.now().Sub(issuedAt) > s.ttl {
		s.logger.Debug("Expired OAuth state", "state", logging.SanitizeToken(state))
		return Expired
	}

	return Ok
}

// Len returns the number of outstanding states, including expired ones not
// yet swept.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// sweepLocked removes entries older than the TTL. Caller must hold s.mu.
func (s *StateStore) sweepLocked(now time.Time) int {
	swept := 0
	for state, issuedAt := range s.states {
		if now.Sub(issuedAt) > s.ttl {
			delete(s.states, state)
			swept++
		}
	}
	return swept
}
