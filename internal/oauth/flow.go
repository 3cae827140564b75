package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"

	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
)

// Identity is the user as reported by the identity provider.
type Identity struct {
	Email string
	Name  string
}

// Provider is the external identity provider.
type Provider interface {
	// AuthCodeURL returns the consent URL carrying state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Identity resolves the user that granted token.
	Identity(ctx context.Context, token *oauth2.Token) (*Identity, error)

	// EncodeGrant serializes token into the blob kept by the CredentialStore.
	EncodeGrant(token *oauth2.Token) (string, error)
}

// CredentialStore is the subset of the user store the flow needs.
type CredentialStore interface {
	FetchCredential(ctx context.Context, email string) (*string, error)
	UpdateCredential(ctx context.Context, email, blob string) error
}

// FlowConfig holds the collaborators of a Flow.
type FlowConfig struct {
	States   *StateStore
	Provider Provider
	Store    CredentialStore

	// Optional
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// Flow runs the authorization handshake.
type Flow struct {
	states   *StateStore
	provider Provider
	store    CredentialStore
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	logger   *slog.Logger
}

// NewFlow creates a Flow from config.
func NewFlow(config FlowConfig) (*Flow, error) {
	if config.States == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if config.Provider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Flow{
		states:   config.States,
		provider: config.Provider,
		store:    config.Store,
		metrics:  config.Metrics,
		audit:    config.Audit,
		logger:   logging.WithComponent(logger, "oauth_flow"),
	}, nil
}

// Begin starts a handshake and returns the URL the user must be sent to.
func (f *Flow) Begin() (string, error) {
	state, err := f.states.Issue()
	if err != nil {
		return "", err
	}
	return f.provider.AuthCodeURL(state), nil
}

// Complete finishes a handshake started by Begin. The state is validated
// before any call to the provider is made. On success the grant has been
// stored for the returned identity.
func (f *Flow) Complete(ctx context.Context, code, state string) (*Identity, error) {
	identity, err := f.complete(ctx, code, state)
	f.metrics.RecordHandshake(ctx, handshakeResult(err))

	if err != nil {
		f.logger.Warn("OAuth handshake rejected", logging.Err(err))
		return nil, err
	}

	f.logger.Info("OAuth handshake completed", logging.UserHash(identity.Email))
	return identity, nil
}

func (f *Flow) complete(ctx context.Context, code, state string) (*Identity, error) {
	if state == "" {
		return nil, ErrMissingState
	}
	if err := f.states.ValidateAndConsume(state).Err(); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := f.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	identity, err := f.provider.Identity(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityFailed, err)
	}
	identity.Email = strings.TrimSpace(identity.Email)
	if identity.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrIdentityFailed)
	}

	blob, err := f.provider.EncodeGrant(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	event := instrumentation.NewAccountEvent(instrumentation.ActionHandshake, identity.Email).WithSpanContext(ctx)
	err = f.persist(ctx, identity.Email, blob)
	f.audit.Log(event.Complete(err))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	return identity, nil
}

// persist makes sure the user row exists, then overwrites its grant.
func (f *Flow) persist(ctx context.Context, email, blob string) error {
	if _, err := f.store.FetchCredential(ctx, email); err != nil {
		return err
	}
	return f.store.UpdateCredential(ctx, email, blob)
}

func handshakeResult(err error) string {
	switch {
	case err == nil:
		return instrumentation.HandshakeSuccess
	case errors.Is(err, ErrExpiredState):
		return instrumentation.HandshakeExpiredState
	case errors.Is(err, ErrInvalidState):
		return instrumentation.HandshakeInvalidState
	case errors.Is(err, ErrExchangeFailed):
		return instrumentation.HandshakeExchangeFailed
	default:
		return instrumentation.HandshakeFailure
	}
}

// UserMessage returns the human readable reason for a failed handshake,
// suitable for the error parameter of the app callback URL.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingState):
		return "Missing OAuth state"
	case errors.Is(err, ErrExpiredState):
		return "OAuth state expired"
	case errors.Is(err, ErrInvalidState):
		return "Invalid OAuth state"
	case errors.Is(err, ErrMissingCode):
		return "Missing authorization code"
	case errors.Is(err, ErrExchangeFailed):
		return "Failed to exchange authorization code"
	case errors.Is(err, ErrIdentityFailed):
		return "Failed to fetch user info"
	default:
		return "Failed to save credentials"
	}
}
