package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/teemow/plannr/internal/instrumentation"
	"github.com/teemow/plannr/internal/logging"
	"github.com/teemow/plannr/internal/oauth"
)

// OAuthConfig returns the OAuth2 client configuration for plannr's sign-in.
// With no scopes given, DefaultOAuthScopes are requested.
func OAuthConfig(clientID, clientSecret, redirectURL string, scopes ...string) *oauth2.Config {
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       append([]string(nil), scopes...),
	}
}

var _ oauth.Provider = (*Provider)(nil)

// Provider is the Google identity provider used by the OAuth handshake.
type Provider struct {
	config     *oauth2.Config
	apiOptions []option.ClientOption
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithAPIOptions passes extra client options to the userinfo service,
// for example option.WithEndpoint in tests.
func WithAPIOptions(opts ...option.ClientOption) ProviderOption {
	return func(p *Provider) {
		p.apiOptions = append(p.apiOptions, opts...)
	}
}

// WithMetrics records Google API operations on m.
func WithMetrics(m *instrumentation.Metrics) ProviderOption {
	return func(p *Provider) {
		p.metrics = m
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider creates a Provider for the given client configuration.
func NewProvider(config *oauth2.Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.WithComponent(p.logger, "google")
	return p
}

// AuthCodeURL returns Google's consent URL. Offline access with forced consent
// makes Google return a refresh token on every sign-in.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades an authorization code for a token.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchange)
	defer span.End()

	start := time.Now()
	token, err := p.config.Exchange(ctx, code)
	p.record(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchange, err, start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	p.logger.Debug("Exchanged authorization code",
		"access_token", logging.SanitizeToken(token.AccessToken),
		"has_refresh_token", token.RefreshToken != "",
	)
	return token, nil
}

// Identity resolves the signed-in user through the userinfo API.
func (p *Provider) Identity(ctx context.Context, token *oauth2.Token) (*oauth.Identity, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceUserinfo, instrumentation.OperationGet)
	defer span.End()

	opts := append([]option.ClientOption{
		option.WithHTTPClient(p.config.Client(ctx, token)),
	}, p.apiOptions...)

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	start := time.Now()
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	p.record(ctx, instrumentation.ServiceUserinfo, instrumentation.OperationGet, err, start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	return &oauth.Identity{Email: info.Email, Name: info.Name}, nil
}

// EncodeGrant serializes token together with the client configuration.
func (p *Provider) EncodeGrant(token *oauth2.Token) (string, error) {
	return NewGrant(p.config, token).Encode()
}

func (p *Provider) record(ctx context.Context, service, operation string, err error, start time.Time) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	p.metrics.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))
}
