package google

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// TokenSource serves access tokens for a stored grant, refreshing through the
// grant's token endpoint when the access token has expired. It remembers
// whether a refresh happened so the caller can persist the renewed grant.
type TokenSource struct {
	grant *Grant
	base  oauth2.TokenSource

	mu      sync.Mutex
	current string
	latest  *oauth2.Token
}

// TokenSource returns a refreshing token source for g. ctx carries the HTTP
// client used for refreshes (see oauth2.HTTPClient).
func (g *Grant) TokenSource(ctx context.Context) *TokenSource {
	token := g.OAuthToken()
	return &TokenSource{
		grant:   g,
		base:    g.Config().TokenSource(ctx, token),
		current: token.AccessToken,
	}
}

// Token implements oauth2.TokenSource.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	t, err := ts.base.Token()
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t.AccessToken != ts.current {
		ts.current = t.AccessToken
		ts.latest = t
	}
	return t, nil
}

// Refreshed returns the renewed grant if the access token changed since the
// source was created.
func (ts *TokenSource) Refreshed() (*Grant, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.latest == nil {
		return nil, false
	}
	return ts.grant.withToken(ts.latest), true
}

// HTTPClient returns an HTTP client authorizing requests with ts.
// base may be nil to use http.DefaultTransport.
func (ts *TokenSource) HTTPClient(base http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: base},
	}
}
