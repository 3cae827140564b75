package oauth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeProvider struct {
	mu            sync.Mutex
	exchangeCalls int
	identityCalls int

	exchangeErr error
	identityErr error
	identity    Identity
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeCalls++
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh"}, nil
}

func (p *fakeProvider) Identity(_ context.Context, _ *oauth2.Token) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identityCalls++
	if p.identityErr != nil {
		return nil, p.identityErr
	}
	id := p.identity
	return &id, nil
}

func (p *fakeProvider) EncodeGrant(token *oauth2.Token) (string, error) {
	return `{"token":"` + token.AccessToken + `"}`, nil
}

func (p *fakeProvider) calls() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchangeCalls, p.identityCalls
}

type memCredentials struct {
	mu      sync.Mutex
	creds   map[string]*string
	updates int
	failErr error
}

func newMemCredentials() *memCredentials {
	return &memCredentials{creds: make(map[string]*string)}
}

func (m *memCredentials) FetchCredential(_ context.Context, email string) (*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	c, ok := m.creds[email]
	if !ok {
		m.creds[email] = nil
		return nil, nil
	}
	return c, nil
}

func (m *memCredentials) UpdateCredential(_ context.Context, email, blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[email]; !ok {
		return errors.New("user not found")
	}
	m.creds[email] = &blob
	m.updates++
	return nil
}

func newTestFlow(t *testing.T, provider *fakeProvider, creds *memCredentials) (*Flow, *StateStore, *fakeClock) {
	t.Helper()
	states, clock := newTestStateStore(DefaultStateTTL)
	flow, err := NewFlow(FlowConfig{States: states, Provider: provider, Store: creds})
	require.NoError(t, err)
	return flow, states, clock
}

func stateFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestFlow_BeginAndComplete(t *testing.T) {
	provider := &fakeProvider{identity: Identity{Email: "jane@uni.edu", Name: "Jane Doe"}}
	creds := newMemCredentials()
	flow, states, _ := newTestFlow(t, provider, creds)

	authURL, err := flow.Begin()
	require.NoError(t, err)
	state := stateFromURL(t, authURL)
	require.NotEmpty(t, state)
	assert.Equal(t, 1, states.Len())

	identity, err := flow.Complete(context.Background(), "code123", state)
	require.NoError(t, err)
	assert.Equal(t, "jane@uni.edu", identity.Email)
	assert.Equal(t, "Jane Doe", identity.Name)

	require.NotNil(t, creds.creds["jane@uni.edu"])
	assert.Equal(t, `{"token":"access-code123"}`, *creds.creds["jane@uni.edu"])
	assert.Equal(t, 0, states.Len())

	// Replaying the callback is rejected without touching the provider again.
	_, err = flow.Complete(context.Background(), "code123", state)
	assert.ErrorIs(t, err, ErrInvalidState)
	exchanges, _ := provider.calls()
	assert.Equal(t, 1, exchanges)
}

func TestFlow_RejectedStatesMakeNoNetworkCall(t *testing.T) {
	tests := []struct {
		name    string
		state   func(t *testing.T, flow *Flow, clock *fakeClock) string
		wantErr error
		message string
	}{
		{
			name:    "missing state",
			state:   func(*testing.T, *Flow, *fakeClock) string { return "" },
			wantErr: ErrMissingState,
			message: "Missing OAuth state",
		},
		{
			name:    "unknown state",
			state:   func(*testing.T, *Flow, *fakeClock) string { return "bogus_state" },
			wantErr: ErrInvalidState,
			message: "Invalid OAuth state",
		},
		{
			name: "expired state",
			state: func(t *testing.T, flow *Flow, clock *fakeClock) string {
				authURL, err := flow.Begin()
				require.NoError(t, err)
				clock.Advance(DefaultStateTTL + time.Second)
				return stateFromURL(t, authURL)
			},
			wantErr: ErrExpiredState,
			message: "OAuth state expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{identity: Identity{Email: "jane@uni.edu"}}
			creds := newMemCredentials()
			flow, _, clock := newTestFlow(t, provider, creds)

			_, err := flow.Complete(context.Background(), "code", tt.state(t, flow, clock))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.message, UserMessage(err))

			exchanges, identities := provider.calls()
			assert.Zero(t, exchanges)
			assert.Zero(t, identities)
			assert.Empty(t, creds.creds)
		})
	}
}

func TestFlow_ExchangeFailed(t *testing.T) {
	provider := &fakeProvider{exchangeErr: errors.New("invalid_grant")}
	creds := newMemCredentials()
	flow, states, _ := newTestFlow(t, provider, creds)

	authURL, err := flow.Begin()
	require.NoError(t, err)
	state := stateFromURL(t, authURL)

	_, err = flow.Complete(context.Background(), "fake_code", state)
	assert.ErrorIs(t, err, ErrExchangeFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Equal(t, "Failed to exchange authorization code", UserMessage(err))

	// The state was consumed even though the exchange failed.
	assert.Equal(t, 0, states.Len())
	assert.Empty(t, creds.creds)
}

func TestFlow_IdentityAndPersistFailures(t *testing.T) {
	t.Run("identity lookup fails", func(t *testing.T) {
		provider := &fakeProvider{identityErr: errors.New("403")}
		flow, _, _ := newTestFlow(t, provider, newMemCredentials())

		authURL, err := flow.Begin()
		require.NoError(t, err)
		_, err = flow.Complete(context.Background(), "code", stateFromURL(t, authURL))
		assert.ErrorIs(t, err, ErrIdentityFailed)
		assert.Equal(t, "Failed to fetch user info", UserMessage(err))
	})

	t.Run("no email", func(t *testing.T) {
		provider := &fakeProvider{identity: Identity{Name: "Nobody"}}
		flow, _, _ := newTestFlow(t, provider, newMemCredentials())

		authURL, err := flow.Begin()
		require.NoError(t, err)
		_, err = flow.Complete(context.Background(), "code", stateFromURL(t, authURL))
		assert.ErrorIs(t, err, ErrIdentityFailed)
	})

	t.Run("store fails", func(t *testing.T) {
		provider := &fakeProvider{identity: Identity{Email: "jane@uni.edu"}}
		creds := newMemCredentials()
		creds.failErr = errors.New("database is locked")
		flow, _, _ := newTestFlow(t, provider, creds)

		authURL, err := flow.Begin()
		require.NoError(t, err)
		_, err = flow.Complete(context.Background(), "code", stateFromURL(t, authURL))
		assert.ErrorIs(t, err, ErrPersistFailed)
		assert.Equal(t, "Failed to save credentials", UserMessage(err))
	})
}

func TestFlow_MissingCode(t *testing.T) {
	provider := &fakeProvider{identity: Identity{Email: "jane@uni.edu"}}
	flow, _, _ := newTestFlow(t, provider, newMemCredentials())

	authURL, err := flow.Begin()
	require.NoError(t, err)

	_, err = flow.Complete(context.Background(), "", stateFromURL(t, authURL))
	assert.ErrorIs(t, err, ErrMissingCode)
	exchanges, _ := provider.calls()
	assert.Zero(t, exchanges)
}

func TestFlow_ExistingUserKeepsSingleRow(t *testing.T) {
	provider := &fakeProvider{identity: Identity{Email: "jane@uni.edu"}}
	creds := newMemCredentials()
	flow, _, _ := newTestFlow(t, provider, creds)

	for _, code := range []string{"first", "second"} {
		authURL, err := flow.Begin()
		require.NoError(t, err)
		_, err = flow.Complete(context.Background(), code, stateFromURL(t, authURL))
		require.NoError(t, err)
	}

	assert.Len(t, creds.creds, 1)
	assert.Equal(t, 2, creds.updates)
	assert.Equal(t, `{"token":"access-second"}`, *creds.creds["jane@uni.edu"])
}

func TestNewFlow_RequiresCollaborators(t *testing.T) {
	states := NewStateStore(0, nil)

	_, err := NewFlow(FlowConfig{Provider: &fakeProvider{}, Store: newMemCredentials()})
	assert.Error(t, err)
	_, err = NewFlow(FlowConfig{States: states, Store: newMemCredentials()})
	assert.Error(t, err)
	_, err = NewFlow(FlowConfig{States: states, Provider: &fakeProvider{}})
	assert.Error(t, err)
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.True(t, errors.Is(ErrMissingState, ErrInvalidState))
	assert.Equal(t, "Failed to save credentials", UserMessage(errors.New("boom")))
}
