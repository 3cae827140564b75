package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrInvalidGrant is returned when a stored credential blob cannot be used.
var ErrInvalidGrant = errors.New("invalid stored grant")

// Grant is the decoded credential blob.
type Grant struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenURI     string     `json:"token_uri"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	Scopes       []string   `json:"scopes"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// NewGrant builds a Grant from the client configuration and an issued token.
// Scopes are the ones the token response reports as granted, falling back to
// the requested ones when the response has none.
func NewGrant(config *oauth2.Config, token *oauth2.Token) *Grant {
	scopes := config.Scopes
	if granted, ok := token.Extra("scope").(string); ok && granted != "" {
		scopes = strings.Fields(granted)
	}

	g := &Grant{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     config.Endpoint.TokenURL,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       normalizeScopes(scopes),
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		g.Expiry = &expiry
	}
	return g
}

// DecodeGrant parses a credential blob.
func DecodeGrant(blob string) (*Grant, error) {
	var g Grant
	if err := json.Unmarshal([]byte(blob), &g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGrant, err)
	}
	if g.Token == "" && g.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no access or refresh token", ErrInvalidGrant)
	}
	if g.TokenURI == "" {
		g.TokenURI = google.Endpoint.TokenURL
	}
	g.Scopes = normalizeScopes(g.Scopes)
	return &g, nil
}

// Encode serializes the grant into its blob form. Scopes are written as a
// sorted set so equal grants encode identically.
func (g *Grant) Encode() (string, error) {
	c := *g
	c.Scopes = normalizeScopes(g.Scopes)
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode grant: %w", err)
	}
	return string(data), nil
}

// HasScope reports whether scope was granted.
func (g *Grant) HasScope(scope string) bool {
	_, found := slices.BinarySearch(g.Scopes, scope)
	return found
}

// Config returns the OAuth client configuration the grant was issued to.
func (g *Grant) Config() *oauth2.Config {
	endpoint := google.Endpoint
	endpoint.TokenURL = g.TokenURI
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       slices.Clone(g.Scopes),
	}
}

// OAuthToken returns the grant as an oauth2 token.
func (g *Grant) OAuthToken() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  g.Token,
		TokenType:    "Bearer",
		RefreshToken: g.RefreshToken,
	}
	if g.Expiry != nil {
		t.Expiry = *g.Expiry
	}
	return t
}

// withToken returns a copy of g carrying a renewed token.
func (g *Grant) withToken(t *oauth2.Token) *Grant {
	c := *g
	c.Scopes = slices.Clone(g.Scopes)
	c.Token = t.AccessToken
	if t.RefreshToken != "" {
		c.RefreshToken = t.RefreshToken
	}
	c.Expiry = nil
	if !t.Expiry.IsZero() {
		expiry := t.Expiry.UTC()
		c.Expiry = &expiry
	}
	return &c
}

func normalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
