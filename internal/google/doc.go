// Package google connects plannr to Google's OAuth 2.0 endpoints.
//
// Provider implements the identity provider used by the handshake: it builds
// the consent URL (offline access, forced consent so a refresh token is always
// returned), exchanges authorization codes and resolves the user's email and
// name through the OAuth2 v2 userinfo API.
//
// Grant is the decoded form of the credential blob stored per user. The blob
// is JSON with the keys token, refresh_token, token_uri, client_id,
// client_secret, scopes and expiry. A Grant can mint a TokenSource that
// refreshes the access token when needed and reports whether it did, so
// callers can write the renewed grant back to storage.
package google
