// Package oauth implements plannr's side of the three-legged OAuth handshake.
//
// StateStore keeps the anti-forgery state values handed out when a handshake
// starts. Each value is single-use and expires after a fixed TTL; expired
// entries are swept lazily whenever a new state is issued, so no background
// goroutine is needed.
//
// Flow ties the StateStore to an identity Provider and a CredentialStore:
// Begin issues a state and returns the provider's consent URL, Complete
// consumes the state, exchanges the authorization code, resolves the user's
// identity and persists the resulting grant.
package oauth
