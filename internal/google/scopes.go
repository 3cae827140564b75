package google

import (
	calendar "google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
)

// DefaultOAuthScopes are the scopes requested during sign-in.
//
// The scopes provide access to:
//   - OpenID Connect identity (email and profile, for the user record key)
//   - Google Calendar: create events only
var DefaultOAuthScopes = []string{
	oauth2api.OpenIDScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
	calendar.CalendarEventsScope,
}
