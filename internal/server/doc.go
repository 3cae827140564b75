// Package server provides the HTTP surface of plannr.
//
// # Key Components
//
// Server routes the public API onto the core packages:
//   - GET /auth/google starts the Google sign-in handshake
//   - GET /auth/callback completes it and redirects to the app callback URL
//   - POST /export renders an event list as an ICS or CSV attachment
//   - POST /calendar creates the events in the user's Google Calendar
//   - PUT and GET /syllabi store and return the user's saved event list
//   - POST /syllabus turns free text into validated events
//
// Every error leaves the server as JSON of the form {"error": "..."}.
// Requests are wrapped with panic recovery, request metrics and debug
// logging.
//
// HealthChecker serves the /healthz, /readyz and /healthz/detailed probes.
// Readiness includes a database ping when a Pinger is configured.
//
// MetricsServer exposes the Prometheus registry of the instrumentation
// provider on a dedicated port so that operational metrics stay off the
// public listener.
package server
