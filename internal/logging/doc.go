// Package logging provides structured logging utilities for plannr.
//
// All components log through log/slog. This package builds the process
// logger from configuration and centralizes attribute names so that log
// lines from the store, the OAuth flow and the HTTP layer line up.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithComponent(slog.Default(), "store")
//	logger.Info("user created", logging.UserHash(email))
//
// # Security Considerations
//
//   - User emails are hashed to prevent PII leakage while allowing correlation
//   - OAuth state values and tokens are never logged directly
package logging
