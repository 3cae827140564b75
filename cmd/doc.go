// Package cmd implements the command-line interface for plannr.
//
// This package provides the following commands:
//   - serve: Start the HTTP API (sign-in, export, calendar sync, syllabi)
//   - migrate: Apply the database schema migrations
//   - export: Render an event list as ICS or CSV without a server
//   - users create|remove: Manage user records
//   - version: Display version information
//
// Settings come from defaults, an optional YAML file (--config), the
// environment and finally flags that were set explicitly.
package cmd
