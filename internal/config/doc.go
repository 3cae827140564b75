// Package config loads plannr's runtime configuration.
//
// Values are resolved in this order, later sources winning:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file
//  3. environment variables (PLANNR_*, GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, METRICS_*)
//  4. command-line flags that were explicitly set (applied by the cmd package)
//
// Example config file:
//
//	http_addr: ":8080"
//	base_url: https://plannr.example.com
//	app_callback_url: plannr://auth/callback
//	state_ttl: 5m
//	google:
//	  client_id: 1234.apps.googleusercontent.com
//	  calendar_id: primary
//	database:
//	  driver: pgx
//	  dsn: postgres://plannr@db/plannr
package config
