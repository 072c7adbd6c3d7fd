// Package config loads, normalizes, and validates shiptrack configuration.
//
// Configuration is read from TOML ($SHIPTRACK_CONFIG, ~/.config/shiptrack/config.toml
// or ./shiptrack.toml) on top of repository defaults. A handful of secrets may
// be supplied through environment variables instead: SHIPTRACK_API_TOKEN,
// SHIPTRACK_DB_DSN and SHIPTRACK_NTFY_TOPIC.
package config
