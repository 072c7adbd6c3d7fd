// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Each event kind can be switched off individually. Callers treat
// delivery as best effort; the workflow engine logs and swallows failures.
package notifications
