// Package services defines shared utilities consumed by the workflow engine,
// the job store and the HTTP server.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, acting users, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, with a single mapping
//     from marker to HTTP response code.
package services
