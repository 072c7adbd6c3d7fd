// Package server exposes the workflow engine over HTTP.
//
// Requests pass a bearer token check (when paths.api_token is set), receive a
// correlation id from X-Request-ID or a fresh uuid, and resolve the acting
// user from X-User-ID through the engine's user directory. Handlers translate
// JSON bodies into engine calls and map the engine's error classes to HTTP
// status codes in one place (writeError). The server also owns the
// single-instance lock so two processes never serve the same data directory.
package server
