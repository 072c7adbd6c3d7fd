// Package logs reads the server log file for the CLI.
//
// Tail returns the last lines of a file together with the byte offset where
// reading stopped, and Follow polls from that offset for appended lines until
// its context is cancelled. Lines longer than 1 MiB are rejected.
package logs
