// Package serverrun wires the shiptrack server process together: logger, job
// store, preflight checks, notifier, workflow engine, and HTTP server. It
// writes a pid file next to the database and shuts down cleanly on SIGINT or
// SIGTERM. Both `shiptrack serve` and the shiptrackd binary call Run.
package serverrun
