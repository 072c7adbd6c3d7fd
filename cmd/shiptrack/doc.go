// Command shiptrack is the operator and clerk CLI for the shiptrack job
// workflow service.
//
// Workflow commands (job, stage, pipeline) talk to a running server over
// HTTP so that permission checks, history, and notifications always run in
// the server process. User administration and config commands work directly
// against the local config and database. `shiptrack serve` runs the server in
// the foreground.
package main
