// Package jobs persists logistics jobs, their per-stage data records, stage
// history, and the user directory.
//
// The Store runs on SQLite by default (WAL journal, foreign keys, busy
// timeout) and on MySQL when configured. Both dialects share the same portable
// SQL; only the embedded schema differs. Stage moves go through Transition,
// a single conditional UPDATE guarded on the expected current stage, so two
// racing advances can never both succeed.
//
// Stage payloads are typed structs with pointer fields. MergePayload overlays
// a JSON patch on an existing record so absent keys keep their prior values.
// Schema changes bump schemaVersion in schema.go.
package jobs
