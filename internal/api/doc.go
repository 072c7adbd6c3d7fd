// Package api defines wire-format types and converters for the HTTP API. It
// translates internal job models into transport-friendly DTOs that the CLI
// and browser clients can render without coupling to internal types.
//
// # Key Types
//
// Job / JobDetail: a job's core fields, optionally with every stage record
// decoded into its stage payload JSON.
//
// PipelineSummary: per-stage and per-status job counts.
//
// ServerStatus: process and database health reported by GET /api/status.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Stage payloads keep their snake_case field
// names and are passed through as json.RawMessage so clients see exactly the
// fields that were stored. Timestamps use RFC3339 with milliseconds.
package api
