package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a job in a transport-friendly format.
type Job struct {
	ID                int64  `json:"id"`
	JobNo             string `json:"jobNo"`
	CurrentStage      string `json:"currentStage"`
	CurrentStageLabel string `json:"currentStageLabel"`
	Status            string `json:"status"`
	CreatedBy         int64  `json:"createdBy"`
	CreatedAt         string `json:"createdAt,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
}

// StageRecord carries the stored data for one stage of a job.
type StageRecord struct {
	Stage     string          `json:"stage"`
	Label     string          `json:"label"`
	Data      json.RawMessage `json:"data"`
	CreatedBy int64           `json:"createdBy"`
	UpdatedBy int64           `json:"updatedBy"`
	CreatedAt string          `json:"createdAt,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

// JobDetail is a job together with all of its stage records.
type JobDetail struct {
	Job
	Records []StageRecord `json:"records"`
}

// HistoryEntry is one recorded stage advance.
type HistoryEntry struct {
	PreviousStage string `json:"previousStage"`
	NewStage      string `json:"newStage"`
	UserID        int64  `json:"userId"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

// StageCount is the number of jobs sitting at a stage.
type StageCount struct {
	Stage string `json:"stage"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PipelineSummary aggregates job counts for dashboards.
type PipelineSummary struct {
	Total    int            `json:"total"`
	Stages   []StageCount   `json:"stages"`
	Statuses map[string]int `json:"statuses"`
}

// DatabaseHealth mirrors jobs.DatabaseHealth for transport.
type DatabaseHealth struct {
	Driver           string `json:"driver"`
	DBPath           string `json:"dbPath,omitempty"`
	DatabaseReadable bool   `json:"databaseReadable"`
	SchemaVersion    int    `json:"schemaVersion"`
	TotalJobs        int    `json:"totalJobs"`
	TotalUsers       int    `json:"totalUsers"`
	IntegrityCheck   bool   `json:"integrityCheck"`
	Error            string `json:"error,omitempty"`
}

// ServerStatus is the payload of GET /api/status.
type ServerStatus struct {
	Running  bool            `json:"running"`
	PID      int             `json:"pid"`
	Started  string          `json:"started,omitempty"`
	Uptime   string          `json:"uptime,omitempty"`
	Database DatabaseHealth  `json:"database"`
	Summary  PipelineSummary `json:"summary"`
}

// User describes a directory entry.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// CreateJobRequest is the body of POST /api/pipeline/jobs.
type CreateJobRequest struct {
	JobNo  string          `json:"jobNo"`
	Stage1 json.RawMessage `json:"stage1,omitempty"`
}

// AdvanceStageRequest is the body of POST .../advance-stage.
type AdvanceStageRequest struct {
	TargetStage string `json:"targetStage"`
}

// UpdateStatusRequest is the body of PUT .../status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// JobListResponse wraps the job list endpoint result.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// HistoryResponse wraps the job history endpoint result.
type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
