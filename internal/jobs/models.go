package jobs

import (
	"strings"
	"time"

	"shiptrack/internal/stage"
)

// Status is the administrative state of a job, orthogonal to its stage.
type Status string

const (
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusActive,
	StatusOnHold,
	StatusCompleted,
	StatusCancelled,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Job is the core record tracked through the workflow.
type Job struct {
	ID           int64
	JobNo        string
	CurrentStage stage.Stage
	Status       Status
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsCompleted reports whether the job reached the terminal stage.
func (j *Job) IsCompleted() bool {
	return j != nil && j.CurrentStage == stage.Completed
}

// StageRecord holds the data entered for one stage of a job.
type StageRecord struct {
	JobID     int64
	Stage     stage.Stage
	Data      Payload
	CreatedBy int64
	UpdatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryEntry records one stage advance.
type HistoryEntry struct {
	ID            int64
	JobID         int64
	PreviousStage stage.Stage
	NewStage      stage.Stage
	UserID        int64
	CreatedAt     time.Time
}

// ListFilter narrows ListJobs results. Zero values match everything.
type ListFilter struct {
	Stage  stage.Stage
	Status Status
	Limit  int
}

// Transition describes an atomic stage move. The move only applies while the
// job still sits at From; Record and Status are written in the same
// transaction when set.
type Transition struct {
	JobID  int64
	From   stage.Stage
	To     stage.Stage
	UserID int64
	Record *StageRecord
	Status Status
}

// DatabaseHealth captures diagnostic information about the jobs database.
type DatabaseHealth struct {
	Driver           string
	DBPath           string
	DatabaseReadable bool
	SchemaVersion    int
	TotalJobs        int
	TotalUsers       int
	IntegrityCheck   bool
	Error            string
}
