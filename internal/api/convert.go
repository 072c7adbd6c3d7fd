package api

import (
	"encoding/json"
	"time"

	"shiptrack/internal/access"
	"shiptrack/internal/jobs"
	"shiptrack/internal/stage"
)

// FromJob converts a job record to its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:                job.ID,
		JobNo:             job.JobNo,
		CurrentStage:      string(job.CurrentStage),
		CurrentStageLabel: job.CurrentStage.Label(),
		Status:            string(job.Status),
		CreatedBy:         job.CreatedBy,
		CreatedAt:         formatTimestamp(job.CreatedAt),
		UpdatedAt:         formatTimestamp(job.UpdatedAt),
	}
}

// FromJobs converts a slice of jobs into API DTOs. The result is never nil so
// list endpoints encode an empty array.
func FromJobs(list []*jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStageRecord converts a stage record, encoding its typed payload.
func FromStageRecord(rec *jobs.StageRecord) (StageRecord, error) {
	if rec == nil {
		return StageRecord{}, nil
	}
	data := json.RawMessage("{}")
	if rec.Data != nil {
		encoded, err := json.Marshal(rec.Data)
		if err != nil {
			return StageRecord{}, err
		}
		data = encoded
	}
	return StageRecord{
		Stage:     string(rec.Stage),
		Label:     rec.Stage.Label(),
		Data:      data,
		CreatedBy: rec.CreatedBy,
		UpdatedBy: rec.UpdatedBy,
		CreatedAt: formatTimestamp(rec.CreatedAt),
		UpdatedAt: formatTimestamp(rec.UpdatedAt),
	}, nil
}

// FromHistory converts stage history entries.
func FromHistory(entries []jobs.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, HistoryEntry{
			PreviousStage: string(entry.PreviousStage),
			NewStage:      string(entry.NewStage),
			UserID:        entry.UserID,
			CreatedAt:     formatTimestamp(entry.CreatedAt),
		})
	}
	return out
}

// FromUser converts a directory user.
func FromUser(user *access.User) User {
	if user == nil {
		return User{}
	}
	return User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		IsAdmin:   user.IsAdmin,
		CreatedAt: formatTimestamp(user.CreatedAt),
	}
}

// FromDatabaseHealth converts store diagnostics.
func FromDatabaseHealth(h jobs.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		Driver:           h.Driver,
		DBPath:           h.DBPath,
		DatabaseReadable: h.DatabaseReadable,
		SchemaVersion:    h.SchemaVersion,
		TotalJobs:        h.TotalJobs,
		TotalUsers:       h.TotalUsers,
		IntegrityCheck:   h.IntegrityCheck,
		Error:            h.Error,
	}
}

// BuildSummary folds stage and status counts into a PipelineSummary with
// stages in workflow order.
func BuildSummary(stages map[stage.Stage]int, statuses map[jobs.Status]int) PipelineSummary {
	summary := PipelineSummary{
		Stages:   make([]StageCount, 0, len(stage.All())),
		Statuses: make(map[string]int, len(jobs.AllStatuses())),
	}
	for _, st := range stage.All() {
		count := stages[st]
		summary.Total += count
		summary.Stages = append(summary.Stages, StageCount{
			Stage: string(st),
			Label: st.Label(),
			Count: count,
		})
	}
	for _, status := range jobs.AllStatuses() {
		summary.Statuses[string(status)] = statuses[status]
	}
	return summary
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
