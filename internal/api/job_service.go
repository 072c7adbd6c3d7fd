package api

import (
	"context"

	"shiptrack/internal/jobs"
	"shiptrack/internal/services"
	"shiptrack/internal/stage"
)

// JobReader abstracts the persistence reads needed for API queries.
type JobReader interface {
	ListJobs(ctx context.Context, filter jobs.ListFilter) ([]*jobs.Job, error)
	GetJob(ctx context.Context, id int64) (*jobs.Job, error)
	StageRecords(ctx context.Context, jobID int64) ([]*jobs.StageRecord, error)
	StageCounts(ctx context.Context) (map[stage.Stage]int, error)
	StatusCounts(ctx context.Context) (map[jobs.Status]int, error)
}

// JobService exposes read-only job queries returning API DTOs.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns jobs matching filter.
func (s *JobService) List(ctx context.Context, filter jobs.ListFilter) ([]Job, error) {
	if s == nil || s.store == nil {
		return []Job{}, nil
	}
	list, err := s.store.ListJobs(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromJobs(list), nil
}

// Describe fetches a job with all stage records. Unknown ids yield ErrNotFound.
func (s *JobService) Describe(ctx context.Context, id int64) (*JobDetail, error) {
	if s == nil || s.store == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "describe job", "no job store", nil)
	}
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "describe job", "unknown job", nil)
	}
	records, err := s.store.StageRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &JobDetail{Job: FromJob(job), Records: make([]StageRecord, 0, len(records))}
	for _, rec := range records {
		dto, err := FromStageRecord(rec)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "api", "describe job", "encode stage record", err)
		}
		detail.Records = append(detail.Records, dto)
	}
	return detail, nil
}

// Summary returns per-stage and per-status counts.
func (s *JobService) Summary(ctx context.Context) (PipelineSummary, error) {
	if s == nil || s.store == nil {
		return BuildSummary(nil, nil), nil
	}
	stages, err := s.store.StageCounts(ctx)
	if err != nil {
		return PipelineSummary{}, err
	}
	statuses, err := s.store.StatusCounts(ctx)
	if err != nil {
		return PipelineSummary{}, err
	}
	return BuildSummary(stages, statuses), nil
}
