package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"shiptrack/internal/access"
	"shiptrack/internal/jobs"
	"shiptrack/internal/logging"
	"shiptrack/internal/services"
	"shiptrack/internal/stage"
)

// CreateJob opens a new job at stage1 with its initial shipment record.
func (e *Engine) CreateJob(ctx context.Context, user access.User, jobNo string, payload json.RawMessage) (*jobs.Job, error) {
	ctx = e.scopedContext(ctx, 0, stage.Stage1, user)
	if !access.CanEdit(user, stage.Stage1) {
		return nil, forbidden("create job", user, stage.Stage1)
	}
	normalized, err := jobs.ValidateJobNo(jobNo)
	if err != nil {
		return nil, err
	}
	data, err := jobs.DecodePayload(stage.Stage1, payload)
	if err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	job, err := e.repo.CreateJob(ctx, normalized, user.ID, data)
	if err != nil {
		return nil, err
	}
	ctx = services.WithJobID(ctx, job.ID)
	logging.WithContext(ctx, e.logger).Info("job created",
		logging.String(logging.FieldJobNo, job.JobNo),
		logging.String(logging.FieldEventType, "job_created"),
	)
	e.publishCreated(ctx, job, user)
	return job, nil
}

// SubmitStageData merges payload into the job's record for st. Fields present
// in payload overwrite, absent fields keep their prior value. The job's
// current stage is never changed here.
func (e *Engine) SubmitStageData(ctx context.Context, jobID int64, st stage.Stage, payload json.RawMessage, user access.User) (*jobs.Job, error) {
	ctx = e.scopedContext(ctx, jobID, st, user)
	if !access.CanEdit(user, st) {
		return nil, forbidden("submit stage data", user, st)
	}
	job, err := e.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsCompleted() {
		return nil, services.Wrap(services.ErrInvalidTransition, "workflow", "submit stage data",
			fmt.Sprintf("%s is completed", jobLabel(jobID)), nil)
	}

	rec, err := e.mergeRecord(ctx, job.ID, st, payload, user)
	if err != nil {
		return nil, err
	}
	if err := e.repo.SaveStageRecord(ctx, rec); err != nil {
		return nil, err
	}

	logging.WithContext(ctx, e.logger).Info("stage data saved",
		logging.String(logging.FieldJobNo, job.JobNo),
		logging.String(logging.FieldEventType, "stage_data_saved"),
	)
	return e.Job(ctx, job.ID)
}

// CompleteStage4 saves the billing record and finishes the job in a single
// transaction. The merged record must carry an acknowledge date and the job
// must currently sit at stage4.
func (e *Engine) CompleteStage4(ctx context.Context, jobID int64, payload json.RawMessage, user access.User) (*jobs.Job, error) {
	ctx = e.scopedContext(ctx, jobID, stage.Stage4, user)
	if !access.CanEdit(user, stage.Stage4) {
		return nil, forbidden("complete job", user, stage.Stage4)
	}
	job, err := e.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsCompleted() {
		return nil, services.Wrap(services.ErrInvalidTransition, "workflow", "complete job",
			fmt.Sprintf("%s is already completed", jobLabel(jobID)), nil)
	}

	rec, err := e.mergeRecord(ctx, job.ID, stage.Stage4, payload, user)
	if err != nil {
		return nil, err
	}
	billing, _ := rec.Data.(*jobs.Stage4Data)
	if !billing.Acknowledged() {
		return nil, services.Wrap(services.ErrValidation, "workflow", "complete job",
			"acknowledge_date is required to complete a job", nil)
	}
	if job.CurrentStage != stage.Stage4 {
		return nil, services.Wrap(services.ErrInvalidTransition, "workflow", "complete job",
			fmt.Sprintf("%s is at %s, not %s", jobLabel(jobID), job.CurrentStage, stage.Stage4), nil)
	}

	updated, err := e.repo.Transition(ctx, jobs.Transition{
		JobID:  job.ID,
		From:   stage.Stage4,
		To:     stage.Completed,
		UserID: user.ID,
		Record: rec,
		Status: jobs.StatusCompleted,
	})
	if err != nil {
		return nil, err
	}

	logging.WithContext(ctx, e.logger).Info("job completed",
		logging.String(logging.FieldJobNo, updated.JobNo),
		logging.String("acknowledge_date", *billing.AcknowledgeDate),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	e.publishCompleted(ctx, updated, user)
	return updated, nil
}

func (e *Engine) mergeRecord(ctx context.Context, jobID int64, st stage.Stage, payload json.RawMessage, user access.User) (*jobs.StageRecord, error) {
	existing, err := e.repo.StageRecord(ctx, jobID, st)
	if err != nil {
		return nil, err
	}

	var base jobs.Payload
	rec := &jobs.StageRecord{JobID: jobID, Stage: st, CreatedBy: user.ID}
	if existing != nil {
		base = existing.Data
		rec.CreatedBy = existing.CreatedBy
		rec.CreatedAt = existing.CreatedAt
	}
	merged, err := jobs.MergePayload(st, base, payload)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	rec.Data = merged
	rec.UpdatedBy = user.ID
	return rec, nil
}

func forbidden(operation string, user access.User, st stage.Stage) error {
	return services.Wrap(services.ErrForbidden, "workflow", operation,
		fmt.Sprintf("user %d (%s) may not edit %s", user.ID, user.Role, st), nil)
}

func jobLabel(id int64) string {
	return fmt.Sprintf("job %d", id)
}
