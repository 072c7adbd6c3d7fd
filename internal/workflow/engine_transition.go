package workflow

import (
	"context"
	"fmt"

	"shiptrack/internal/access"
	"shiptrack/internal/jobs"
	"shiptrack/internal/logging"
	"shiptrack/internal/services"
	"shiptrack/internal/stage"
)

// AdvanceStage moves a job to target, which must be the immediate successor
// of its current stage. The user must own the current stage or be a
// supervisor. Reaching the terminal stage also marks the job completed.
func (e *Engine) AdvanceStage(ctx context.Context, jobID int64, target stage.Stage, user access.User) (*jobs.Job, error) {
	ctx = e.scopedContext(ctx, jobID, target, user)
	job, err := e.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	current := job.CurrentStage
	if !access.CanAdvance(user, current) {
		return nil, services.Wrap(services.ErrForbidden, "workflow", "advance stage",
			fmt.Sprintf("user %d (%s) may not advance %s", user.ID, user.Role, current), nil)
	}
	if !target.IsSuccessorOf(current) {
		return nil, services.Wrap(services.ErrInvalidTransition, "workflow", "advance stage",
			fmt.Sprintf("cannot move %s from %s to %s", jobLabel(jobID), current, target), nil)
	}

	transition := jobs.Transition{
		JobID:  job.ID,
		From:   current,
		To:     target,
		UserID: user.ID,
	}
	if target.Terminal() {
		transition.Status = jobs.StatusCompleted
	}
	updated, err := e.repo.Transition(ctx, transition)
	if err != nil {
		return nil, err
	}

	logging.WithContext(ctx, e.logger).Info("stage advanced",
		logging.String(logging.FieldJobNo, updated.JobNo),
		logging.String("from_stage", string(current)),
		logging.String("to_stage", string(target)),
		logging.String(logging.FieldEventType, "stage_advanced"),
	)
	if target.Terminal() {
		e.publishCompleted(ctx, updated, user)
	} else {
		e.publishAdvanced(ctx, updated, current, user)
	}
	return updated, nil
}

// UpdateStatus changes the administrative status of a job. Only supervisors
// may do this, completed is reserved for the workflow, and completed jobs are
// frozen.
func (e *Engine) UpdateStatus(ctx context.Context, jobID int64, status jobs.Status, user access.User) (*jobs.Job, error) {
	ctx = e.scopedContext(ctx, jobID, "", user)
	if !access.IsSupervisor(user) {
		return nil, services.Wrap(services.ErrForbidden, "workflow", "update status",
			fmt.Sprintf("user %d (%s) may not change job status", user.ID, user.Role), nil)
	}
	if _, ok := jobs.ParseStatus(string(status)); !ok {
		return nil, services.Wrap(services.ErrValidation, "workflow", "update status",
			fmt.Sprintf("unknown status %q", status), nil)
	}
	if status == jobs.StatusCompleted {
		return nil, services.Wrap(services.ErrValidation, "workflow", "update status",
			"completed is set by finishing the workflow", nil)
	}
	job, err := e.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsCompleted() || job.Status == jobs.StatusCompleted {
		return nil, services.Wrap(services.ErrInvalidTransition, "workflow", "update status",
			fmt.Sprintf("%s is completed", jobLabel(jobID)), nil)
	}
	if job.Status == status {
		return job, nil
	}

	updated, err := e.repo.SetStatus(ctx, job.ID, status)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, e.logger).Info("job status changed",
		logging.String(logging.FieldJobNo, updated.JobNo),
		logging.String("previous_status", string(job.Status)),
		logging.String("status", string(status)),
		logging.String(logging.FieldEventType, "status_changed"),
	)
	e.publishStatus(ctx, updated, user)
	return updated, nil
}
