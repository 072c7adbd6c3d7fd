package workflow

import (
	"context"
	"errors"

	"shiptrack/internal/access"
	"shiptrack/internal/jobs"
	"shiptrack/internal/logging"
	"shiptrack/internal/notifications"
	"shiptrack/internal/stage"
)

func (e *Engine) publishCreated(ctx context.Context, job *jobs.Job, user access.User) {
	e.publish(ctx, notifications.EventJobCreated, notifications.Payload{
		"jobNo": job.JobNo,
		"jobId": job.ID,
		"user":  displayName(user),
	})
}

func (e *Engine) publishAdvanced(ctx context.Context, job *jobs.Job, from stage.Stage, user access.User) {
	e.publish(ctx, notifications.EventStageAdvanced, notifications.Payload{
		"jobNo":      job.JobNo,
		"jobId":      job.ID,
		"fromStage":  string(from),
		"toStage":    string(job.CurrentStage),
		"stageLabel": job.CurrentStage.Label(),
		"user":       displayName(user),
	})
}

func (e *Engine) publishCompleted(ctx context.Context, job *jobs.Job, user access.User) {
	e.publish(ctx, notifications.EventJobCompleted, notifications.Payload{
		"jobNo": job.JobNo,
		"jobId": job.ID,
		"user":  displayName(user),
	})
}

func (e *Engine) publishStatus(ctx context.Context, job *jobs.Job, user access.User) {
	e.publish(ctx, notifications.EventStatusChanged, notifications.Payload{
		"jobNo":  job.JobNo,
		"jobId":  job.ID,
		"status": string(job.Status),
		"user":   displayName(user),
	})
}

// publish delivers an event after the change has committed. Delivery failures
// never fail the operation.
func (e *Engine) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, e.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("request cancelled, notification not sent", logging.String("event", string(event)))
			return
		}
		logging.WarnWithContext(logger, "notification delivery failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network reachability"),
			logging.String(logging.FieldImpact, "the change was saved but no push notification was sent"),
		)
	}
}

func displayName(user access.User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Email
}
