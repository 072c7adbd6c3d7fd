package workflow

import (
	"context"
	"log/slog"

	"shiptrack/internal/access"
	"shiptrack/internal/jobs"
	"shiptrack/internal/logging"
	"shiptrack/internal/notifications"
	"shiptrack/internal/services"
	"shiptrack/internal/stage"
)

// JobRepository is the persistence surface the engine depends on.
// *jobs.Store satisfies it.
type JobRepository interface {
	CreateJob(ctx context.Context, jobNo string, createdBy int64, stage1 jobs.Payload) (*jobs.Job, error)
	GetJob(ctx context.Context, id int64) (*jobs.Job, error)
	StageRecord(ctx context.Context, jobID int64, st stage.Stage) (*jobs.StageRecord, error)
	SaveStageRecord(ctx context.Context, rec *jobs.StageRecord) error
	Transition(ctx context.Context, t jobs.Transition) (*jobs.Job, error)
	SetStatus(ctx context.Context, id int64, status jobs.Status) (*jobs.Job, error)
	History(ctx context.Context, jobID int64) ([]jobs.HistoryEntry, error)
}

// UserDirectory resolves user identifiers. GetUser returns nil for unknown ids.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*access.User, error)
}

// Engine applies the stage workflow rules on top of a JobRepository.
type Engine struct {
	repo     JobRepository
	users    UserDirectory
	notifier notifications.Service
	logger   *slog.Logger
}

// NewEngine constructs an engine. A nil notifier disables notifications and a
// nil logger discards log output.
func NewEngine(repo JobRepository, users UserDirectory, notifier notifications.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// CanEdit reports whether user may write data for the given stage.
func (e *Engine) CanEdit(user access.User, st stage.Stage) bool {
	return access.CanEdit(user, st)
}

// ResolveUser looks up the acting user. Unknown ids are unauthenticated.
func (e *Engine) ResolveUser(ctx context.Context, id int64) (access.User, error) {
	if id <= 0 {
		return access.User{}, services.Wrap(services.ErrUnauthenticated, "workflow", "resolve user", "missing user id", nil)
	}
	if e.users == nil {
		return access.User{}, services.Wrap(services.ErrUnauthenticated, "workflow", "resolve user", "no user directory configured", nil)
	}
	user, err := e.users.GetUser(ctx, id)
	if err != nil {
		return access.User{}, err
	}
	if user == nil {
		return access.User{}, services.Wrap(services.ErrUnauthenticated, "workflow", "resolve user", "unknown user", nil)
	}
	return *user, nil
}

// Job returns a job by id, failing with ErrNotFound when it does not exist.
func (e *Engine) Job(ctx context.Context, id int64) (*jobs.Job, error) {
	job, err := e.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, jobNotFound("get job", id)
	}
	return job, nil
}

// History returns the stage advances for a job, oldest first.
func (e *Engine) History(ctx context.Context, id int64) ([]jobs.HistoryEntry, error) {
	if _, err := e.Job(ctx, id); err != nil {
		return nil, err
	}
	return e.repo.History(ctx, id)
}

func (e *Engine) scopedContext(ctx context.Context, jobID int64, st stage.Stage, user access.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if jobID > 0 {
		ctx = services.WithJobID(ctx, jobID)
	}
	if st != "" {
		ctx = services.WithStage(ctx, string(st))
	}
	if user.ID > 0 {
		ctx = services.WithUserID(ctx, user.ID)
	}
	return ctx
}

func jobNotFound(operation string, id int64) error {
	return services.Wrap(services.ErrNotFound, "workflow", operation, jobLabel(id), nil)
}
