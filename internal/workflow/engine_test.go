package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"shiptrack/internal/access"
	"shiptrack/internal/jobs"
	"shiptrack/internal/notifications"
	"shiptrack/internal/services"
	"shiptrack/internal/stage"
	"shiptrack/internal/testsupport"
	"shiptrack/internal/workflow"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingNotifier) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

type fixture struct {
	store    *jobs.Store
	engine   *workflow.Engine
	notifier *recordingNotifier
	users    map[access.Role]access.User
	admin    access.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	f := &fixture{
		store:    store,
		engine:   workflow.NewEngine(store, store, notifier, nil),
		notifier: notifier,
		users:    make(map[access.Role]access.User),
	}
	for _, role := range access.AllRoles() {
		f.users[role] = testsupport.NewUser(t, store, string(role), role)
	}
	f.admin = f.users[access.RoleAdmin]
	return f
}

func (f *fixture) createJob(t *testing.T, jobNo string) *jobs.Job {
	t.Helper()
	job, err := f.engine.CreateJob(context.Background(), f.users[access.RoleStage1Employee], jobNo,
		json.RawMessage(`{"consignee":"Acme Imports","shipment_type":"import"}`))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job
}

func (f *fixture) moveTo(t *testing.T, job *jobs.Job, target stage.Stage) *jobs.Job {
	t.Helper()
	ctx := context.Background()
	current, err := f.engine.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	for current.CurrentStage != target {
		next, ok := current.CurrentStage.Next()
		if !ok {
			t.Fatalf("cannot reach %s from %s", target, current.CurrentStage)
		}
		current, err = f.engine.AdvanceStage(ctx, job.ID, next, f.admin)
		if err != nil {
			t.Fatalf("AdvanceStage(%s): %v", next, err)
		}
	}
	return current
}

func TestStageOwnershipScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clerk1 := f.users[access.RoleStage1Employee]
	clerk2 := f.users[access.RoleStage2Employee]

	job := f.createJob(t, "JOB-100")

	updated, err := f.engine.SubmitStageData(ctx, job.ID, stage.Stage1,
		json.RawMessage(`{"invoice_no":"INV-9","packages":12}`), clerk1)
	if err != nil {
		t.Fatalf("SubmitStageData: %v", err)
	}
	if updated.CurrentStage != stage.Stage1 {
		t.Fatalf("submit moved job to %s", updated.CurrentStage)
	}

	updated, err = f.engine.AdvanceStage(ctx, job.ID, stage.Stage2, clerk1)
	if err != nil {
		t.Fatalf("AdvanceStage stage2: %v", err)
	}
	if updated.CurrentStage != stage.Stage2 {
		t.Fatalf("expected stage2, got %s", updated.CurrentStage)
	}

	if _, err := f.engine.AdvanceStage(ctx, job.ID, stage.Stage3, clerk1); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden for stage1 clerk on stage2 job, got %v", err)
	}

	updated, err = f.engine.AdvanceStage(ctx, job.ID, stage.Stage3, clerk2)
	if err != nil {
		t.Fatalf("AdvanceStage stage3: %v", err)
	}
	if updated.CurrentStage != stage.Stage3 {
		t.Fatalf("expected stage3, got %s", updated.CurrentStage)
	}

	history, err := f.engine.History(ctx, job.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[1].PreviousStage != stage.Stage2 || history[1].NewStage != stage.Stage3 || history[1].UserID != clerk2.ID {
		t.Fatalf("unexpected history entry: %+v", history[1])
	}
}

func TestCustomerCannotSubmitStage1(t *testing.T) {
	f := newFixture(t)
	customer := f.users[access.RoleCustomer]
	job := f.createJob(t, "JOB-101")

	for _, target := range []stage.Stage{stage.Stage1, stage.Stage2, stage.Stage3, stage.Stage4} {
		current := f.moveTo(t, job, target)
		_, err := f.engine.SubmitStageData(context.Background(), job.ID, stage.Stage1,
			json.RawMessage(`{"remarks":"nope"}`), customer)
		if !errors.Is(err, services.ErrForbidden) {
			t.Fatalf("current %s: expected forbidden, got %v", current.CurrentStage, err)
		}
	}
}

func TestAdvanceRejectsSkipsAndBackwardMoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.createJob(t, "JOB-102")
	f.moveTo(t, job, stage.Stage2)

	tests := []struct {
		name   string
		target stage.Stage
	}{
		{name: "skip stage3", target: stage.Stage4},
		{name: "skip to completed", target: stage.Completed},
		{name: "backward", target: stage.Stage1},
		{name: "same stage", target: stage.Stage2},
		{name: "unknown", target: stage.Stage("stage9")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.AdvanceStage(ctx, job.ID, tc.target, f.admin)
			if !errors.Is(err, services.ErrInvalidTransition) {
				t.Fatalf("expected invalid transition, got %v", err)
			}
		})
	}

	current, err := f.engine.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if current.CurrentStage != stage.Stage2 {
		t.Fatalf("rejected advances moved job to %s", current.CurrentStage)
	}
}

func TestSubmitMergesWithPriorState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clerk3 := f.users[access.RoleStage3Employee]
	job := f.createJob(t, "JOB-103")

	if _, err := f.engine.SubmitStageData(ctx, job.ID, stage.Stage3,
		json.RawMessage(`{"transporter":"RoadRunner","containers":[{"container_no":"MSCU1234567","size":"40"}]}`), clerk3); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.engine.SubmitStageData(ctx, job.ID, stage.Stage3,
		json.RawMessage(`{"delivery_location":"Warehouse 7"}`), f.admin); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	rec, err := f.store.StageRecord(ctx, job.ID, stage.Stage3)
	if err != nil {
		t.Fatalf("StageRecord: %v", err)
	}
	data := rec.Data.(*jobs.Stage3Data)
	if data.Transporter == nil || *data.Transporter != "RoadRunner" {
		t.Fatalf("transporter lost: %+v", data.Transporter)
	}
	if data.DeliveryLocation == nil || *data.DeliveryLocation != "Warehouse 7" {
		t.Fatalf("delivery location not merged: %+v", data.DeliveryLocation)
	}
	if len(data.Containers) != 1 || data.Containers[0].ContainerNo != "MSCU1234567" {
		t.Fatalf("containers lost: %+v", data.Containers)
	}
	if rec.CreatedBy != clerk3.ID || rec.UpdatedBy != f.admin.ID {
		t.Fatalf("unexpected stamps created_by=%d updated_by=%d", rec.CreatedBy, rec.UpdatedBy)
	}

	current, err := f.engine.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if current.CurrentStage != stage.Stage1 {
		t.Fatalf("ahead-of-stage submit moved job to %s", current.CurrentStage)
	}
}

func TestSubmitStage4WithAcknowledgeDateDoesNotComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.moveTo(t, f.createJob(t, "JOB-104"), stage.Stage4)

	updated, err := f.engine.SubmitStageData(ctx, job.ID, stage.Stage4,
		json.RawMessage(`{"bill_no":"B-1","acknowledge_date":"2026-03-01"}`), f.users[access.RoleCustomer])
	if err != nil {
		t.Fatalf("SubmitStageData: %v", err)
	}
	if updated.CurrentStage != stage.Stage4 || updated.Status != jobs.StatusActive {
		t.Fatalf("submit changed job: stage=%s status=%s", updated.CurrentStage, updated.Status)
	}
}

func TestSubmitValidationAndMissingJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.createJob(t, "JOB-105")

	tests := []struct {
		name    string
		jobID   int64
		stage   stage.Stage
		payload string
		want    error
	}{
		{name: "bad date", jobID: job.ID, stage: stage.Stage1, payload: `{"job_date":"03/01/2026"}`, want: services.ErrValidation},
		{name: "unknown field", jobID: job.ID, stage: stage.Stage2, payload: `{"colour":"red"}`, want: services.ErrValidation},
		{name: "negative amount", jobID: job.ID, stage: stage.Stage4, payload: `{"bill_amount":-5}`, want: services.ErrValidation},
		{name: "missing job", jobID: job.ID + 999, stage: stage.Stage1, payload: `{}`, want: services.ErrNotFound},
		{name: "completed stage", jobID: job.ID, stage: stage.Completed, payload: `{}`, want: services.ErrForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.SubmitStageData(ctx, tc.jobID, tc.stage, json.RawMessage(tc.payload), f.admin)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCompleteStage4(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.users[access.RoleCustomer]
	job := f.createJob(t, "JOB-106")

	if _, err := f.engine.CompleteStage4(ctx, job.ID, json.RawMessage(`{"acknowledge_date":"2026-03-01"}`), f.users[access.RoleStage1Employee]); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden for stage1 clerk, got %v", err)
	}
	if _, err := f.engine.CompleteStage4(ctx, job.ID, json.RawMessage(`{"acknowledge_date":"2026-03-01"}`), customer); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition at stage1, got %v", err)
	}

	f.moveTo(t, job, stage.Stage4)
	if _, err := f.engine.CompleteStage4(ctx, job.ID, json.RawMessage(`{"bill_no":"B-7"}`), customer); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without acknowledge_date, got %v", err)
	}

	completed, err := f.engine.CompleteStage4(ctx, job.ID,
		json.RawMessage(`{"total_amount":1180.5,"acknowledge_date":"2026-03-02"}`), customer)
	if err != nil {
		t.Fatalf("CompleteStage4: %v", err)
	}
	if completed.CurrentStage != stage.Completed || completed.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed job, got stage=%s status=%s", completed.CurrentStage, completed.Status)
	}

	rec, err := f.store.StageRecord(ctx, job.ID, stage.Stage4)
	if err != nil {
		t.Fatalf("StageRecord: %v", err)
	}
	billing := rec.Data.(*jobs.Stage4Data)
	if billing.BillNo != nil {
		t.Fatalf("rejected payload leaked into record: %v", *billing.BillNo)
	}
	if !billing.Acknowledged() || billing.TotalAmount == nil || *billing.TotalAmount != 1180.5 {
		t.Fatalf("billing record not persisted with completion: %+v", billing)
	}

	history, err := f.engine.History(ctx, job.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	last := history[len(history)-1]
	if last.PreviousStage != stage.Stage4 || last.NewStage != stage.Completed || last.UserID != customer.ID {
		t.Fatalf("unexpected completion history: %+v", last)
	}

	if _, err := f.engine.SubmitStageData(ctx, job.ID, stage.Stage4, json.RawMessage(`{"remarks":"late"}`), f.admin); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected completed job to reject edits, got %v", err)
	}
	if _, err := f.engine.CompleteStage4(ctx, job.ID, json.RawMessage(`{"acknowledge_date":"2026-03-02"}`), customer); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected second completion to fail, got %v", err)
	}
}

func TestAdvanceToCompletedSetsStatus(t *testing.T) {
	f := newFixture(t)
	job := f.moveTo(t, f.createJob(t, "JOB-107"), stage.Completed)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("expected status completed, got %s", job.Status)
	}
	events := f.notifier.Events()
	if got := events[len(events)-1]; got != notifications.EventJobCompleted {
		t.Fatalf("expected final event job_completed, got %s", got)
	}
}

func TestNotificationFailureDoesNotFailAdvance(t *testing.T) {
	f := newFixture(t)
	job := f.createJob(t, "JOB-108")
	f.notifier.err = errors.New("ntfy unreachable")

	updated, err := f.engine.AdvanceStage(context.Background(), job.ID, stage.Stage2, f.users[access.RoleStage1Employee])
	if err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	if updated.CurrentStage != stage.Stage2 {
		t.Fatalf("expected stage2, got %s", updated.CurrentStage)
	}

	events := f.notifier.Events()
	want := []notifications.Event{notifications.EventJobCreated, notifications.EventStageAdvanced}
	if len(events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, events)
		}
	}
}

func TestConcurrentAdvanceSingleWinner(t *testing.T) {
	f := newFixture(t)
	job := f.createJob(t, "JOB-109")

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.AdvanceStage(context.Background(), job.ID, stage.Stage2, f.admin)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidTransition):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != racers-1 {
		t.Fatalf("expected 1 winner and %d losers, got %d/%d", racers-1, wins, conflicts)
	}
	history, err := f.engine.History(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected a single history entry, got %d", len(history))
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.createJob(t, "JOB-110")
	subadmin := f.users[access.RoleSubadmin]

	if _, err := f.engine.UpdateStatus(ctx, job.ID, jobs.StatusOnHold, f.users[access.RoleStage1Employee]); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden for clerk, got %v", err)
	}
	if _, err := f.engine.UpdateStatus(ctx, job.ID, jobs.StatusCompleted, subadmin); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for manual completion, got %v", err)
	}
	if _, err := f.engine.UpdateStatus(ctx, job.ID, jobs.Status("archived"), subadmin); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}

	updated, err := f.engine.UpdateStatus(ctx, job.ID, jobs.StatusOnHold, subadmin)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != jobs.StatusOnHold || updated.CurrentStage != stage.Stage1 {
		t.Fatalf("unexpected job after status change: %+v", updated)
	}

	f.moveTo(t, job, stage.Completed)
	if _, err := f.engine.UpdateStatus(ctx, job.ID, jobs.StatusActive, subadmin); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected completed job to keep its status, got %v", err)
	}
}

func TestCreateJobRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.CreateJob(ctx, f.users[access.RoleCustomer], "JOB-200", nil); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden for customer, got %v", err)
	}
	if _, err := f.engine.CreateJob(ctx, f.admin, "   ", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank job number, got %v", err)
	}
	if _, err := f.engine.CreateJob(ctx, f.admin, "JOB-200", json.RawMessage(`{"transport_mode":"rail"}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for bad enum, got %v", err)
	}

	job, err := f.engine.CreateJob(ctx, f.admin, " JOB-200 ", nil)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.JobNo != "JOB-200" || job.CurrentStage != stage.Stage1 || job.Status != jobs.StatusActive || job.CreatedBy != f.admin.ID {
		t.Fatalf("unexpected job: %+v", job)
	}
	if _, err := f.engine.CreateJob(ctx, f.admin, "JOB-200", nil); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict for duplicate job number, got %v", err)
	}
}

func TestResolveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.engine.ResolveUser(ctx, f.admin.ID)
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if user.Role != access.RoleAdmin {
		t.Fatalf("unexpected user: %+v", user)
	}
	for _, id := range []int64{0, -1, 99999} {
		if _, err := f.engine.ResolveUser(ctx, id); !errors.Is(err, services.ErrUnauthenticated) {
			t.Fatalf("id %d: expected unauthenticated, got %v", id, err)
		}
	}
	if _, err := f.engine.Job(ctx, 4242); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.engine.History(ctx, 4242); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for history, got %v", err)
	}
}
