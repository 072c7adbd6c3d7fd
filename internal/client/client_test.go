package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shiptrack/internal/access"
	"shiptrack/internal/client"
	"shiptrack/internal/server"
	"shiptrack/internal/services"
	"shiptrack/internal/testsupport"
	"shiptrack/internal/workflow"
)

func newServer(t *testing.T) (*httptest.Server, map[access.Role]access.User) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("tok"))
	store := testsupport.MustOpenStore(t, cfg)
	srv, err := server.New(cfg, workflow.NewEngine(store, store, nil, nil), store, nil)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	users := make(map[access.Role]access.User)
	for _, role := range access.AllRoles() {
		users[role] = testsupport.NewUser(t, store, string(role), role)
	}
	return ts, users
}

func TestClientRoundTrip(t *testing.T) {
	ts, users := newServer(t)
	ctx := context.Background()
	clerk := client.New(ts.URL, users[access.RoleStage1Employee].ID, client.WithToken("tok"))

	created, err := clerk.CreateJob(ctx, "JOB-C1", json.RawMessage(`{"consignee":"Acme"}`))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if created.CurrentStage != "stage1" {
		t.Fatalf("unexpected stage %s", created.CurrentStage)
	}

	if _, err := clerk.SubmitStage(ctx, created.ID, "stage1", json.RawMessage(`{"packages":3}`)); err != nil {
		t.Fatalf("SubmitStage: %v", err)
	}
	advanced, err := clerk.Advance(ctx, created.ID, "stage2")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if advanced.CurrentStage != "stage2" {
		t.Fatalf("expected stage2, got %s", advanced.CurrentStage)
	}

	list, err := clerk.ListJobs(ctx, "stage2", "", 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(list) != 1 || list[0].JobNo != "JOB-C1" {
		t.Fatalf("unexpected list: %+v", list)
	}
	history, err := clerk.History(ctx, created.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}

	supervisor := client.New(ts.URL, users[access.RoleSubadmin].ID, client.WithToken("tok"))
	held, err := supervisor.SetStatus(ctx, created.ID, "on_hold")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if held.Status != "on_hold" {
		t.Fatalf("expected on_hold, got %s", held.Status)
	}
	summary, err := supervisor.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Total != 1 {
		t.Fatalf("expected total 1, got %d", summary.Total)
	}
	status, err := supervisor.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Database.DatabaseReadable {
		t.Fatalf("expected readable database: %+v", status.Database)
	}
}

func TestClientErrorsUnwrapToSentinels(t *testing.T) {
	ts, users := newServer(t)
	ctx := context.Background()

	customer := client.New(ts.URL, users[access.RoleCustomer].ID, client.WithToken("tok"))
	_, err := customer.CreateJob(ctx, "JOB-C2", nil)
	if !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected APIError with 403, got %#v", err)
	}

	if _, err := customer.Job(ctx, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	noToken := client.New(ts.URL, users[access.RoleAdmin].ID)
	if _, err := noToken.Summary(ctx); !errors.Is(err, services.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated without token, got %v", err)
	}
}

func TestClientServerUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	_, err := client.New(addr, 1).Status(context.Background())
	if !errors.Is(err, client.ErrServerUnavailable) {
		t.Fatalf("expected server unavailable, got %v", err)
	}
}
