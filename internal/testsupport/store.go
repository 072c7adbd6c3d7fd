package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"shiptrack/internal/access"
	"shiptrack/internal/config"
	"shiptrack/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewUser registers a user with the given role and returns it.
func NewUser(t testing.TB, store *jobs.Store, name string, role access.Role) access.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), access.User{
		Name:  name,
		Email: name + "@shiptrack.test",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("store.CreateUser: %v", err)
	}
	return *user
}

// NewJob creates a job at stage1 with an empty stage1 record.
func NewJob(t testing.TB, store *jobs.Store, jobNo string, createdBy int64) *jobs.Job {
	t.Helper()

	job, err := store.CreateJob(context.Background(), jobNo, createdBy, &jobs.Stage1Data{})
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}

// JSON marshals v or fails the test.
func JSON(t testing.TB, v any) json.RawMessage {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
