package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"shiptrack/internal/config"
	"shiptrack/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"jobNo": "JOB-1"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "job created",
			event: notifications.EventJobCreated,
			payload: notifications.Payload{
				"jobNo": "JOB-001",
				"user":  "Asha",
			},
			expectTitle:   "shiptrack - Job Created",
			expectMessage: "New job JOB-001 opened by Asha",
			expectTags:    "shiptrack,job,created",
		},
		{
			name:  "stage advanced",
			event: notifications.EventStageAdvanced,
			payload: notifications.Payload{
				"jobNo":      "JOB-002",
				"fromStage":  "stage1",
				"toStage":    "stage2",
				"stageLabel": "Customs & Documentation",
			},
			expectTitle:   "shiptrack - Stage Advanced",
			expectMessage: "Job JOB-002 moved from stage1 to Customs & Documentation",
			expectTags:    "shiptrack,stage,stage2",
		},
		{
			name:           "job completed",
			event:          notifications.EventJobCompleted,
			payload:        notifications.Payload{"jobNo": "JOB-003"},
			expectTitle:    "shiptrack - Job Completed",
			expectMessage:  "Job JOB-003 completed and acknowledged",
			expectTags:     "shiptrack,job,completed",
			expectPriority: "high",
		},
		{
			name:          "status changed",
			event:         notifications.EventStatusChanged,
			payload:       notifications.Payload{"jobNo": "JOB-004", "status": "on_hold"},
			expectTitle:   "shiptrack - Status Changed",
			expectMessage: "Job JOB-004 is now on_hold",
			expectTags:    "shiptrack,status,on_hold",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.JobCreated = true

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobCreated = false
	cfg.Notifications.StageAdvanced = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventJobCreated,
		notifications.EventStageAdvanced,
		notifications.EventStatusChanged,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"jobNo": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"jobNo": "JOB-X"}); err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}
