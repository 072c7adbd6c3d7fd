package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shiptrack/internal/config"
)

const userAgent = "shiptrack/0.1.0"

// Event identifies a workflow milestone worth notifying about.
type Event string

const (
	EventJobCreated    Event = "job_created"
	EventStageAdvanced Event = "stage_advanced"
	EventJobCompleted  Event = "job_completed"
	EventStatusChanged Event = "status_changed"
	EventTest          Event = "test"
)

// Payload carries event details. Well-known keys: jobNo, jobId, fromStage,
// toStage, stageLabel, status, user.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCreated:    cfg.Notifications.JobCreated,
			EventStageAdvanced: cfg.Notifications.StageAdvanced,
			EventJobCompleted:  cfg.Notifications.JobCompleted,
			EventStatusChanged: cfg.Notifications.StageAdvanced,
			EventTest:          true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	jobNo := payloadString(payload, "jobNo")
	switch event {
	case EventJobCreated:
		return message{
			title: "shiptrack - Job Created",
			body:  fmt.Sprintf("New job %s opened by %s", jobNo, fallback(payloadString(payload, "user"), "unknown user")),
			tags:  []string{"shiptrack", "job", "created"},
		}, true
	case EventStageAdvanced:
		return message{
			title: "shiptrack - Stage Advanced",
			body: fmt.Sprintf("Job %s moved from %s to %s",
				jobNo, payloadString(payload, "fromStage"), fallback(payloadString(payload, "stageLabel"), payloadString(payload, "toStage"))),
			tags: []string{"shiptrack", "stage", payloadString(payload, "toStage")},
		}, true
	case EventJobCompleted:
		return message{
			title:    "shiptrack - Job Completed",
			body:     fmt.Sprintf("Job %s completed and acknowledged", jobNo),
			tags:     []string{"shiptrack", "job", "completed"},
			priority: "high",
		}, true
	case EventStatusChanged:
		return message{
			title: "shiptrack - Status Changed",
			body:  fmt.Sprintf("Job %s is now %s", jobNo, payloadString(payload, "status")),
			tags:  []string{"shiptrack", "status", payloadString(payload, "status")},
		}, true
	case EventTest:
		return message{
			title:    "shiptrack - Test",
			body:     "Notification system test",
			tags:     []string{"shiptrack", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if tags := compactTags(msg.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func compactTags(tags []string) []string {
	out := tags[:0:0]
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
