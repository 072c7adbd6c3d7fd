package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"shiptrack/internal/api"
	"shiptrack/internal/config"
	"shiptrack/internal/services"
)

const userAgent = "shiptrack-cli/0.1.0"

// ErrServerUnavailable reports that no server answered at the configured address.
var ErrServerUnavailable = errors.New("shiptrack server unavailable")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// Unwrap maps the error kind back to its services sentinel.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case "unauthenticated":
		return services.ErrUnauthenticated
	case "forbidden":
		return services.ErrForbidden
	case "not_found":
		return services.ErrNotFound
	case "conflict":
		return services.ErrConflict
	case "invalid_transition":
		return services.ErrInvalidTransition
	case "validation":
		return services.ErrValidation
	case "persistence":
		return services.ErrPersistence
	}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return services.ErrUnauthenticated
	case http.StatusForbidden:
		return services.ErrForbidden
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrConflict
	}
	return nil
}

// Client calls the shiptrack HTTP API on behalf of one user.
type Client struct {
	baseURL string
	token   string
	userID  int64
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New constructs a client for baseURL acting as userID.
func New(baseURL string, userID int64, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		userID:  userID,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds a client for the server described by cfg.
func FromConfig(cfg *config.Config, userID int64) *Client {
	return New("http://"+cfg.Paths.APIBind, userID, WithToken(cfg.Paths.APIToken))
}

// Status reports server and database health.
func (c *Client) Status(ctx context.Context) (*api.ServerStatus, error) {
	var out api.ServerStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary returns pipeline counts.
func (c *Client) Summary(ctx context.Context) (*api.PipelineSummary, error) {
	var out api.PipelineSummary
	if err := c.do(ctx, http.MethodGet, "/api/pipeline/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs returns jobs filtered by stage and status. Empty values match all.
func (c *Client) ListJobs(ctx context.Context, stage, status string, limit int) ([]api.Job, error) {
	query := url.Values{}
	if stage != "" {
		query.Set("stage", stage)
	}
	if status != "" {
		query.Set("status", status)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/pipeline/jobs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out api.JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// CreateJob opens a job with its stage1 payload.
func (c *Client) CreateJob(ctx context.Context, jobNo string, stage1 json.RawMessage) (*api.JobDetail, error) {
	body, err := json.Marshal(api.CreateJobRequest{JobNo: jobNo, Stage1: stage1})
	if err != nil {
		return nil, err
	}
	return c.detail(ctx, http.MethodPost, "/api/pipeline/jobs", body)
}

// Job fetches a job with all stage records.
func (c *Client) Job(ctx context.Context, id int64) (*api.JobDetail, error) {
	return c.detail(ctx, http.MethodGet, jobPath(id, ""), nil)
}

// History returns the stage history of a job.
func (c *Client) History(ctx context.Context, id int64) ([]api.HistoryEntry, error) {
	var out api.HistoryResponse
	if err := c.do(ctx, http.MethodGet, jobPath(id, "history"), nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// Advance moves a job to target.
func (c *Client) Advance(ctx context.Context, id int64, target string) (*api.JobDetail, error) {
	body, err := json.Marshal(api.AdvanceStageRequest{TargetStage: target})
	if err != nil {
		return nil, err
	}
	return c.detail(ctx, http.MethodPost, jobPath(id, "advance-stage"), body)
}

// SubmitStage saves a stage payload. A stage4 payload with acknowledge_date
// completes the job.
func (c *Client) SubmitStage(ctx context.Context, id int64, stage string, payload json.RawMessage) (*api.JobDetail, error) {
	return c.detail(ctx, http.MethodPut, jobPath(id, stage), payload)
}

// SetStatus changes the administrative status of a job.
func (c *Client) SetStatus(ctx context.Context, id int64, status string) (*api.JobDetail, error) {
	body, err := json.Marshal(api.UpdateStatusRequest{Status: status})
	if err != nil {
		return nil, err
	}
	return c.detail(ctx, http.MethodPut, jobPath(id, "status"), body)
}

func (c *Client) detail(ctx context.Context, method, path string, body []byte) (*api.JobDetail, error) {
	var out api.JobDetail
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID > 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(c.userID, 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w at %s: %v", ErrServerUnavailable, c.baseURL, err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload api.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Kind = payload.Kind
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func jobPath(id int64, suffix string) string {
	path := "/api/pipeline/jobs/" + strconv.FormatInt(id, 10)
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}
