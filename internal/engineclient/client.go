// Package engineclient talks to the engine's external-task REST API.
//
// It implements both sides of the remote boundary the poller consumes: the
// fetch-and-lock provider and the task-service facade handlers use to
// complete, fail, or extend their tasks.
package engineclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/petrijr/exttask/pkg/api"
)

// DefaultMaxTasks bounds one fetch-and-lock batch when the caller does not.
const DefaultMaxTasks = 10

// Config carries the connection settings for a Client.
type Config struct {
	// BaseURL is the engine's REST root, e.g.
	// "http://localhost:8080/engine-rest". Required.
	BaseURL string

	// WorkerID identifies this worker to the engine; tasks are locked for
	// it. Required.
	WorkerID string

	// MaxTasks caps how many tasks one fetch returns across all topics.
	// Zero means DefaultMaxTasks.
	MaxTasks int

	// UsePriority asks the engine to return higher-priority tasks first.
	UsePriority bool

	// AsyncResponseTimeout enables engine-side long polling: the fetch call
	// blocks on the engine for up to this long when no tasks are available.
	// Zero disables long polling.
	AsyncResponseTimeout time.Duration

	// HTTPClient performs the requests. Nil means http.DefaultClient.
	// When long polling is enabled the client's Timeout must exceed
	// AsyncResponseTimeout.
	HTTPClient *http.Client
}

// Client is an engine REST client. It is safe for concurrent use, though
// the poller issues at most one fetch at a time by design.
type Client struct {
	baseURL              string
	workerID             string
	maxTasks             int
	usePriority          bool
	asyncResponseTimeout time.Duration
	httpClient           *http.Client
}

var (
	_ api.TaskProvider = (*Client)(nil)
	_ api.TaskService  = (*Client)(nil)
)

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engineclient: base URL is required")
	}
	if cfg.WorkerID == "" {
		return nil, fmt.Errorf("engineclient: worker ID is required")
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = DefaultMaxTasks
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{
		baseURL:              strings.TrimRight(cfg.BaseURL, "/"),
		workerID:             cfg.WorkerID,
		maxTasks:             cfg.MaxTasks,
		usePriority:          cfg.UsePriority,
		asyncResponseTimeout: cfg.AsyncResponseTimeout,
		httpClient:           cfg.HTTPClient,
	}, nil
}

// WorkerID returns the worker identity this client locks tasks for.
func (c *Client) WorkerID() string {
	return c.workerID
}

// FetchAndLock performs one batched fetch-and-lock call. The engine locks
// every returned task for this worker for the topic's lock duration.
func (c *Client) FetchAndLock(ctx context.Context, requests []api.TopicRequest) ([]*api.Task, error) {
	body := fetchAndLockRequest{
		WorkerID:    c.workerID,
		MaxTasks:    c.maxTasks,
		UsePriority: c.usePriority,
		Topics:      make([]topicRequest, 0, len(requests)),
	}
	if c.asyncResponseTimeout > 0 {
		ms := c.asyncResponseTimeout.Milliseconds()
		body.AsyncResponseTimeout = &ms
	}
	for _, r := range requests {
		body.Topics = append(body.Topics, topicRequest{
			TopicName:    r.TopicName,
			LockDuration: r.LockDuration.Milliseconds(),
			Variables:    r.Variables,
		})
	}

	var fetched []taskResponse
	if err := c.post(ctx, "/external-task/fetchAndLock", body, &fetched); err != nil {
		return nil, fmt.Errorf("fetch and lock: %w", err)
	}

	tasks := make([]*api.Task, 0, len(fetched))
	for i := range fetched {
		tasks = append(tasks, fetched[i].toTask())
	}
	return tasks, nil
}

// Complete reports the task as done and submits variables to the process.
func (c *Client) Complete(ctx context.Context, task *api.Task, variables api.Variables) error {
	body := completeRequest{WorkerID: c.workerID, Variables: variables}
	if err := c.post(ctx, "/external-task/"+task.ID+"/complete", body, nil); err != nil {
		return fmt.Errorf("complete task %s: %w", task.ID, err)
	}
	return nil
}

// ExtendLock postpones the task's lock expiration by newDuration.
func (c *Client) ExtendLock(ctx context.Context, task *api.Task, newDuration time.Duration) error {
	body := extendLockRequest{WorkerID: c.workerID, NewDuration: newDuration.Milliseconds()}
	if err := c.post(ctx, "/external-task/"+task.ID+"/extendLock", body, nil); err != nil {
		return fmt.Errorf("extend lock on task %s: %w", task.ID, err)
	}
	return nil
}

// HandleFailure reports a technical failure on the task.
func (c *Client) HandleFailure(ctx context.Context, task *api.Task, req api.FailureRequest) error {
	body := failureRequest{
		WorkerID:     c.workerID,
		ErrorMessage: req.ErrorMessage,
		ErrorDetails: req.ErrorDetails,
		Retries:      req.Retries,
		RetryTimeout: req.RetryTimeout.Milliseconds(),
	}
	if err := c.post(ctx, "/external-task/"+task.ID+"/failure", body, nil); err != nil {
		return fmt.Errorf("report failure on task %s: %w", task.ID, err)
	}
	return nil
}

// HandleBPMNError raises a business error on the task.
func (c *Client) HandleBPMNError(ctx context.Context, task *api.Task, errorCode, errorMessage string, variables api.Variables) error {
	body := bpmnErrorRequest{
		WorkerID:     c.workerID,
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
		Variables:    variables,
	}
	if err := c.post(ctx, "/external-task/"+task.ID+"/bpmnError", body, nil); err != nil {
		return fmt.Errorf("report bpmn error on task %s: %w", task.ID, err)
	}
	return nil
}

// post sends a JSON request and decodes the response into out when out is
// non-nil. Non-2xx statuses become errors carrying the response body.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("engine returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
