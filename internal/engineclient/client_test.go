package engineclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/petrijr/exttask/pkg/api"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:  srv.URL + "/engine-rest/",
		WorkerID: "worker-1",
		MaxTasks: 5,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestFetchAndLockRequestAndResponse(t *testing.T) {
	var mu sync.Mutex
	var got fetchAndLockRequest

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/engine-rest/external-task/fetchAndLock" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"id": "task-1",
				"topicName": "invoice-check",
				"workerId": "worker-1",
				"processInstanceId": "proc-9",
				"businessKey": "order-42",
				"priority": 50,
				"retries": null,
				"lockExpirationTime": "2026-08-23T12:00:00.000+0000",
				"variables": {
					"amount": {"value": 42.5, "type": "Double"},
					"invoiceId": {"value": "inv-7", "type": "String"}
				}
			}
		]`))
	}))

	tasks, err := c.FetchAndLock(context.Background(), []api.TopicRequest{
		{TopicName: "invoice-check", LockDuration: 30 * time.Second, Variables: []string{"amount", "invoiceId"}},
	})
	if err != nil {
		t.Fatalf("FetchAndLock failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.WorkerID != "worker-1" {
		t.Errorf("workerId = %q, want worker-1", got.WorkerID)
	}
	if got.MaxTasks != 5 {
		t.Errorf("maxTasks = %d, want 5", got.MaxTasks)
	}
	if len(got.Topics) != 1 {
		t.Fatalf("topics = %d, want 1", len(got.Topics))
	}
	if got.Topics[0].TopicName != "invoice-check" || got.Topics[0].LockDuration != 30000 {
		t.Errorf("topic request = %+v, want invoice-check/30000", got.Topics[0])
	}
	if len(got.Topics[0].Variables) != 2 {
		t.Errorf("variables filter = %v", got.Topics[0].Variables)
	}

	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	task := tasks[0]
	if task.ID != "task-1" || task.TopicName != "invoice-check" {
		t.Errorf("task = %+v", task)
	}
	if task.BusinessKey != "order-42" || task.Priority != 50 {
		t.Errorf("task metadata = %+v", task)
	}
	if task.Retries != nil {
		t.Errorf("retries = %v, want nil", *task.Retries)
	}
	if task.LockExpiration.IsZero() {
		t.Error("lock expiration was not parsed")
	}
	if inv, ok := task.Variables.String("invoiceId"); !ok || inv != "inv-7" {
		t.Errorf("invoiceId = %q, %v", inv, ok)
	}
	if amount, ok := task.Variables.Float("amount"); !ok || amount != 42.5 {
		t.Errorf("amount = %v, %v", amount, ok)
	}
}

func TestFetchAndLockErrorStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"ProcessEngineException","message":"boom"}`, http.StatusInternalServerError)
	}))

	_, err := c.FetchAndLock(context.Background(), []api.TopicRequest{{TopicName: "a", LockDuration: time.Second}})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestTaskServiceOperations(t *testing.T) {
	type call struct {
		path string
		body map[string]any
	}
	var mu sync.Mutex
	var calls []call

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Lock()
		calls = append(calls, call{path: r.URL.Path, body: body})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := context.Background()
	task := &api.Task{ID: "task-1", TopicName: "invoice-check"}

	var vars api.Variables
	vars.SetString("result", "approved")
	if err := c.Complete(ctx, task, vars); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if err := c.ExtendLock(ctx, task, 45*time.Second); err != nil {
		t.Fatalf("ExtendLock failed: %v", err)
	}

	if err := c.HandleFailure(ctx, task, api.FailureRequest{
		ErrorMessage: "downstream timeout",
		Retries:      2,
		RetryTimeout: 10 * time.Second,
	}); err != nil {
		t.Fatalf("HandleFailure failed: %v", err)
	}

	if err := c.HandleBPMNError(ctx, task, "INVOICE_REJECTED", "rejected by policy", nil); err != nil {
		t.Fatalf("HandleBPMNError failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	wantPaths := []string{
		"/engine-rest/external-task/task-1/complete",
		"/engine-rest/external-task/task-1/extendLock",
		"/engine-rest/external-task/task-1/failure",
		"/engine-rest/external-task/task-1/bpmnError",
	}
	if len(calls) != len(wantPaths) {
		t.Fatalf("calls = %d, want %d", len(calls), len(wantPaths))
	}
	for i, want := range wantPaths {
		if calls[i].path != want {
			t.Errorf("call %d path = %q, want %q", i, calls[i].path, want)
		}
		if calls[i].body["workerId"] != "worker-1" {
			t.Errorf("call %d workerId = %v", i, calls[i].body["workerId"])
		}
	}

	if v, ok := calls[0].body["variables"].(map[string]any); !ok || v["result"] == nil {
		t.Errorf("complete variables = %v", calls[0].body["variables"])
	}
	if calls[1].body["newDuration"] != float64(45000) {
		t.Errorf("newDuration = %v, want 45000", calls[1].body["newDuration"])
	}
	if calls[2].body["retries"] != float64(2) || calls[2].body["retryTimeout"] != float64(10000) {
		t.Errorf("failure body = %v", calls[2].body)
	}
	if calls[3].body["errorCode"] != "INVOICE_REJECTED" {
		t.Errorf("bpmnError body = %v", calls[3].body)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := New(Config{WorkerID: "w"}); err == nil {
		t.Error("expected an error for a missing base URL")
	}
	if _, err := New(Config{BaseURL: "http://localhost:8080"}); err == nil {
		t.Error("expected an error for a missing worker ID")
	}

	c, err := New(Config{BaseURL: "http://localhost:8080/engine-rest/", WorkerID: "w"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.baseURL != "http://localhost:8080/engine-rest" {
		t.Errorf("baseURL = %q, trailing slash not trimmed", c.baseURL)
	}
	if c.maxTasks != DefaultMaxTasks {
		t.Errorf("maxTasks = %d, want default %d", c.maxTasks, DefaultMaxTasks)
	}
}

func TestEngineTimeParsing(t *testing.T) {
	cases := map[string]string{
		"engine format": `"2026-08-23T12:00:00.000+0000"`,
		"rfc3339":       `"2026-08-23T12:00:00Z"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var ts engineTime
			if err := ts.UnmarshalJSON([]byte(raw)); err != nil {
				t.Fatalf("unmarshal %s: %v", raw, err)
			}
			if time.Time(ts).IsZero() {
				t.Error("parsed time is zero")
			}
		})
	}

	var ts engineTime
	if err := ts.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !time.Time(ts).IsZero() {
		t.Error("null must decode to the zero time")
	}

	if err := ts.UnmarshalJSON([]byte(`"not-a-time"`)); err == nil {
		t.Error("expected an error for garbage input")
	}
}
