package exttask

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingStrategy counts strategy calls and parks the loop on Suspend so
// the tests control when cycles happen.
type recordingStrategy struct {
	mu       sync.Mutex
	suspends int
	resets   int
	wake     chan struct{}
}

func newRecordingStrategy() *recordingStrategy {
	return &recordingStrategy{wake: make(chan struct{}, 1)}
}

func (s *recordingStrategy) Suspend() {
	s.mu.Lock()
	s.suspends++
	s.mu.Unlock()
	<-s.wake
}

func (s *recordingStrategy) Resume() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *recordingStrategy) Reset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

func (s *recordingStrategy) counts() (suspends, resets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspends, s.resets
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// TestClientEndToEnd drives a full worker round against a fake engine: one
// fetched task is dispatched and completed, the backoff resets, and the
// following empty fetch suspends the loop.
func TestClientEndToEnd(t *testing.T) {
	var mu sync.Mutex
	fetches := 0
	var fetchBody map[string]any
	var completeBody map[string]any
	completes := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/engine-rest/external-task/fetchAndLock":
			mu.Lock()
			fetches++
			n := fetches
			if n == 1 {
				_ = json.NewDecoder(r.Body).Decode(&fetchBody)
			}
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			if n == 1 {
				_, _ = w.Write([]byte(`[{
					"id": "task-1",
					"topicName": "invoice-check",
					"processInstanceId": "proc-1",
					"lockExpirationTime": "2026-08-23T12:00:30.000+0000",
					"variables": {"invoiceId": {"value": "inv-7", "type": "String"}}
				}]`))
				return
			}
			_, _ = w.Write([]byte(`[]`))

		case "/engine-rest/external-task/task-1/complete":
			mu.Lock()
			completes++
			_ = json.NewDecoder(r.Body).Decode(&completeBody)
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)

		default:
			t.Errorf("unexpected request to %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	strategy := newRecordingStrategy()
	client, err := NewClient(srv.URL + "/engine-rest").
		WorkerID("worker-1").
		BackoffStrategy(strategy).
		Build()
	require.NoError(t, err)

	err = client.Subscribe("invoice-check").
		LockDuration(30 * time.Second).
		HandlerFunc(func(ctx context.Context, task *Task, service TaskService) error {
			// t.Errorf only: this runs on the loop goroutine.
			if invoiceID, ok := task.Variables.String("invoiceId"); !ok || invoiceID != "inv-7" {
				t.Errorf("invoiceId = %q, %v", invoiceID, ok)
			}

			var vars Variables
			vars.SetString("result", "approved")
			return service.Complete(ctx, task, vars)
		}).
		Open()
	require.NoError(t, err)

	client.Start(context.Background())
	require.True(t, client.IsRunning())

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return completes == 1
	}, "the task to be completed")

	// Backoff resets after the non-empty cycle and suspends after the empty
	// one that follows.
	waitFor(t, func() bool {
		suspends, resets := strategy.counts()
		return resets >= 1 && suspends >= 1
	}, "backoff reset and suspend")

	client.Stop()
	require.False(t, client.IsRunning())

	mu.Lock()
	defer mu.Unlock()

	// The fetch carried the subscription's topic and lock duration.
	topics := fetchBody["topics"].([]any)
	require.Len(t, topics, 1)
	topic := topics[0].(map[string]any)
	require.Equal(t, "invoice-check", topic["topicName"])
	require.Equal(t, float64(30000), topic["lockDuration"])
	require.Equal(t, "worker-1", fetchBody["workerId"])

	// The completion carried the handler's result variables.
	require.Equal(t, "worker-1", completeBody["workerId"])
	vars := completeBody["variables"].(map[string]any)
	require.Contains(t, vars, "result")

	// No further fetches after Stop returned.
	after := fetches
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.Equal(t, after, fetches)
}

func TestSubscribeRejectsDuplicateTopic(t *testing.T) {
	t.Parallel()

	client, err := NewClient("http://localhost:8080/engine-rest").
		WorkerID("worker-1").
		Build()
	require.NoError(t, err)

	handler := func(ctx context.Context, task *Task, service TaskService) error { return nil }

	require.NoError(t, client.Subscribe("a").HandlerFunc(handler).Open())

	err = client.Subscribe("a").HandlerFunc(handler).Open()
	require.Error(t, err)
	require.True(t, IsDuplicateTopic(err))
	require.Len(t, client.Subscriptions(), 1)

	// After unsubscribing, the topic is free again.
	client.Unsubscribe("a")
	require.NoError(t, client.Subscribe("a").HandlerFunc(handler).Open())
}

func TestSubscribeValidation(t *testing.T) {
	t.Parallel()

	client, err := NewClient("http://localhost:8080/engine-rest").
		WorkerID("worker-1").
		Build()
	require.NoError(t, err)

	require.Error(t, client.Subscribe("a").Open(), "a subscription without a handler must be rejected")
	require.Error(t, client.Subscribe("").HandlerFunc(
		func(ctx context.Context, task *Task, service TaskService) error { return nil },
	).Open())
}

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	_, err := NewClient("").Build()
	require.Error(t, err, "the base URL is required")

	client, err := NewClient("http://localhost:8080/engine-rest").Build()
	require.NoError(t, err)
	require.NotEmpty(t, client.WorkerID(), "a worker ID must be generated when unset")

	other, err := NewClient("http://localhost:8080/engine-rest").Build()
	require.NoError(t, err)
	require.NotEqual(t, client.WorkerID(), other.WorkerID(), "generated worker IDs must be unique")
}
