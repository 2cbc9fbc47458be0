package api

import (
	"context"
	"time"
)

// TopicRequest is the per-topic slice of one fetch-and-lock batch.
// The poller derives one TopicRequest per subscription each cycle; requests
// never carry state across cycles.
type TopicRequest struct {
	TopicName string

	// LockDuration is how long fetched tasks stay locked for this worker.
	LockDuration time.Duration

	// Variables restricts which variables the engine returns with each
	// task. Nil fetches all of them.
	Variables []string
}

// TaskProvider performs the remote fetch-and-lock operation.
//
// The call is atomic from the poller's perspective: it either returns the
// (possibly empty) set of tasks now locked for this worker, or an error.
// The poller treats any error as "zero tasks acquired this cycle".
type TaskProvider interface {
	FetchAndLock(ctx context.Context, requests []TopicRequest) ([]*Task, error)
}

// Subscription registers interest in one topic.
//
// TopicName is the unique key: at most one active subscription per topic
// name exists at any time. A zero LockDuration falls back to the poller's
// default.
type Subscription struct {
	TopicName    string
	LockDuration time.Duration
	Variables    []string
	Handler      Handler
}
