package api

import (
	"context"
	"time"
)

// Handler processes one external task.
//
// Execute runs on the poller's loop goroutine; a slow handler delays the
// next fetch. Errors and panics are caught at the dispatch boundary and
// reported through the Observer; they never stop the acquisition loop or
// the remaining dispatches of the same cycle.
type Handler interface {
	Execute(ctx context.Context, task *Task, service TaskService) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, task *Task, service TaskService) error

func (f HandlerFunc) Execute(ctx context.Context, task *Task, service TaskService) error {
	return f(ctx, task, service)
}

// FailureRequest describes a failure report for a task.
//
// Retries tells the engine how many re-deliveries remain; when it reaches
// zero the engine creates an incident instead of re-delivering. RetryTimeout
// is how long the engine waits before making the task fetchable again.
type FailureRequest struct {
	ErrorMessage string
	ErrorDetails string
	Retries      int
	RetryTimeout time.Duration
}

// TaskService is the facade handlers use to report the outcome of a task
// back to the engine. It is only meaningful for the task currently being
// dispatched; the core never calls it itself.
type TaskService interface {
	// Complete marks the task as done, submitting variables to the process.
	Complete(ctx context.Context, task *Task, variables Variables) error

	// ExtendLock postpones the task's lock expiration by newDuration,
	// measured from the time the engine handles the request.
	ExtendLock(ctx context.Context, task *Task, newDuration time.Duration) error

	// HandleFailure reports a technical failure; the engine re-delivers the
	// task according to req.Retries and req.RetryTimeout.
	HandleFailure(ctx context.Context, task *Task, req FailureRequest) error

	// HandleBPMNError raises a business error that BPMN error boundary
	// events in the process can catch.
	HandleBPMNError(ctx context.Context, task *Task, errorCode, errorMessage string, variables Variables) error
}
