// Package exttask is a client for the external-task pattern of a remote
// BPM engine: processes publish units of work under named topics, and
// workers poll the engine, lock a batch of tasks for exclusive processing,
// and report results back.
//
// # Core Concepts
//
// The exttask programming model is intentionally small and idiomatic:
//
//  1. Client
//  2. Subscription
//  3. Handler
//  4. TaskService
//  5. BackoffStrategy
//
// # Client
//
// A Client bundles an engine REST client with the acquisition loop that
// polls it. Build one fluently:
//
//	client, err := exttask.NewClient("http://localhost:8080/engine-rest").
//	    WorkerID("invoice-worker").
//	    MaxTasks(10).
//	    LockDuration(30 * time.Second).
//	    Build()
//
// or from a YAML file via LoadConfig and Config.NewClient.
//
// # Subscription
//
// A subscription registers interest in one topic. At most one subscription
// per topic name is active at a time; a duplicate is rejected with a
// DuplicateTopicError. Subscriptions can be opened and closed at any time,
// from any goroutine, whether or not the client is running:
//
//	err := client.Subscribe("invoice-check").
//	    LockDuration(30 * time.Second).
//	    HandlerFunc(checkInvoice).
//	    Open()
//
//	client.Start(ctx)
//	defer client.Stop()
//
// Each acquisition cycle snapshots the current subscriptions, performs one
// batched fetch-and-lock call across all topics, and dispatches the
// returned tasks sequentially to their handlers.
//
// # Handler
//
// A Handler processes one task. Handler errors and panics are isolated per
// task: they are reported through the Observer and never stop the other
// dispatches of the cycle or the loop itself.
//
// # TaskService
//
// Handlers receive a TaskService to report the outcome of their task:
// complete it with result variables, extend its lock, report a technical
// failure (with retries left and a retry timeout), or raise a BPMN business
// error for the process to catch.
//
// # BackoffStrategy
//
// When a fetch returns no tasks, the loop idles according to the installed
// BackoffStrategy before the next fetch. The default is exponential
// (500ms doubling up to 60s); opening a subscription or stopping the client
// cuts a delay short. DisableBackoff, or long polling via
// AsyncResponseTimeout, are alternatives for latency-sensitive workers.
//
// # Observability
//
// The loop reports every event (cycles, fetch failures, per-task outcomes,
// skipped tasks, backoff failures) to an Observer. NewLoggingObserver
// logs them with log/slog, BasicMetrics counts them, and
// NewCompositeObserver combines observers.
//
// For examples, see the /examples directory or the runnable examples in
// example_test.go.
package exttask
