package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the acquisition loop for logging and
// metrics.
//
// Implementations should be fast and non-blocking; the callbacks run on the
// loop goroutine and a slow observer delays the next fetch.
type Observer interface {
	// OnCycleCompleted is called at the end of every cycle that performed a
	// fetch, with the number of topics requested and tasks received.
	OnCycleCompleted(ctx context.Context, topics, tasks int)

	// OnCycleFailed is called when a cycle fails in an unclassified way,
	// outside the fetch/dispatch/backoff isolation points. The loop
	// continues with the next cycle.
	OnCycleFailed(ctx context.Context, err error)

	// OnFetchFailed is called when the fetch-and-lock call fails; the cycle
	// proceeds with an empty result.
	OnFetchFailed(ctx context.Context, err error)

	// OnTaskCompleted is called after every handler dispatch, for both
	// successes and failures (err != nil).
	OnTaskCompleted(ctx context.Context, task *Task, err error, duration time.Duration)

	// OnTaskSkipped is called for a fetched task whose topic is no longer
	// subscribed; the task is discarded without dispatch.
	OnTaskSkipped(ctx context.Context, task *Task)

	// OnBackoffFailed is called when the backoff strategy panics; the call
	// is treated as a no-op and the loop continues.
	OnBackoffFailed(ctx context.Context, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnCycleCompleted(ctx context.Context, topics, tasks int) {}
func (NoopObserver) OnCycleFailed(ctx context.Context, err error)            {}
func (NoopObserver) OnFetchFailed(ctx context.Context, err error)            {}
func (NoopObserver) OnTaskCompleted(ctx context.Context, task *Task, err error, d time.Duration) {
}
func (NoopObserver) OnTaskSkipped(ctx context.Context, task *Task)  {}
func (NoopObserver) OnBackoffFailed(ctx context.Context, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnCycleCompleted(ctx context.Context, topics, tasks int) {
	for _, o := range c.observers {
		o.OnCycleCompleted(ctx, topics, tasks)
	}
}

func (c *CompositeObserver) OnCycleFailed(ctx context.Context, err error) {
	for _, o := range c.observers {
		o.OnCycleFailed(ctx, err)
	}
}

func (c *CompositeObserver) OnFetchFailed(ctx context.Context, err error) {
	for _, o := range c.observers {
		o.OnFetchFailed(ctx, err)
	}
}

func (c *CompositeObserver) OnTaskCompleted(ctx context.Context, task *Task, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnTaskCompleted(ctx, task, err, d)
	}
}

func (c *CompositeObserver) OnTaskSkipped(ctx context.Context, task *Task) {
	for _, o := range c.observers {
		o.OnTaskSkipped(ctx, task)
	}
}

func (c *CompositeObserver) OnBackoffFailed(ctx context.Context, err error) {
	for _, o := range c.observers {
		o.OnBackoffFailed(ctx, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs acquisition events using
// the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnCycleCompleted(ctx context.Context, topics, tasks int) {
	o.Logger.DebugContext(ctx, "cycle_completed",
		slog.Int("topics", topics),
		slog.Int("tasks", tasks),
	)
}

func (o *LoggingObserver) OnCycleFailed(ctx context.Context, err error) {
	o.Logger.ErrorContext(ctx, "cycle_failed",
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnFetchFailed(ctx context.Context, err error) {
	o.Logger.ErrorContext(ctx, "fetch_and_lock_failed",
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnTaskCompleted(ctx context.Context, task *Task, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "task_completed",
		slog.String("topic", task.TopicName),
		slog.String("task_id", task.ID),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnTaskSkipped(ctx context.Context, task *Task) {
	o.Logger.WarnContext(ctx, "task_skipped",
		slog.String("topic", task.TopicName),
		slog.String("task_id", task.ID),
	)
}

func (o *LoggingObserver) OnBackoffFailed(ctx context.Context, err error) {
	o.Logger.ErrorContext(ctx, "backoff_strategy_failed",
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters for the acquisition loop.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	cycles            atomic.Int64
	tasksFetched      atomic.Int64
	tasksDispatched   atomic.Int64
	tasksSkipped      atomic.Int64
	handlerFailures   atomic.Int64
	fetchFailures     atomic.Int64
	totalTaskDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Cycles          int64
	TasksFetched    int64
	TasksDispatched int64
	TasksSkipped    int64
	HandlerFailures int64
	FetchFailures   int64
	AvgTaskDuration time.Duration
}

func (m *BasicMetrics) OnCycleCompleted(ctx context.Context, topics, tasks int) {
	m.cycles.Add(1)
	m.tasksFetched.Add(int64(tasks))
}

func (m *BasicMetrics) OnFetchFailed(ctx context.Context, err error) {
	m.fetchFailures.Add(1)
}

func (m *BasicMetrics) OnTaskCompleted(ctx context.Context, task *Task, err error, d time.Duration) {
	m.tasksDispatched.Add(1)
	if err != nil {
		m.handlerFailures.Add(1)
		return
	}
	// Only successful dispatches count towards the average duration.
	m.totalTaskDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnTaskSkipped(ctx context.Context, task *Task) {
	m.tasksSkipped.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	dispatched := m.tasksDispatched.Load()
	failures := m.handlerFailures.Load()
	totalNs := m.totalTaskDuration.Load()

	var avg time.Duration
	if ok := dispatched - failures; ok > 0 {
		avg = time.Duration(totalNs / ok)
	}

	return BasicMetricsSnapshot{
		Cycles:          m.cycles.Load(),
		TasksFetched:    m.tasksFetched.Load(),
		TasksDispatched: dispatched,
		TasksSkipped:    m.tasksSkipped.Load(),
		HandlerFailures: failures,
		FetchFailures:   m.fetchFailures.Load(),
		AvgTaskDuration: avg,
	}
}
