// Package poller implements the work-acquisition loop of an external task
// client: a single background goroutine that repeatedly snapshots the topic
// subscriptions, performs one batched fetch-and-lock call against the remote
// engine, and dispatches the acquired tasks to their handlers.
//
// The loop is unconditionally resilient: fetch failures, handler failures
// (including panics), and backoff strategy failures are each isolated to
// their own unit of work and reported through the configured Observer; none
// of them stops the loop.
package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petrijr/exttask/pkg/api"
)

// DefaultLockDuration is used for subscriptions that do not set their own.
const DefaultLockDuration = 20 * time.Second

// Config carries the optional knobs for a Poller.
type Config struct {
	// LockDuration is the default lock duration for subscriptions that
	// leave theirs zero. Zero means DefaultLockDuration.
	LockDuration time.Duration

	// Backoff decides how long the loop idles after an empty result.
	// Nil means no delay: the loop fetches back-to-back.
	Backoff api.BackoffStrategy

	// Observer receives acquisition events. Nil means NoopObserver.
	Observer api.Observer
}

// Poller owns the subscription set and the acquisition loop.
//
// Subscribe, Unsubscribe, Start, and Stop may be called from any goroutine;
// the loop itself runs on exactly one background goroutine. Stop blocks
// until that goroutine has exited, letting an in-flight fetch or handler
// finish naturally.
type Poller struct {
	provider     api.TaskProvider
	service      api.TaskService
	observer     api.Observer
	lockDuration time.Duration

	registry *registry

	// mu guards the STOPPED/RUNNING transitions so concurrent Start/Stop
	// calls can never produce two loop goroutines or an early Stop return.
	mu      sync.Mutex
	running atomic.Bool
	wg      sync.WaitGroup

	backoffMu sync.RWMutex
	backoff   api.BackoffStrategy
}

// New creates a Poller with default config.
func New(provider api.TaskProvider, service api.TaskService) *Poller {
	return NewWithConfig(provider, service, Config{})
}

// NewWithConfig creates a Poller with the given config.
func NewWithConfig(provider api.TaskProvider, service api.TaskService, cfg Config) *Poller {
	if provider == nil {
		panic("poller: nil task provider")
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = DefaultLockDuration
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}
	return &Poller{
		provider:     provider,
		service:      service,
		observer:     cfg.Observer,
		lockDuration: cfg.LockDuration,
		registry:     newRegistry(),
		backoff:      cfg.Backoff,
	}
}

// Subscribe registers a new topic subscription. It fails with a
// DuplicateTopicError if the topic is already subscribed, and otherwise
// wakes a backoff delay in progress so the new topic is fetched promptly.
//
// Subscribing is independent of the run state: it succeeds on a stopped
// poller, and the topic is fetched once Start is called.
func (p *Poller) Subscribe(sub api.Subscription) error {
	if sub.TopicName == "" {
		return api.ErrEmptyTopicName
	}
	if sub.Handler == nil {
		return api.ErrNilHandler
	}

	if err := p.registry.add(sub); err != nil {
		return err
	}

	p.resumeBackoff(context.Background())
	return nil
}

// Unsubscribe removes the subscription for topicName. Unsubscribing an
// unknown topic is a no-op.
func (p *Poller) Unsubscribe(topicName string) {
	p.registry.remove(topicName)
}

// Subscriptions returns the currently registered subscriptions.
func (p *Poller) Subscriptions() []api.Subscription {
	return p.registry.snapshot()
}

// SetBackoffStrategy installs (or, with nil, removes) the backoff strategy.
func (p *Poller) SetBackoffStrategy(s api.BackoffStrategy) {
	p.backoffMu.Lock()
	p.backoff = s
	p.backoffMu.Unlock()
}

func (p *Poller) strategy() api.BackoffStrategy {
	p.backoffMu.RLock()
	defer p.backoffMu.RUnlock()
	return p.backoff
}

// IsRunning reports whether the acquisition loop is active.
func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

// Start launches the acquisition loop. Calling Start on a running poller is
// a no-op. The context bounds the remote calls made by the loop; Stop does
// not cancel it.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.running.Store(true)
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop ends the acquisition loop and blocks until the loop goroutine has
// exited. A backoff delay in progress is woken immediately; an in-flight
// fetch or handler execution is allowed to finish. Calling Stop on a
// stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return
	}

	p.running.Store(false)
	p.resumeBackoff(context.Background())
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	for p.running.Load() {
		// Outer boundary: even an unclassified failure inside one cycle
		// must not kill the loop.
		guard(func(err error) { p.observer.OnCycleFailed(ctx, err) }, func() error {
			p.acquire(ctx)
			return nil
		})
	}
}

// acquire runs one acquisition cycle: snapshot, batch, fetch, dispatch,
// backoff. The fetch request and the handler index are built from the same
// snapshot so they are always consistent with each other.
func (p *Poller) acquire(ctx context.Context) {
	subs := p.registry.snapshot()
	if len(subs) == 0 {
		// Nothing subscribed: no remote round-trip this cycle.
		return
	}

	requests := make([]api.TopicRequest, 0, len(subs))
	handlers := make(map[string]api.Handler, len(subs))
	for _, s := range subs {
		d := s.LockDuration
		if d <= 0 {
			d = p.lockDuration
		}
		requests = append(requests, api.TopicRequest{
			TopicName:    s.TopicName,
			LockDuration: d,
			Variables:    s.Variables,
		})
		handlers[s.TopicName] = s.Handler
	}

	var tasks []*api.Task
	guard(func(err error) { p.observer.OnFetchFailed(ctx, err) }, func() error {
		fetched, err := p.provider.FetchAndLock(ctx, requests)
		if err != nil {
			return err
		}
		tasks = fetched
		return nil
	})

	for _, task := range tasks {
		handler, ok := handlers[task.TopicName]
		if !ok || !p.registry.contains(task.TopicName) {
			// The topic was unsubscribed while the fetch was in flight
			// (or the engine returned a topic we never asked for).
			p.observer.OnTaskSkipped(ctx, task)
			continue
		}
		p.dispatch(ctx, task, handler)
	}

	p.runBackoff(ctx, len(tasks) == 0)
	p.observer.OnCycleCompleted(ctx, len(requests), len(tasks))
}

// dispatch invokes the handler for one task. Handler errors and panics are
// reported per task and never abort the remaining dispatches of the cycle.
func (p *Poller) dispatch(ctx context.Context, task *api.Task, handler api.Handler) {
	start := time.Now()
	err := p.invoke(ctx, task, handler)
	p.observer.OnTaskCompleted(ctx, task, err, time.Since(start))
}

func (p *Poller) invoke(ctx context.Context, task *api.Task, handler api.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for topic %q panicked: %v", task.TopicName, r)
		}
	}()
	return handler.Execute(ctx, task, p.service)
}

// runBackoff drives the installed strategy after a fetch: Suspend on an
// empty result, Reset otherwise.
func (p *Poller) runBackoff(ctx context.Context, empty bool) {
	s := p.strategy()
	if s == nil {
		return
	}

	guard(func(err error) { p.observer.OnBackoffFailed(ctx, err) }, func() error {
		if empty {
			s.Suspend()
		} else {
			s.Reset()
		}
		return nil
	})
}

// resumeBackoff force-wakes a suspended strategy, used when a new
// subscription arrives and on shutdown.
func (p *Poller) resumeBackoff(ctx context.Context) {
	s := p.strategy()
	if s == nil {
		return
	}

	guard(func(err error) { p.observer.OnBackoffFailed(ctx, err) }, func() error {
		s.Resume()
		return nil
	})
}

// guard runs fn, converts a panic into an error, and reports any failure
// through report. It is the isolation wrapper applied at the fetch call,
// the backoff calls, and the loop's outer boundary; handler dispatch has
// its own variant in invoke because success is reported there too.
func guard(report func(error), fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			report(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		report(err)
	}
}
