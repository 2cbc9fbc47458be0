package exttask

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/exttask/internal/engineclient"
	"github.com/petrijr/exttask/pkg/api"
	"github.com/petrijr/exttask/pkg/backoff"
	"github.com/petrijr/exttask/pkg/poller"
)

// ClientBuilder provides a fluent API for assembling a Client:
//
//	client, err := exttask.NewClient("http://localhost:8080/engine-rest").
//	    WorkerID("invoice-worker").
//	    MaxTasks(10).
//	    LockDuration(30 * time.Second).
//	    AsyncResponseTimeout(20 * time.Second).
//	    Build()
//
// Every setting has a usable default except the base URL. Unless disabled,
// the client gets an exponential backoff strategy so an idle worker does
// not hammer the engine.
type ClientBuilder struct {
	engineCfg      engineclient.Config
	lockDuration   time.Duration
	observer       api.Observer
	strategy       api.BackoffStrategy
	disableBackoff bool
	strategyWasSet bool
}

// NewClient creates a ClientBuilder for the engine at baseURL, e.g.
// "http://localhost:8080/engine-rest".
func NewClient(baseURL string) *ClientBuilder {
	return &ClientBuilder{
		engineCfg: engineclient.Config{BaseURL: baseURL},
	}
}

// WorkerID sets the identity tasks are locked under. The default is
// "<hostname>-<uuid>".
func (b *ClientBuilder) WorkerID(id string) *ClientBuilder {
	b.engineCfg.WorkerID = id
	return b
}

// MaxTasks caps how many tasks one fetch returns across all topics.
func (b *ClientBuilder) MaxTasks(n int) *ClientBuilder {
	b.engineCfg.MaxTasks = n
	return b
}

// UsePriority asks the engine to return higher-priority tasks first.
func (b *ClientBuilder) UsePriority(use bool) *ClientBuilder {
	b.engineCfg.UsePriority = use
	return b
}

// AsyncResponseTimeout enables engine-side long polling for up to d.
func (b *ClientBuilder) AsyncResponseTimeout(d time.Duration) *ClientBuilder {
	b.engineCfg.AsyncResponseTimeout = d
	return b
}

// HTTPClient replaces the http.Client used for engine requests.
func (b *ClientBuilder) HTTPClient(c *http.Client) *ClientBuilder {
	b.engineCfg.HTTPClient = c
	return b
}

// LockDuration sets the default lock duration for subscriptions that do not
// set their own.
func (b *ClientBuilder) LockDuration(d time.Duration) *ClientBuilder {
	b.lockDuration = d
	return b
}

// BackoffStrategy replaces the default exponential backoff strategy.
func (b *ClientBuilder) BackoffStrategy(s BackoffStrategy) *ClientBuilder {
	b.strategy = s
	b.strategyWasSet = true
	return b
}

// DisableBackoff makes the loop poll back-to-back with no idle delay.
func (b *ClientBuilder) DisableBackoff() *ClientBuilder {
	b.disableBackoff = true
	return b
}

// Observer installs an observer for acquisition events, e.g.
// exttask.NewLoggingObserver(nil).
func (b *ClientBuilder) Observer(o Observer) *ClientBuilder {
	b.observer = o
	return b
}

// Build assembles the Client. It does not contact the engine; the first
// request happens on the first acquisition cycle after Start.
func (b *ClientBuilder) Build() (*Client, error) {
	cfg := b.engineCfg
	if cfg.WorkerID == "" {
		cfg.WorkerID = defaultWorkerID()
	}

	engine, err := engineclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("exttask: %w", err)
	}

	strategy := b.strategy
	if !b.strategyWasSet && !b.disableBackoff {
		strategy = backoff.NewDefaultExponential()
	}
	if b.disableBackoff {
		strategy = nil
	}

	p := poller.NewWithConfig(engine, engine, poller.Config{
		LockDuration: b.lockDuration,
		Backoff:      strategy,
		Observer:     b.observer,
	})

	return &Client{engine: engine, poller: p}, nil
}

// MustBuild is like Build but panics on error.
// Useful for initialization in main().
func (b *ClientBuilder) MustBuild() *Client {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "-" + uuid.NewString()
}
