package exttask

import (
	"context"

	"github.com/petrijr/exttask/internal/engineclient"
	"github.com/petrijr/exttask/pkg/api"
	"github.com/petrijr/exttask/pkg/poller"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Task                 = api.Task
	Variable             = api.Variable
	Variables            = api.Variables
	Handler              = api.Handler
	HandlerFunc          = api.HandlerFunc
	TaskService          = api.TaskService
	FailureRequest       = api.FailureRequest
	TaskProvider         = api.TaskProvider
	TopicRequest         = api.TopicRequest
	Subscription         = api.Subscription
	BackoffStrategy      = api.BackoffStrategy
	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	CompositeObserver    = api.CompositeObserver
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	DuplicateTopicError  = api.DuplicateTopicError

	// Poller is the acquisition loop; use it directly when bringing your
	// own TaskProvider and TaskService instead of the REST client.
	Poller = poller.Poller

	// PollerConfig configures a Poller created with NewPoller.
	PollerConfig = poller.Config
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	IsDuplicateTopic     = api.IsDuplicateTopic
)

// NewPoller returns an acquisition loop wired to a custom provider and task
// service. Most callers want NewClient instead, which wires the poller to
// the engine's REST API.
func NewPoller(provider TaskProvider, service TaskService, cfg PollerConfig) *Poller {
	return poller.NewWithConfig(provider, service, cfg)
}

// Client is an external task client: an engine REST client plus the
// acquisition loop that polls it and dispatches tasks to handlers.
//
// Build one with NewClient:
//
//	client, err := exttask.NewClient("http://localhost:8080/engine-rest").
//	    WorkerID("invoice-worker").
//	    Build()
type Client struct {
	engine *engineclient.Client
	poller *poller.Poller
}

// Subscribe starts building a subscription for topicName:
//
//	err := client.Subscribe("invoice-check").
//	    LockDuration(30 * time.Second).
//	    HandlerFunc(checkInvoice).
//	    Open()
func (c *Client) Subscribe(topicName string) *SubscriptionBuilder {
	return &SubscriptionBuilder{
		client: c,
		sub:    api.Subscription{TopicName: topicName},
	}
}

// SubscribeSubscription registers a fully assembled subscription. It fails
// with a DuplicateTopicError if the topic is already subscribed.
func (c *Client) SubscribeSubscription(sub Subscription) error {
	return c.poller.Subscribe(sub)
}

// Unsubscribe removes the subscription for topicName; unknown topics are a
// no-op. A task for the topic already in flight is skipped, not dispatched.
func (c *Client) Unsubscribe(topicName string) {
	c.poller.Unsubscribe(topicName)
}

// Subscriptions returns the currently registered subscriptions.
func (c *Client) Subscriptions() []Subscription {
	return c.poller.Subscriptions()
}

// Start launches the acquisition loop; a no-op if already running.
func (c *Client) Start(ctx context.Context) {
	c.poller.Start(ctx)
}

// Stop halts the acquisition loop and waits for it to exit; a no-op if
// already stopped. Subscriptions survive a Stop and are polled again after
// the next Start.
func (c *Client) Stop() {
	c.poller.Stop()
}

// IsRunning reports whether the acquisition loop is active.
func (c *Client) IsRunning() bool {
	return c.poller.IsRunning()
}

// SetBackoffStrategy replaces the backoff strategy; nil removes it and the
// loop polls back-to-back.
func (c *Client) SetBackoffStrategy(s BackoffStrategy) {
	c.poller.SetBackoffStrategy(s)
}

// WorkerID returns the identity this client locks tasks under.
func (c *Client) WorkerID() string {
	return c.engine.WorkerID()
}
