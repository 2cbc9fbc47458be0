package exttask

import (
	"context"
	"time"

	"github.com/petrijr/exttask/pkg/api"
)

// SubscriptionBuilder provides a fluent API for opening a topic
// subscription on a Client:
//
//	err := client.Subscribe("invoice-check").
//	    LockDuration(30 * time.Second).
//	    Variables("invoiceId", "amount").
//	    HandlerFunc(func(ctx context.Context, task *exttask.Task, service exttask.TaskService) error {
//	        return service.Complete(ctx, task, nil)
//	    }).
//	    Open()
//
// Nothing is registered until Open is called.
type SubscriptionBuilder struct {
	client *Client
	sub    api.Subscription
}

// LockDuration sets how long fetched tasks stay locked for this worker.
// Zero falls back to the client's default lock duration.
func (b *SubscriptionBuilder) LockDuration(d time.Duration) *SubscriptionBuilder {
	b.sub.LockDuration = d
	return b
}

// Variables restricts which variables the engine returns with each task.
// By default all of them are fetched.
func (b *SubscriptionBuilder) Variables(names ...string) *SubscriptionBuilder {
	b.sub.Variables = names
	return b
}

// Handler sets the handler dispatched for the topic's tasks.
func (b *SubscriptionBuilder) Handler(h Handler) *SubscriptionBuilder {
	b.sub.Handler = h
	return b
}

// HandlerFunc is a convenience for Handler with a plain function.
func (b *SubscriptionBuilder) HandlerFunc(f func(ctx context.Context, task *Task, service TaskService) error) *SubscriptionBuilder {
	b.sub.Handler = api.HandlerFunc(f)
	return b
}

// Open registers the subscription. It fails with a DuplicateTopicError if
// the topic is already subscribed, and wakes an idle backoff so the new
// topic is fetched promptly.
func (b *SubscriptionBuilder) Open() error {
	return b.client.SubscribeSubscription(b.sub)
}
