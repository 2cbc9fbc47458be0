package poller

import (
	"sync"

	"github.com/petrijr/exttask/pkg/api"
)

// registry holds the live set of topic subscriptions.
//
// Callers subscribe and unsubscribe from their own goroutines while the
// acquisition loop reads the set, so all reads go through copies: snapshot
// returns an iteration-stable view that never reflects mutations made after
// it was taken, and no lock is ever held across a remote call.
type registry struct {
	mu   sync.RWMutex
	subs []api.Subscription
}

func newRegistry() *registry {
	return &registry{}
}

// add registers sub, rejecting a duplicate topic name and leaving the set
// unchanged in that case. The check and the insert are one critical section.
func (r *registry) add(sub api.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.subs {
		if s.TopicName == sub.TopicName {
			return &api.DuplicateTopicError{TopicName: sub.TopicName}
		}
	}

	r.subs = append(r.subs, sub)
	return nil
}

// remove drops the subscription for topicName. Removing an absent topic is
// a no-op, not an error.
func (r *registry) remove(topicName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s.TopicName == topicName {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

// snapshot returns a copy of the current subscription set in registration
// order. Later mutations are visible only to future snapshots.
func (r *registry) snapshot() []api.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

// contains reports whether topicName is subscribed right now.
func (r *registry) contains(topicName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.subs {
		if s.TopicName == topicName {
			return true
		}
	}
	return false
}
