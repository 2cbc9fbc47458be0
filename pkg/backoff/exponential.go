// Package backoff provides backoff strategies for the acquisition loop.
package backoff

import (
	"sync"
	"time"

	"github.com/petrijr/exttask/pkg/api"
)

// Defaults for NewExponential.
const (
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultFactor       = 2.0
	DefaultMaxDelay     = 60 * time.Second
)

// Exponential delays the loop by a geometrically growing amount: the first
// Suspend blocks for the initial delay, each following one multiplies the
// delay by the factor up to the cap, and Reset drops back to the initial
// delay.
//
// Resume wakes a blocked Suspend from any goroutine. One Resume issued
// while no Suspend is in progress is remembered and short-circuits the next
// Suspend, so a subscription added between two fetches is not delayed by
// the idle backoff that follows.
type Exponential struct {
	initial time.Duration
	factor  float64
	max     time.Duration

	mu    sync.Mutex
	level int

	wake chan struct{}
}

var _ api.BackoffStrategy = (*Exponential)(nil)

// NewExponential creates an Exponential strategy.
//
//   - initial is the delay of the first Suspend (default 500ms if <= 0).
//   - factor grows the delay each Suspend (default 2.0 if <= 1).
//   - max caps the delay (default 60s if <= 0).
func NewExponential(initial time.Duration, factor float64, max time.Duration) *Exponential {
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	if factor <= 1 {
		factor = DefaultFactor
	}
	if max <= 0 {
		max = DefaultMaxDelay
	}
	return &Exponential{
		initial: initial,
		factor:  factor,
		max:     max,
		wake:    make(chan struct{}, 1),
	}
}

// NewDefaultExponential creates an Exponential strategy with the defaults.
func NewDefaultExponential() *Exponential {
	return NewExponential(DefaultInitialDelay, DefaultFactor, DefaultMaxDelay)
}

// Suspend blocks for the current delay, or until Resume is called.
func (b *Exponential) Suspend() {
	b.mu.Lock()
	delay := b.initial
	for i := 0; i < b.level; i++ {
		delay = time.Duration(float64(delay) * b.factor)
		if delay >= b.max {
			delay = b.max
			break
		}
	}
	b.level++
	b.mu.Unlock()

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
	case <-b.wake:
	}
}

// Resume unblocks a Suspend in progress. At most one Resume with no
// suspender is kept pending for the next Suspend.
func (b *Exponential) Resume() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Reset returns the delay to the initial value.
func (b *Exponential) Reset() {
	b.mu.Lock()
	b.level = 0
	b.mu.Unlock()
}
