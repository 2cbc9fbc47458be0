package api

// BackoffStrategy controls how long the acquisition loop idles after a
// cycle that acquired no tasks.
//
// Suspend and Reset are called from the loop goroutine; Resume must be
// callable from any goroutine and unblock an in-progress Suspend. Panics
// from any of the three are recovered and reported by the poller; a
// misbehaving strategy never stops the loop.
type BackoffStrategy interface {
	// Suspend blocks the loop for the strategy's current delay.
	Suspend()

	// Resume cuts short an in-progress Suspend.
	Resume()

	// Reset returns the delay to its minimum after a non-empty result.
	Reset()
}
