// Package timer implements the cancellable, restartable one-shot deadline
// the GBN and SR senders use to drive retransmission. The timer's
// start/cancel/reset operations must be serialized against the sender's
// window mutations; callers are expected to hold their own lock around
// every call into this package, including from inside fire.
package timer

import (
	"sync"
	"time"
)

// RetransmitTimer is a single-shot, restartable deadline. Cancel-then-
// restart never leaves a lingering expiry: a generation counter lets onFire
// recognize and drop a callback from a timer instance that has since been
// reset or stopped.
type RetransmitTimer struct {
	mu       sync.Mutex
	duration time.Duration
	fire     func()
	inner    *time.Timer
	gen      uint64
}

// New creates a timer with the given retransmit duration and callback. The
// timer does not start running until Start is called.
func New(duration time.Duration, fire func()) *RetransmitTimer {
	return &RetransmitTimer{duration: duration, fire: fire}
}

// Start begins the deadline if it is not already running.
func (t *RetransmitTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inner != nil {
		return
	}
	t.arm()
}

// Reset cancels any pending deadline and starts a fresh one. Use this after
// making forward progress (an ACK advanced the window) rather than Start,
// since Reset always restarts the full duration.
func (t *RetransmitTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.arm()
}

// Stop cancels any pending deadline. It is safe to call even if the timer
// was never started, and safe to call more than once.
func (t *RetransmitTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *RetransmitTimer) arm() {
	t.gen++
	gen := t.gen
	t.inner = time.AfterFunc(t.duration, func() { t.onFire(gen) })
}

func (t *RetransmitTimer) stopLocked() {
	if t.inner != nil {
		t.inner.Stop()
		t.inner = nil
	}
	t.gen++
}

func (t *RetransmitTimer) onFire(gen uint64) {
	t.mu.Lock()
	current := t.gen
	t.mu.Unlock()

	if gen != current {
		// Superseded by a Stop/Reset that happened concurrently with this
		// firing; drop it rather than retransmit on stale state.
		return
	}
	t.fire()
}
