// Package countdown counts seconds down to zero and then navigates once to a
// target location.
//
// A Countdown keeps at most one tick pending. Stop, Reset and Retarget cancel
// that tick before anything else is scheduled, so a countdown owned by a
// request or page instance never leaks its timer.
package countdown

import (
	"context"
	"sync"
	"time"
)

// Interval is the time between ticks.
const Interval = time.Second

// Timer is a pending tick that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler arranges for f to run once after d. f must not run before the
// Scheduler returns.
type Scheduler func(d time.Duration, f func()) Timer

// Navigator performs the redirect to target.
type Navigator func(target string)

// Option configures a Countdown.
type Option func(*Countdown)

// WithScheduler replaces the default time.AfterFunc scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Countdown) { c.schedule = s }
}

// OnTick registers an observer called with the remaining seconds after each tick.
func OnTick(f func(remaining int)) Option {
	return func(c *Countdown) { c.onTick = f }
}

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Countdown navigates to a target once its remaining seconds reach zero.
type Countdown struct {
	mu        sync.Mutex
	target    string
	remaining int
	pending   Timer
	gen       uint64
	started   bool
	stopped   bool
	navigated bool
	done      chan struct{}

	navigate Navigator
	schedule Scheduler
	onTick   func(int)
}

// New creates a stopped countdown. Negative seconds count as zero.
func New(target string, seconds int, navigate Navigator, opts ...Option) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	c := &Countdown{
		target:    target,
		remaining: seconds,
		done:      make(chan struct{}),
		navigate:  navigate,
		schedule:  afterFunc,
		onTick:    func(int) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Remaining returns the seconds left before navigation.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Done is closed after the countdown has navigated.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Start begins counting. A countdown created with zero seconds navigates
// immediately. Calling Start again has no effect.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.restartLocked()
}

// Stop cancels the pending tick. The countdown will not navigate afterwards
// unless it already has.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.cancelLocked()
}

// Reset changes the remaining seconds and restarts scheduling.
func (c *Countdown) Reset(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.mu.Lock()
	c.remaining = seconds
	c.restartIfRunningLocked()
}

// Retarget changes the navigation target and restarts scheduling.
func (c *Countdown) Retarget(target string) {
	c.mu.Lock()
	c.target = target
	c.restartIfRunningLocked()
}

// Run starts the countdown and blocks until it navigates or ctx is done. On
// cancellation the countdown is stopped and ctx.Err() returned.
func (c *Countdown) Run(ctx context.Context) error {
	c.Start()
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.Stop()
		return ctx.Err()
	}
}

// restartIfRunningLocked expects c.mu held and releases it.
func (c *Countdown) restartIfRunningLocked() {
	if !c.started || c.stopped || c.navigated {
		c.mu.Unlock()
		return
	}
	c.restartLocked()
}

// restartLocked expects c.mu held and releases it.
func (c *Countdown) restartLocked() {
	c.cancelLocked()
	if c.remaining == 0 {
		c.finishLocked()
		return
	}
	c.scheduleLocked()
	c.mu.Unlock()
}

func (c *Countdown) cancelLocked() {
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Countdown) scheduleLocked() {
	gen := c.gen
	c.pending = c.schedule(Interval, func() { c.fire(gen) })
}

// finishLocked expects c.mu held and releases it before navigating.
func (c *Countdown) finishLocked() {
	if c.navigated {
		c.mu.Unlock()
		return
	}
	c.navigated = true
	target := c.target
	c.mu.Unlock()

	c.navigate(target)
	close(c.done)
}

func (c *Countdown) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.stopped || c.navigated {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.remaining--
	remaining := c.remaining
	c.mu.Unlock()

	c.onTick(remaining)

	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	if remaining == 0 {
		c.finishLocked()
		return
	}
	c.scheduleLocked()
	c.mu.Unlock()
}
