// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called. Timers registered with AfterFunc fire
// when the clock advances past their deadline.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{
		current: initial,
	}
	clock.timersChanged = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for testing. Time advances only
// when Advance is called.
//
// AfterFunc callbacks are invoked synchronously during Advance in
// deadline order. Do not call Advance from within an AfterFunc
// callback — that would deadlock.
type FakeClock struct {
	mu            sync.Mutex
	current       time.Time
	timers        []*fakeTimer
	timersChanged *sync.Cond
}

// fakeTimer represents a pending AfterFunc call.
type fakeTimer struct {
	deadline time.Time

	// callback is invoked synchronously during Advance.
	callback func()

	// stopped is set by Timer.Stop. Stopped timers are skipped during
	// Advance and garbage-collected.
	stopped bool

	// fired is set after the timer fires. Prevents double-firing on
	// overlapping Advance calls.
	fired bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc schedules f to be called after duration d. If d <= 0, f is
// called synchronously before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d <= 0 {
		c.mu.Unlock()
		f()
		c.mu.Lock()
		return &Timer{
			stopFunc: func() bool { return false },
		}
	}

	timer := &fakeTimer{
		deadline: c.current.Add(d),
		callback: f,
	}
	c.timers = append(c.timers, timer)
	c.timersChanged.Broadcast()

	return &Timer{
		stopFunc: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if timer.stopped || timer.fired {
				return false
			}
			timer.stopped = true
			return true
		},
	}
}

// Advance moves the clock forward by d and fires all timers whose
// deadlines fall within the new time, synchronously, in deadline order
// for determinism. The clock steps to each timer's deadline before its
// callback runs, so a callback observes its firing time through Now,
// and a timer it registers within the advanced window fires in the
// same Advance call, after the batch that registered it.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		toFire := c.collectExpired(target)
		if len(toFire) == 0 {
			break
		}

		sort.Slice(toFire, func(i, j int) bool {
			return toFire[i].deadline.Before(toFire[j].deadline)
		})

		for _, timer := range toFire {
			c.stepTo(timer.deadline)
			timer.callback()
		}
	}

	c.stepTo(target)
}

// stepTo raises the clock to t. The clock never moves backwards;
// stepping to an instant already passed is a no-op.
func (c *FakeClock) stepTo(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.current) {
		c.current = t
	}
}

// collectExpired removes expired timers from the pending list and
// returns the ones that should fire. Must be called without c.mu held
// (acquires it internally).
func (c *FakeClock) collectExpired(target time.Time) []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toFire []*fakeTimer
	var remaining []*fakeTimer

	for _, timer := range c.timers {
		if timer.stopped {
			continue
		}
		if !timer.deadline.After(target) {
			timer.fired = true
			toFire = append(toFire, timer)
		} else {
			remaining = append(remaining, timer)
		}
	}

	c.timers = remaining
	return toFire
}

// WaitForTimers blocks until at least n timers are pending (registered
// but not yet fired). This synchronization primitive eliminates the
// race between a goroutine registering a timer and the test advancing
// the clock.
//
// Example:
//
//	go startSessionWithWatchdog(fakeClock)
//	fakeClock.WaitForTimers(1)       // blocks until the watchdog arms
//	fakeClock.Advance(1 * time.Hour) // deterministically fires it
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingCountLocked() < n {
		c.timersChanged.Wait()
	}
}

// PendingCount returns the number of active (non-stopped, non-fired)
// pending timers. Useful for asserting that a timer was cancelled.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingCountLocked()
}

// pendingCountLocked returns the number of active timers. Must be
// called with c.mu held.
func (c *FakeClock) pendingCountLocked() int {
	count := 0
	for _, timer := range c.timers {
		if !timer.stopped {
			count++
		}
	}
	return count
}
