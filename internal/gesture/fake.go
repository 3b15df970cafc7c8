package gesture

import (
	"sync"
	"time"
)

// FakeTimer is a Timer driven by the test instead of the clock.
type FakeTimer struct {
	mu     sync.Mutex
	armed  bool
	resets int
	stops  int
	arms   []time.Duration
	c      chan struct{}
}

// NewFakeTimer returns a stopped FakeTimer.
func NewFakeTimer() *FakeTimer {
	return &FakeTimer{c: make(chan struct{}, 1)}
}

// Reset records a zeroing of the count.
func (f *FakeTimer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

// Arm records d and marks the timer armed.
func (f *FakeTimer) Arm(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arms = append(f.arms, d)
	f.armed = true
}

// Stop disarms the timer.
func (f *FakeTimer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.armed = false
}

// C delivers fired expiries.
func (f *FakeTimer) C() <-chan struct{} {
	return f.c
}

// Fire simulates the alarm. It only latches an expiry while armed and
// reports whether it did.
func (f *FakeTimer) Fire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.armed {
		return false
	}
	f.armed = false
	select {
	case f.c <- struct{}{}:
	default:
	}
	return true
}

// Armed reports whether an alarm is pending.
func (f *FakeTimer) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed
}

// Resets returns the number of Reset calls.
func (f *FakeTimer) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

// Stops returns the number of Stop calls.
func (f *FakeTimer) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// Arms returns the durations passed to Arm.
func (f *FakeTimer) Arms() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.arms...)
}
