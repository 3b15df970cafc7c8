package gesture

import (
	"sync"
	"time"
)

// Countdown is a single-shot timer with the shape of a hardware countdown:
// it is reset to zero, armed with an alarm, and stopped. When the alarm
// fires the callback stops the timer and latches one expiry into C.
type Countdown struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	c     chan struct{}
}

// NewCountdown returns a stopped Countdown.
func NewCountdown() *Countdown {
	return &Countdown{c: make(chan struct{}, 1)}
}

// Reset zeroes the count: any running alarm is cancelled and a stale latched
// expiry from an earlier arm is discarded.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	select {
	case <-c.c:
	default:
	}
}

// Arm starts counting towards an alarm after d.
func (c *Countdown) Arm(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	gen := c.gen
	c.timer = time.AfterFunc(d, func() { c.alarm(gen) })
}

// Stop cancels a pending alarm. An expiry that already fired stays latched.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// C delivers one value per expiry.
func (c *Countdown) C() <-chan struct{} {
	return c.c
}

func (c *Countdown) alarm(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A Stop or re-Arm raced with this callback; the alarm belongs to a
	// cancelled countdown.
	if gen != c.gen {
		return
	}
	c.timer = nil
	c.gen++
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// stopLocked must be called with mu held.
func (c *Countdown) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}
