// Package gesture classifies button activity into a light toggle (every
// press) and a factory reset (a press held past LongPressDeadline).
package gesture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/zigbee-light/internal/light"
)

// LongPressDeadline is how long the button must be held to factory reset.
const LongPressDeadline = 10 * time.Second

// Raw button levels. The button pulls the line low when pressed.
const (
	LevelPressed  = 0
	LevelReleased = 1
)

// Button is the edge-triggered input. Edges delivers at most one pending
// resume; Level reads the pin at handling time.
type Button interface {
	Level() (int, error)
	Edges() <-chan struct{}
}

// Timer is the countdown used to detect a long press.
type Timer interface {
	Reset()
	Arm(d time.Duration)
	Stop()
	C() <-chan struct{}
}

// Light is toggled on every press.
type Light interface {
	Toggle() light.State
}

// Resetter performs the factory reset.
type Resetter interface {
	RequestFactoryReset(ctx context.Context) error
}

// State is the controller's view of the button.
type State int

const (
	StateIdle State = iota
	StatePressed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePressed:
		return "PRESSED"
	}
	return fmt.Sprintf("STATE_%d", int(s))
}

// Counts tracks gestures since startup.
type Counts struct {
	Presses     int
	Releases    int
	LongPresses int
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State  State
	Armed  bool
	Counts Counts
}

// Controller owns the countdown timer and reacts to button edges and expiry.
type Controller struct {
	button   Button
	timer    Timer
	light    Light
	resetter Resetter
	deadline time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	state  State
	armed  bool
	counts Counts
}

// NewController creates a Controller in StateIdle.
func NewController(button Button, timer Timer, l Light, r Resetter, logger zerolog.Logger) *Controller {
	return &Controller{
		button:   button,
		timer:    timer,
		light:    l,
		resetter: r,
		deadline: LongPressDeadline,
		logger:   logger.With().Str("component", "gesture").Logger(),
	}
}

// Run runs the input task and the reset task until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.RunInput(ctx) })
	g.Go(func() error { return c.RunReset(ctx) })
	return g.Wait()
}

// RunInput waits for button edges and classifies each one.
func (c *Controller) RunInput(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.button.Edges():
			c.handleEdge()
		}
	}
}

// RunReset waits for the countdown to expire and performs the factory reset
// outside the alarm callback.
func (c *Controller) RunReset(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.timer.C():
			c.handleExpiry(ctx)
		}
	}
}

// Snapshot returns the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Armed: c.armed, Counts: c.counts}
}

func (c *Controller) handleEdge() {
	level, err := c.button.Level()
	if err != nil {
		c.logger.Error().Err(err).Msg("read button level")
		return
	}

	if level != LevelPressed {
		c.mu.Lock()
		c.timer.Stop()
		c.armed = false
		if c.state == StatePressed {
			c.counts.Releases++
		}
		c.state = StateIdle
		c.mu.Unlock()
		c.logger.Debug().Msg("button released")
		return
	}

	c.mu.Lock()
	c.timer.Reset()
	c.timer.Arm(c.deadline)
	c.armed = true
	c.state = StatePressed
	c.counts.Presses++
	c.mu.Unlock()

	st := c.light.Toggle()
	c.logger.Debug().Bool("on", st.On).Msg("button pressed")
}

func (c *Controller) handleExpiry(ctx context.Context) {
	c.mu.Lock()
	c.armed = false
	c.counts.LongPresses++
	c.mu.Unlock()

	c.logger.Warn().Dur("held", c.deadline).Msg("long press, factory reset")
	if err := c.resetter.RequestFactoryReset(ctx); err != nil {
		c.logger.Error().Err(err).Msg("factory reset")
	}
}
