package light

import (
	"fmt"
	"sync"
)

// Pin is a single digital output line.
type Pin interface {
	SetValue(value int) error
}

// LEDActuator drives one LED from the On attribute. Brightness and colour
// are tracked in State but a single GPIO line can only show on/off.
type LEDActuator struct {
	pin Pin
}

// NewLEDActuator returns an actuator writing to pin.
func NewLEDActuator(pin Pin) *LEDActuator {
	return &LEDActuator{pin: pin}
}

// Apply sets the pin high when the light is on.
func (a *LEDActuator) Apply(s State) error {
	v := 0
	if s.On {
		v = 1
	}
	if err := a.pin.SetValue(v); err != nil {
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}

// FakeActuator records applied states for test assertions.
type FakeActuator struct {
	mu sync.Mutex

	// Applied contains every state passed to Apply, in order.
	Applied []State

	// ApplyError, if set, is returned by Apply after recording.
	ApplyError error
}

// NewFakeActuator creates a FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// Apply records s.
func (f *FakeActuator) Apply(s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Applied = append(f.Applied, s)
	return f.ApplyError
}

// Calls returns the number of Apply calls so far.
func (f *FakeActuator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Applied)
}

// Last returns the most recently applied state.
func (f *FakeActuator) Last() (State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Applied) == 0 {
		return State{}, false
	}
	return f.Applied[len(f.Applied)-1], true
}

// Reset clears recorded calls.
func (f *FakeActuator) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Applied = nil
	f.ApplyError = nil
}
