// Package light owns the light's attribute state and keeps the physical
// output in step with it.
package light

import (
	"sync"

	"github.com/rs/zerolog"
)

// State is the light's current attribute set.
type State struct {
	On         bool
	Level      uint8
	Hue        uint8
	Saturation uint8
	ColorX     uint16
	ColorY     uint16
	ColorMode  uint8
}

// Actuator drives the physical output. Apply must be fast and idempotent;
// it is called synchronously after every mutation.
type Actuator interface {
	Apply(s State) error
}

// Store is the single shared State instance. All writers go through it so the
// actuator always sees mutations in the order they were made.
type Store struct {
	mu       sync.Mutex
	state    State
	actuator Actuator
	logger   zerolog.Logger

	obsMu     sync.RWMutex
	observers []func(State)
}

// NewStore creates a Store with the given initial state. The actuator is not
// called until Init or the first mutation.
func NewStore(initial State, actuator Actuator, logger zerolog.Logger) *Store {
	return &Store{
		state:    initial,
		actuator: actuator,
		logger:   logger.With().Str("component", "light").Logger(),
	}
}

// OnChange registers fn to be called with the new state after every mutation.
// Observers run outside the store lock and must not block.
func (s *Store) OnChange(fn func(State)) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

// Init pushes the current state to the actuator, matching the boot-time
// light_init step of the device.
func (s *Store) Init() State {
	s.mu.Lock()
	st := s.state
	s.apply(st)
	s.mu.Unlock()
	return st
}

// Update applies fn to the state and then the result to the actuator.
func (s *Store) Update(fn func(*State)) State {
	s.mu.Lock()
	fn(&s.state)
	st := s.state
	s.apply(st)
	s.mu.Unlock()

	s.notify(st)
	return st
}

// Toggle flips On.
func (s *Store) Toggle() State {
	return s.Update(func(st *State) {
		st.On = !st.On
	})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// apply must be called with mu held.
func (s *Store) apply(st State) {
	if s.actuator == nil {
		return
	}
	if err := s.actuator.Apply(st); err != nil {
		s.logger.Error().Err(err).Msg("apply light state")
		return
	}
	s.logger.Info().Msg(onOffString(st.On, "enabled", "disabled"))
}

func (s *Store) notify(st State) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(st)
	}
}

// OnOffString returns "ON" or "OFF".
func OnOffString(on bool) string {
	return onOffString(on, "ON", "OFF")
}

func onOffString(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}
