package mqtt

import (
	"sync"
	"time"

	"github.com/sweeney/zigbee-light/internal/light"
)

// FakePublisher records published messages for test assertions. It is safe
// for use from a Reporter goroutine.
type FakePublisher struct {
	mu sync.Mutex

	states         []light.State
	statePayloads  [][]byte
	systemEvents   []SystemEvent
	systemPayloads [][]byte

	// PublishStateError, if set, is returned by PublishState.
	PublishStateError error

	// PublishSystemError, if set, is returned by PublishSystem.
	PublishSystemError error

	closed    bool
	connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishState records the light state.
func (f *FakePublisher) PublishState(st light.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishStateError != nil {
		return f.PublishStateError
	}
	payload, err := FormatStatePayload(st, time.Now())
	if err != nil {
		return err
	}
	f.states = append(f.states, st)
	f.statePayloads = append(f.statePayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.systemEvents = append(f.systemEvents, event)
	f.systemPayloads = append(f.systemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// IsConnected reports the value set by SetConnected.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetConnected controls IsConnected.
func (f *FakePublisher) SetConnected(c bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = c
}

// SetPublishStateError sets PublishStateError while a Reporter may be
// publishing.
func (f *FakePublisher) SetPublishStateError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PublishStateError = err
}

// States returns the published light states.
func (f *FakePublisher) States() []light.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]light.State(nil), f.states...)
}

// StatePayloads returns the published state payloads.
func (f *FakePublisher) StatePayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.statePayloads...)
}

// SystemEvents returns the published system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// SystemPayloads returns the published system payloads.
func (f *FakePublisher) SystemPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.systemPayloads...)
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = nil
	f.statePayloads = nil
	f.systemEvents = nil
	f.systemPayloads = nil
	f.PublishStateError = nil
	f.PublishSystemError = nil
	f.closed = false
	f.connected = false
}
