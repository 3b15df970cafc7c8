// Package commission drives the network join lifecycle: stack initialization,
// network steering with channel round-robin, and factory reset.
package commission

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sweeney/zigbee-light/internal/zcl"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

// Legal 2.4 GHz Zigbee channels.
const (
	MinChannel uint8 = 11
	MaxChannel uint8 = 26
)

// State is the join lifecycle state.
type State int

const (
	StateInit State = iota
	StateSteering
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSteering:
		return "STEERING"
	case StateJoined:
		return "JOINED"
	}
	return fmt.Sprintf("STATE_%d", int(s))
}

// Stack is the subset of the protocol stack the machine calls into.
type Stack interface {
	Initialize(role zigbee.Role, maxChildren uint8) error
	SetChannel(channel uint8) error
	Start() error
	StartCommissioning(mode zigbee.Mode) error
	FactoryReset() error
	PanID() uint16
	ExtendedPanID() [8]byte
}

// Config holds the stack setup parameters.
type Config struct {
	Role        zigbee.Role
	MaxChildren uint8
}

// Counts tracks lifecycle activity since startup.
type Counts struct {
	SteeringAttempts int
	SteeringFailures int
	InitFailures     int
	FactoryResets    int
}

// Snapshot is a point-in-time copy of the join context.
type Snapshot struct {
	State    State
	Channel  uint8
	PanID    uint16
	ExtPanID [8]byte
	Counts   Counts
}

// Machine owns the network join context. All transitions happen under mu, so
// signals from the stack loop and a reset from the input side never interleave.
type Machine struct {
	stack  Stack
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	state    State
	channel  uint8
	panID    uint16
	extPanID [8]byte
	counts   Counts

	obsMu     sync.RWMutex
	observers []func(Event)
}

// New creates a Machine in StateInit on channel 11.
func New(stack Stack, cfg Config, logger zerolog.Logger) *Machine {
	return &Machine{
		stack:   stack,
		cfg:     cfg,
		logger:  logger.With().Str("component", "commission").Logger(),
		state:   StateInit,
		channel: MinChannel,
	}
}

// NextChannel returns the channel after c, wrapping from 26 back to 11.
func NextChannel(c uint8) uint8 {
	if c < MaxChannel {
		return c + 1
	}
	return MinChannel
}

// OnEvent registers fn to receive lifecycle events. Observers run outside the
// machine lock.
func (m *Machine) OnEvent(fn func(Event)) {
	m.obsMu.Lock()
	m.observers = append(m.observers, fn)
	m.obsMu.Unlock()
}

// Boot configures and starts the stack on the current channel. The stack
// answers with StackInitialized on its run loop.
func (m *Machine) Boot() error {
	m.mu.Lock()
	channel := m.channel
	m.mu.Unlock()

	if err := m.stack.Initialize(m.cfg.Role, m.cfg.MaxChildren); err != nil {
		return fmt.Errorf("initialize stack: %w", err)
	}
	if err := m.stack.SetChannel(channel); err != nil {
		return fmt.Errorf("set channel %d: %w", channel, err)
	}
	if err := m.stack.Start(); err != nil {
		return fmt.Errorf("start stack: %w", err)
	}
	return nil
}

// HandleSignal applies one lifecycle signal. It is the handler passed to the
// stack's run loop.
func (m *Machine) HandleSignal(sig zigbee.Signal) {
	m.mu.Lock()
	var events []Event

	switch sig.Type {
	case zigbee.SignalStackInitialized:
		m.logger.Info().Msg("zigbee stack initialized")
		m.state = StateSteering
		m.startCommissioning(zigbee.ModeInitialization)

	case zigbee.SignalDeviceFirstStart, zigbee.SignalDeviceReboot:
		if sig.OK() {
			m.logger.Info().Str("signal", sig.Type.String()).Msg("network steering started")
			m.state = StateSteering
			m.steer()
			break
		}
		m.logger.Error().Err(sig.Err).Str("signal", sig.Type.String()).Msg("failed to initialize zigbee stack")
		m.state = StateInit
		m.counts.InitFailures++
		events = append(events, m.event(EventInitFailed, sig.Err))

	case zigbee.SignalSteering:
		if sig.OK() {
			m.state = StateJoined
			m.panID = m.stack.PanID()
			m.extPanID = m.stack.ExtendedPanID()
			m.logger.Info().
				Uint8("channel", m.channel).
				Str("pan_id", fmt.Sprintf("0x%04x", m.panID)).
				Str("ext_pan_id", zcl.FormatExtPanID(m.extPanID)).
				Msg("successfully joined network")
			events = append(events, m.event(EventJoined, nil))
			break
		}
		if m.state != StateSteering {
			// A result from an attempt started before a reset or join.
			m.logger.Debug().Err(sig.Err).Str("state", m.state.String()).Msg("ignoring stale steering failure")
			break
		}
		m.logger.Warn().Err(sig.Err).Uint8("channel", m.channel).Msg("network steering failed")
		m.counts.SteeringFailures++
		events = append(events, m.event(EventSteeringFailed, sig.Err))
		m.channel = NextChannel(m.channel)
		if err := m.stack.SetChannel(m.channel); err != nil {
			m.logger.Error().Err(err).Uint8("channel", m.channel).Msg("set channel")
		}
		m.steer()

	default:
		m.logger.Warn().Err(sig.Err).Str("signal", sig.Type.String()).Msg("unhandled zdo signal")
	}

	m.mu.Unlock()
	m.emit(events)
}

// RequestFactoryReset returns the join context to channel 11 in StateInit and
// asks the stack to forget its network. The stack restarts the cycle with a
// new StackInitialized signal.
func (m *Machine) RequestFactoryReset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.logger.Warn().Uint8("channel", m.channel).Str("state", m.state.String()).Msg("factory reset requested")
	m.state = StateInit
	m.channel = MinChannel
	m.panID = 0
	m.extPanID = [8]byte{}
	m.counts.FactoryResets++
	ev := m.event(EventFactoryReset, nil)

	err := m.stack.FactoryReset()
	if err == nil {
		err = m.stack.SetChannel(MinChannel)
	}
	m.mu.Unlock()

	m.emit([]Event{ev})
	if err != nil {
		return fmt.Errorf("factory reset: %w", err)
	}
	return nil
}

// Snapshot returns the current join context.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:    m.state,
		Channel:  m.channel,
		PanID:    m.panID,
		ExtPanID: m.extPanID,
		Counts:   m.counts,
	}
}

// steer must be called with mu held.
func (m *Machine) steer() {
	m.counts.SteeringAttempts++
	m.startCommissioning(zigbee.ModeNetworkSteering)
}

// startCommissioning must be called with mu held.
func (m *Machine) startCommissioning(mode zigbee.Mode) {
	if err := m.stack.StartCommissioning(mode); err != nil {
		m.logger.Error().Err(err).Str("mode", mode.String()).Msg("start commissioning")
	}
}

func (m *Machine) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	m.obsMu.RLock()
	observers := m.observers
	m.obsMu.RUnlock()
	for _, ev := range events {
		for _, fn := range observers {
			fn(ev)
		}
	}
}
