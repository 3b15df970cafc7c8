package zigbee

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Network is a network the simulated radio can hear.
type Network struct {
	Channel  uint8
	PanID    uint16
	ExtPanID [8]byte
}

// SimConfig configures a SimStack.
type SimConfig struct {
	// JoinDelay is how long a steering attempt takes.
	JoinDelay time.Duration

	// Networks lists the networks in range; steering succeeds only on a
	// channel that carries one of them.
	Networks []Network

	// Device is the identity announced on the light endpoint. The zero value
	// means DefaultDeviceInfo.
	Device DeviceInfo
}

// ErrNoNetwork is the steering failure status when nothing answers on the
// current channel.
var ErrNoNetwork = errors.New("zigbee: no network found")

type simEvent struct {
	signal *Signal
	write  *AttributeWrite
	epoch  uint64 // reset generation the signal belongs to
}

// SimStack is an in-process Stack. Signals and attribute writes are
// serialised on the Run loop the same way a radio stack's task would deliver
// them.
type SimStack struct {
	cfg    SimConfig
	store  *CredentialStore
	logger zerolog.Logger

	mu          sync.Mutex
	initialized bool
	started     bool
	role        Role
	maxChildren uint8
	channel     uint8
	creds       *Credentials
	onWrite     func(AttributeWrite)
	pending     []*time.Timer
	epoch       uint64 // bumped by FactoryReset

	events    chan simEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewSimStack creates a simulated stack persisting credentials in store.
func NewSimStack(cfg SimConfig, store *CredentialStore, logger zerolog.Logger) *SimStack {
	if cfg.Device == (DeviceInfo{}) {
		cfg.Device = DefaultDeviceInfo()
	}
	return &SimStack{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "zigbee-sim").Logger(),
		events: make(chan simEvent, 32),
		done:   make(chan struct{}),
	}
}

// Initialize configures the device role and loads any persisted credentials.
func (s *SimStack) Initialize(role Role, maxChildren uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.store.Load()
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		return fmt.Errorf("load credentials: %w", err)
	}
	s.role = role
	s.maxChildren = maxChildren
	s.creds = creds
	s.initialized = true
	s.logger.Info().
		Str("role", string(role)).
		Uint8("max_children", maxChildren).
		Uint8("endpoint", LightEndpoint).
		Str("profile_id", fmt.Sprintf("0x%04x", LightProfileID)).
		Str("device_id", fmt.Sprintf("0x%04x", LightDeviceID)).
		Str("manufacturer", s.cfg.Device.Manufacturer).
		Str("model", s.cfg.Device.Model).
		Bool("credentials", creds != nil).
		Msg("stack configured")
	return nil
}

// SetChannel selects the channel for the next steering attempt.
func (s *SimStack) SetChannel(channel uint8) error {
	if channel < 11 || channel > 26 {
		return fmt.Errorf("channel %d out of range 11-26", channel)
	}
	s.mu.Lock()
	s.channel = channel
	s.mu.Unlock()
	return nil
}

// Start brings the stack up and emits StackInitialized.
func (s *SimStack) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	s.started = true
	s.after(0, Signal{Type: SignalStackInitialized})
	return nil
}

// StartCommissioning runs one commissioning step asynchronously; its result
// arrives as a signal on the Run loop.
func (s *SimStack) StartCommissioning(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotInitialized
	}

	switch mode {
	case ModeInitialization:
		sig := Signal{Type: SignalDeviceFirstStart}
		if s.creds != nil {
			sig.Type = SignalDeviceReboot
		}
		s.after(0, sig)
		return nil

	case ModeNetworkSteering:
		channel, epoch := s.channel, s.epoch
		s.afterFunc(s.cfg.JoinDelay, func() {
			s.finishSteering(channel, epoch)
		})
		return nil
	}
	return fmt.Errorf("unsupported commissioning mode %v", mode)
}

func (s *SimStack) finishSteering(channel uint8, epoch uint64) {
	for _, n := range s.cfg.Networks {
		if n.Channel != channel {
			continue
		}
		creds := Credentials{
			Channel:  n.Channel,
			PanID:    n.PanID,
			ExtPanID: n.ExtPanID,
			JoinedAt: time.Now(),
		}
		s.mu.Lock()
		if epoch != s.epoch {
			s.mu.Unlock()
			return
		}
		err := s.store.Save(creds)
		if err == nil {
			s.creds = &creds
		}
		s.mu.Unlock()
		if err != nil {
			s.post(Signal{Type: SignalSteering, Err: fmt.Errorf("save credentials: %w", err)}, epoch)
			return
		}
		s.post(Signal{Type: SignalSteering}, epoch)
		return
	}
	s.post(Signal{Type: SignalSteering, Err: fmt.Errorf("channel %d: %w", channel, ErrNoNetwork)}, epoch)
}

// Device returns the identity announced on the light endpoint.
func (s *SimStack) Device() DeviceInfo {
	return s.cfg.Device
}

// OnAttributeWrite registers the callback for remote attribute writes.
func (s *SimStack) OnAttributeWrite(fn func(AttributeWrite)) {
	s.mu.Lock()
	s.onWrite = fn
	s.mu.Unlock()
}

// InjectAttributeWrite delivers w through the Run loop as if a remote peer
// had written it over the air.
func (s *SimStack) InjectAttributeWrite(ctx context.Context, w AttributeWrite) error {
	select {
	case s.events <- simEvent{write: &w}:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FactoryReset forgets the joined network and restarts the stack.
func (s *SimStack) FactoryReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	for _, t := range s.pending {
		t.Stop()
	}
	s.pending = nil
	s.creds = nil
	s.epoch++
	s.logger.Info().Uint64("epoch", s.epoch).Msg("factory reset, credentials cleared")
	if s.started {
		s.after(0, Signal{Type: SignalStackInitialized})
	}
	return nil
}

// PanID returns the short PAN ID of the joined network, or 0.
func (s *SimStack) PanID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return 0
	}
	return s.creds.PanID
}

// ExtendedPanID returns the extended PAN ID of the joined network.
func (s *SimStack) ExtendedPanID() [8]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return [8]byte{}
	}
	return s.creds.ExtPanID
}

// Run delivers queued signals and attribute writes until ctx is done or the
// stack is closed.
func (s *SimStack) Run(ctx context.Context, handler func(Signal)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return ErrClosed
		case ev := <-s.events:
			switch {
			case ev.signal != nil:
				if s.stale(ev.epoch) {
					s.logger.Debug().Str("signal", ev.signal.Type.String()).Msg("dropping signal from before factory reset")
					continue
				}
				handler(*ev.signal)
			case ev.write != nil:
				s.mu.Lock()
				fn := s.onWrite
				s.mu.Unlock()
				if fn != nil {
					fn(*ev.write)
				}
			}
		}
	}
}

// Close stops pending work and releases the credential store.
func (s *SimStack) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		for _, t := range s.pending {
			t.Stop()
		}
		s.pending = nil
		s.mu.Unlock()
		err = s.store.Close()
	})
	return err
}

func (s *SimStack) stale(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return epoch != s.epoch
}

// after posts sig once d has elapsed. Must be called with mu held.
func (s *SimStack) after(d time.Duration, sig Signal) {
	epoch := s.epoch
	s.afterFunc(d, func() { s.post(sig, epoch) })
}

// afterFunc must be called with mu held.
func (s *SimStack) afterFunc(d time.Duration, fn func()) {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		for i, p := range s.pending {
			if p == t {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		fn()
	})
	s.pending = append(s.pending, t)
}

func (s *SimStack) post(sig Signal, epoch uint64) {
	select {
	case s.events <- simEvent{signal: &sig, epoch: epoch}:
	case <-s.done:
	}
}
