package zigbee

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/zigbee-light/internal/zcl"
)

var testNetwork = Network{
	Channel:  15,
	PanID:    0x1a62,
	ExtPanID: [8]byte{0xdd, 0xdd, 0xdd, 0xdd, 0xdd, 0xdd, 0xdd, 0xdd},
}

type harness struct {
	stack   *SimStack
	signals chan Signal
	cancel  context.CancelFunc
	done    chan error
}

func startSim(t *testing.T, store *CredentialStore) *harness {
	t.Helper()
	s := NewSimStack(SimConfig{Networks: []Network{testNetwork}}, store, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		stack:   s,
		signals: make(chan Signal, 16),
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() {
		h.done <- s.Run(ctx, func(sig Signal) { h.signals <- sig })
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
		s.Close()
	})
	return h
}

func (h *harness) next(t *testing.T) Signal {
	t.Helper()
	select {
	case sig := <-h.signals:
		return sig
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
	return Signal{}
}

func memStore(t *testing.T) *CredentialStore {
	t.Helper()
	s, err := OpenCredentialStore("")
	require.NoError(t, err)
	return s
}

func TestSimStartRequiresInitialize(t *testing.T) {
	s := NewSimStack(SimConfig{}, memStore(t), zerolog.Nop())
	assert.ErrorIs(t, s.Start(), ErrNotInitialized)
	assert.ErrorIs(t, s.StartCommissioning(ModeInitialization), ErrNotInitialized)
}

func TestSimSetChannelRange(t *testing.T) {
	s := NewSimStack(SimConfig{}, memStore(t), zerolog.Nop())
	assert.Error(t, s.SetChannel(10))
	assert.Error(t, s.SetChannel(27))
	assert.NoError(t, s.SetChannel(11))
	assert.NoError(t, s.SetChannel(26))
}

func TestSimJoinCycle(t *testing.T) {
	h := startSim(t, memStore(t))
	s := h.stack

	require.NoError(t, s.Initialize(RoleRouter, 16))
	require.NoError(t, s.SetChannel(11))
	require.NoError(t, s.Start())
	assert.Equal(t, SignalStackInitialized, h.next(t).Type)

	require.NoError(t, s.StartCommissioning(ModeInitialization))
	sig := h.next(t)
	assert.Equal(t, SignalDeviceFirstStart, sig.Type)
	assert.True(t, sig.OK())

	require.NoError(t, s.StartCommissioning(ModeNetworkSteering))
	sig = h.next(t)
	assert.Equal(t, SignalSteering, sig.Type)
	assert.ErrorIs(t, sig.Err, ErrNoNetwork)
	assert.Zero(t, s.PanID())

	require.NoError(t, s.SetChannel(testNetwork.Channel))
	require.NoError(t, s.StartCommissioning(ModeNetworkSteering))
	sig = h.next(t)
	assert.Equal(t, SignalSteering, sig.Type)
	assert.True(t, sig.OK())
	assert.Equal(t, testNetwork.PanID, s.PanID())
	assert.Equal(t, testNetwork.ExtPanID, s.ExtendedPanID())
}

func TestSimRebootWithCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zigbee.db")

	store, err := OpenCredentialStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(Credentials{Channel: 15, PanID: 0x1a62}))
	require.NoError(t, store.Close())

	store, err = OpenCredentialStore(path)
	require.NoError(t, err)
	h := startSim(t, store)

	require.NoError(t, h.stack.Initialize(RoleRouter, 16))
	require.NoError(t, h.stack.Start())
	h.next(t)
	require.NoError(t, h.stack.StartCommissioning(ModeInitialization))
	assert.Equal(t, SignalDeviceReboot, h.next(t).Type)
	assert.Equal(t, uint16(0x1a62), h.stack.PanID())
}

func TestSimFactoryResetClearsCredentials(t *testing.T) {
	store := memStore(t)
	h := startSim(t, store)
	s := h.stack

	require.NoError(t, s.Initialize(RoleRouter, 16))
	require.NoError(t, s.SetChannel(testNetwork.Channel))
	require.NoError(t, s.Start())
	h.next(t)
	require.NoError(t, s.StartCommissioning(ModeNetworkSteering))
	require.True(t, h.next(t).OK())

	require.NoError(t, s.FactoryReset())

	assert.Equal(t, SignalStackInitialized, h.next(t).Type)
	assert.Zero(t, s.PanID())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoCredentials)

	require.NoError(t, s.StartCommissioning(ModeInitialization))
	assert.Equal(t, SignalDeviceFirstStart, h.next(t).Type)
}

func TestSimFactoryResetDropsInFlightSteering(t *testing.T) {
	s := NewSimStack(SimConfig{Networks: []Network{{Channel: 11, PanID: 0x1111}}}, memStore(t), zerolog.Nop())
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Initialize(RoleRouter, 16))
	require.NoError(t, s.SetChannel(12))
	require.NoError(t, s.Start())
	require.NoError(t, s.StartCommissioning(ModeNetworkSteering))
	// StackInitialized and the steering failure are both queued.
	require.Eventually(t, func() bool { return len(s.events) == 2 }, 2*time.Second, time.Millisecond)

	require.NoError(t, s.FactoryReset())
	require.NoError(t, s.SetChannel(11))
	// A steering attempt whose timer fired just before the reset.
	s.finishSteering(11, 0)
	assert.Zero(t, s.PanID(), "stale steering must not join")

	signals := make(chan Signal, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, func(sig Signal) { signals <- sig }) }()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case sig := <-signals:
		assert.Equal(t, SignalStackInitialized, sig.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no StackInitialized after reset")
	}
	select {
	case sig := <-signals:
		t.Fatalf("unexpected signal after reset: %v", sig.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSimInjectAttributeWrite(t *testing.T) {
	h := startSim(t, memStore(t))
	got := make(chan AttributeWrite, 1)
	h.stack.OnAttributeWrite(func(w AttributeWrite) { got <- w })

	w := AttributeWrite{Endpoint: LightEndpoint, Cluster: zcl.ClusterOnOff, Attribute: zcl.AttrOnOff, Value: zcl.Bool(true)}
	require.NoError(t, h.stack.InjectAttributeWrite(context.Background(), w))

	select {
	case recv := <-got:
		assert.Equal(t, w, recv)
	case <-time.After(2 * time.Second):
		t.Fatal("attribute write not delivered")
	}
}

func TestSimRunStopsOnClose(t *testing.T) {
	s := NewSimStack(SimConfig{}, memStore(t), zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), func(Signal) {}) }()

	require.NoError(t, s.Close())
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.ErrorIs(t, s.InjectAttributeWrite(context.Background(), AttributeWrite{}), ErrClosed)
}

func TestCredentialStoreBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")
	s, err := OpenCredentialStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoCredentials)

	want := Credentials{Channel: 20, PanID: 0xBEEF, ExtPanID: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want.Channel, got.Channel)
	assert.Equal(t, want.PanID, got.PanID)
	assert.Equal(t, want.ExtPanID, got.ExtPanID)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestSimDeviceIdentity(t *testing.T) {
	s := NewSimStack(SimConfig{}, nil, zerolog.Nop())
	dev := s.Device()
	assert.Equal(t, "Espressif", dev.Manufacturer)
	assert.Equal(t, "ESP32C6 Light Example", dev.Model)
	assert.Equal(t, uint8(0x01), dev.PowerSource)

	custom := DefaultDeviceInfo()
	custom.Model = "Hallway Lamp"
	s = NewSimStack(SimConfig{Device: custom}, nil, zerolog.Nop())
	assert.Equal(t, "Hallway Lamp", s.Device().Model)
}

func TestSignalTypeString(t *testing.T) {
	assert.Equal(t, "STEERING", SignalSteering.String())
	assert.Equal(t, "SIGNAL_42", SignalType(42).String())
	assert.Equal(t, "network-steering", ModeNetworkSteering.String())
}
