package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/zigbee-light/internal/commission"
	"github.com/sweeney/zigbee-light/internal/gpio"
	"github.com/sweeney/zigbee-light/internal/mqtt"
	"github.com/sweeney/zigbee-light/internal/zcl"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

type rig struct {
	app    *App
	stack  *zigbee.SimStack
	button *gpio.FakeButton
	led    *gpio.FakeLED
	pub    *mqtt.FakePublisher
	cancel context.CancelCauseFunc
	done   chan error
}

func startRig(t *testing.T, networks ...zigbee.Network) *rig {
	t.Helper()
	store, err := zigbee.OpenCredentialStore("")
	require.NoError(t, err)

	r := &rig{
		stack:  zigbee.NewSimStack(zigbee.SimConfig{JoinDelay: 5 * time.Millisecond, Networks: networks}, store, zerolog.Nop()),
		button: gpio.NewFakeButton(),
		led:    gpio.NewFakeLED(),
		pub:    mqtt.NewFakePublisher(),
		done:   make(chan error, 1),
	}
	r.pub.SetConnected(true)
	r.app = New(Options{Role: zigbee.RoleRouter, MaxChildren: 16}, Deps{
		Button:    r.button,
		LED:       r.led,
		Stack:     r.stack,
		Publisher: r.pub,
		MQTT:      r.pub,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancelCause(context.Background())
	r.cancel = cancel
	go func() { r.done <- r.app.Run(ctx) }()
	t.Cleanup(func() {
		cancel(nil)
		<-r.done
		r.stack.Close()
	})
	return r
}

func (r *rig) stop(t *testing.T, cause error) error {
	t.Helper()
	r.cancel(cause)
	select {
	case err := <-r.done:
		r.done <- err
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	return nil
}

func systemEventNames(pub *mqtt.FakePublisher) []string {
	var names []string
	for _, ev := range pub.SystemEvents() {
		names = append(names, ev.Event)
	}
	return names
}

func TestJoinsAfterScanningChannels(t *testing.T) {
	r := startRig(t, zigbee.Network{Channel: 13, PanID: 0x1a62})

	require.Eventually(t, func() bool {
		return r.app.Machine().Snapshot().State == commission.StateJoined
	}, 3*time.Second, 5*time.Millisecond)

	snap := r.app.Machine().Snapshot()
	assert.Equal(t, uint8(13), snap.Channel)
	assert.Equal(t, uint16(0x1a62), snap.PanID)
	assert.Equal(t, 2, snap.Counts.SteeringFailures)

	require.Eventually(t, func() bool {
		names := systemEventNames(r.pub)
		return len(names) >= 2 && names[0] == "STARTUP" && names[len(names)-1] == "JOINED"
	}, time.Second, 5*time.Millisecond)
	assert.True(t, r.app.Tracker().Snapshot().Joined())
}

func TestButtonTogglesLED(t *testing.T) {
	r := startRig(t)

	assert.Equal(t, 0, r.led.Value())

	r.button.Press()
	require.Eventually(t, func() bool { return r.led.Value() == 1 }, time.Second, time.Millisecond)
	r.button.Release()

	require.Eventually(t, func() bool {
		states := r.pub.States()
		return len(states) > 0 && states[len(states)-1].On
	}, time.Second, time.Millisecond)

	r.button.Press()
	require.Eventually(t, func() bool { return r.led.Value() == 0 }, time.Second, time.Millisecond)
	r.button.Release()
}

func TestRemoteWritesReachLight(t *testing.T) {
	r := startRig(t)
	handler := mqtt.NewCommandHandler(r.stack, zerolog.Nop())

	require.NoError(t, handler.Handle(context.Background(), []byte(`{"state":"ON","brightness":200}`)))
	require.Eventually(t, func() bool {
		st := r.app.Light().Snapshot()
		return st.On && st.Level == 200
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, r.led.Value())

	// Writes for attributes the light does not track change nothing.
	require.NoError(t, r.stack.InjectAttributeWrite(context.Background(), zigbee.AttributeWrite{
		Endpoint:  zigbee.LightEndpoint,
		Cluster:   zcl.ClusterBasic,
		Attribute: 0x0005,
		Value:     zcl.Uint8(1),
	}))
	require.NoError(t, handler.Handle(context.Background(), []byte(`{"state":"OFF"}`)))
	require.Eventually(t, func() bool { return r.led.Value() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, uint8(200), r.app.Light().Snapshot().Level)
}

func TestFactoryResetRejoins(t *testing.T) {
	r := startRig(t, zigbee.Network{Channel: 11, PanID: 0xBEEF})

	require.Eventually(t, func() bool {
		return r.app.Machine().Snapshot().State == commission.StateJoined
	}, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, r.app.Machine().RequestFactoryReset(context.Background()))

	require.Eventually(t, func() bool {
		snap := r.app.Machine().Snapshot()
		return snap.State == commission.StateJoined && snap.Counts.FactoryResets == 1
	}, 3*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, name := range systemEventNames(r.pub) {
			if name == "FACTORY_RESET" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestShutdownPublishesReason(t *testing.T) {
	r := startRig(t)

	require.Eventually(t, func() bool { return len(r.pub.SystemEvents()) > 0 }, time.Second, time.Millisecond)
	require.NoError(t, r.stop(t, errors.New("SIGTERM")))

	events := r.pub.SystemEvents()
	last := events[len(events)-1]
	assert.Equal(t, "SHUTDOWN", last.Event)
	assert.Equal(t, "SIGTERM", last.Reason)
	assert.True(t, last.Retained)
	assert.True(t, strings.Contains(string(last.RawPayload), `"reason":"SIGTERM"`))
}

func TestRunWithoutMQTT(t *testing.T) {
	store, err := zigbee.OpenCredentialStore("")
	require.NoError(t, err)
	stack := zigbee.NewSimStack(zigbee.SimConfig{JoinDelay: time.Millisecond, Networks: []zigbee.Network{{Channel: 11}}}, store, zerolog.Nop())
	defer stack.Close()

	a := New(Options{Role: zigbee.RoleRouter}, Deps{Button: gpio.NewFakeButton(), LED: gpio.NewFakeLED(), Stack: stack}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.Machine().Snapshot().State == commission.StateJoined
	}, 3*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestShutdownReason(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, "CANCELLED", shutdownReason(ctx))

	ctx2, cancel2 := context.WithCancelCause(context.Background())
	cancel2(errors.New("SIGINT"))
	assert.Equal(t, "SIGINT", shutdownReason(ctx2))

	assert.Equal(t, "ERROR", shutdownReason(context.Background()))
}
