// Package zigbee defines the boundary to the Zigbee protocol stack: the calls
// the light makes into it and the signals it emits back.
package zigbee

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweeney/zigbee-light/internal/zcl"
)

// Endpoint description of the light.
const (
	LightEndpoint  uint8  = 0x01
	LightProfileID uint16 = 0x0104
	LightDeviceID  uint16 = 0x0005
)

// DeviceInfo is the identity the light reports in its Basic cluster and the
// colour features it advertises.
type DeviceInfo struct {
	Manufacturer      string
	Model             string
	ZCLVersion        uint8
	AppVersion        uint8
	PowerSource       uint8  // 0x01 mains, single phase
	ColorCapabilities uint16 // bit 0 hue/saturation, bit 3 xy
}

// DefaultDeviceInfo returns the factory identity of the light.
func DefaultDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Manufacturer:      "Espressif",
		Model:             "ESP32C6 Light Example",
		ZCLVersion:        0x03,
		AppVersion:        0x01,
		PowerSource:       0x01,
		ColorCapabilities: 0x0009,
	}
}

var (
	ErrNotInitialized = errors.New("zigbee: stack not initialized")
	ErrClosed         = errors.New("zigbee: stack closed")
)

// Role is the device type the stack runs as.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleRouter      Role = "router"
	RoleEndDevice   Role = "end_device"
)

// Mode selects the top-level commissioning step.
type Mode int

const (
	ModeInitialization Mode = iota
	ModeNetworkSteering
)

func (m Mode) String() string {
	switch m {
	case ModeInitialization:
		return "initialization"
	case ModeNetworkSteering:
		return "network-steering"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// SignalType identifies a lifecycle signal.
type SignalType int

const (
	SignalStackInitialized SignalType = iota + 1
	SignalDeviceFirstStart
	SignalDeviceReboot
	SignalSteering
	SignalDeviceAnnounce
	SignalLeave
)

func (t SignalType) String() string {
	switch t {
	case SignalStackInitialized:
		return "STACK_INITIALIZED"
	case SignalDeviceFirstStart:
		return "DEVICE_FIRST_START"
	case SignalDeviceReboot:
		return "DEVICE_REBOOT"
	case SignalSteering:
		return "STEERING"
	case SignalDeviceAnnounce:
		return "DEVICE_ANNOUNCE"
	case SignalLeave:
		return "LEAVE"
	}
	return fmt.Sprintf("SIGNAL_%d", int(t))
}

// Signal is a lifecycle notification. Err is nil on success.
type Signal struct {
	Type SignalType
	Err  error
}

// OK reports whether the signal carries a success status.
func (s Signal) OK() bool {
	return s.Err == nil
}

// AttributeWrite is a single attribute update set by a remote peer.
type AttributeWrite struct {
	Endpoint  uint8
	Cluster   uint16
	Attribute uint16
	Value     zcl.Value
}

// Stack is the protocol collaborator.
type Stack interface {
	Initialize(role Role, maxChildren uint8) error
	SetChannel(channel uint8) error
	Start() error
	StartCommissioning(mode Mode) error
	OnAttributeWrite(fn func(AttributeWrite))
	FactoryReset() error
	PanID() uint16
	ExtendedPanID() [8]byte

	// Run is the stack's driving loop. It delivers signals to handler and
	// attribute writes to the registered callback until ctx is cancelled.
	Run(ctx context.Context, handler func(Signal)) error

	Close() error
}
