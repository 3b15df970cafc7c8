// Package status provides a thread-safe status tracker for the light daemon.
// It is read by the HTTP handlers and the heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/zigbee-light/internal/commission"
	"github.com/sweeney/zigbee-light/internal/gesture"
	"github.com/sweeney/zigbee-light/internal/light"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

// HostInfo describes the host's IP connectivity as reported by the system
// helper. It is unrelated to the Zigbee network.
type HostInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Role        string
	ButtonPin   int
	LEDPin      int
	Simulated   bool
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPListen  string
	Device      zigbee.DeviceInfo
}

// Snapshot is a point-in-time view of daemon state. It is a value type and
// safe to use after the lock is released.
type Snapshot struct {
	Light         light.State
	Network       commission.Snapshot
	Gesture       gesture.Snapshot
	LastEvent     commission.EventType
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Host          *HostInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Joined reports whether the light is on a network.
func (s Snapshot) Joined() bool {
	return s.Network.State == commission.StateJoined
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Network:   commission.Snapshot{State: commission.StateInit, Channel: commission.MinChannel},
		},
		now: time.Now,
	}
}

// SetLight records the applied light state. It matches the light.Store
// observer signature.
func (t *Tracker) SetLight(st light.State) {
	t.mu.Lock()
	t.snap.Light = st
	t.mu.Unlock()
}

// SetNetwork records the join context.
func (t *Tracker) SetNetwork(n commission.Snapshot) {
	t.mu.Lock()
	t.snap.Network = n
	t.mu.Unlock()
}

// RecordEvent records a commissioning event and the join context it carries.
func (t *Tracker) RecordEvent(ev commission.Event) {
	t.mu.Lock()
	t.snap.LastEvent = ev.Type
	t.snap.Network.State = ev.State
	t.snap.Network.Channel = ev.Channel
	t.snap.Network.PanID = ev.PanID
	t.snap.Network.ExtPanID = ev.ExtPanID
	t.mu.Unlock()
}

// SetGesture records the button controller state.
func (t *Tracker) SetGesture(g gesture.Snapshot) {
	t.mu.Lock()
	t.snap.Gesture = g
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetHost sets the host connectivity info.
func (t *Tracker) SetHost(info *HostInfo) {
	t.mu.Lock()
	t.snap.Host = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state with Now set to
// the time of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
