package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/zigbee-light/internal/light"
	"github.com/sweeney/zigbee-light/internal/zcl"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Light         LightJSON   `json:"light"`
	Network       NetworkJSON `json:"network"`
	Button        ButtonJSON  `json:"button"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"counts"`
	Host          *HostJSON   `json:"host,omitempty"`
	Device        DeviceJSON  `json:"device"`
	Config        ConfigJSON  `json:"config"`
}

// LightJSON is the JSON representation of the light state.
type LightJSON struct {
	State      string `json:"state"`
	Brightness uint8  `json:"brightness"`
	Hue        uint8  `json:"hue"`
	Saturation uint8  `json:"saturation"`
	ColorX     uint16 `json:"color_x"`
	ColorY     uint16 `json:"color_y"`
	ColorMode  uint8  `json:"color_mode"`
}

// NetworkJSON is the JSON representation of the join context.
type NetworkJSON struct {
	State     string `json:"state"`
	Joined    bool   `json:"joined"`
	Channel   uint8  `json:"channel"`
	PanID     string `json:"pan_id,omitempty"`
	ExtPanID  string `json:"ext_pan_id,omitempty"`
	LastEvent string `json:"last_event,omitempty"`
}

// ButtonJSON is the JSON representation of the gesture controller.
type ButtonJSON struct {
	State string `json:"state"`
	Armed bool   `json:"armed"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counters.
type CountsJSON struct {
	Presses          int `json:"presses"`
	Releases         int `json:"releases"`
	LongPresses      int `json:"long_presses"`
	SteeringAttempts int `json:"steering_attempts"`
	SteeringFailures int `json:"steering_failures"`
	InitFailures     int `json:"init_failures"`
	FactoryResets    int `json:"factory_resets"`
}

// HostJSON is the JSON representation of host connectivity.
type HostJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// DeviceJSON describes the light endpoint and its Basic cluster identity.
type DeviceJSON struct {
	Endpoint          uint8  `json:"endpoint"`
	ProfileID         string `json:"profile_id"`
	DeviceID          string `json:"device_id"`
	Manufacturer      string `json:"manufacturer"`
	Model             string `json:"model"`
	ZCLVersion        uint8  `json:"zcl_version"`
	AppVersion        uint8  `json:"app_version"`
	PowerSource       uint8  `json:"power_source"`
	ColorCapabilities string `json:"color_capabilities"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Role        string `json:"role"`
	ButtonPin   int    `json:"button_pin"`
	LEDPin      int    `json:"led_pin"`
	Simulated   bool   `json:"simulated"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPListen  string `json:"http_listen"`
}

// FormatPanID renders a PAN ID the way the daemon logs it.
func FormatPanID(id uint16) string {
	return fmt.Sprintf("0x%04x", id)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Light: LightJSON{
			State:      light.OnOffString(snap.Light.On),
			Brightness: snap.Light.Level,
			Hue:        snap.Light.Hue,
			Saturation: snap.Light.Saturation,
			ColorX:     snap.Light.ColorX,
			ColorY:     snap.Light.ColorY,
			ColorMode:  snap.Light.ColorMode,
		},
		Network: NetworkJSON{
			State:     snap.Network.State.String(),
			Joined:    snap.Joined(),
			Channel:   snap.Network.Channel,
			LastEvent: string(snap.LastEvent),
		},
		Button: ButtonJSON{
			State: snap.Gesture.State.String(),
			Armed: snap.Gesture.Armed,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Presses:          snap.Gesture.Counts.Presses,
			Releases:         snap.Gesture.Counts.Releases,
			LongPresses:      snap.Gesture.Counts.LongPresses,
			SteeringAttempts: snap.Network.Counts.SteeringAttempts,
			SteeringFailures: snap.Network.Counts.SteeringFailures,
			InitFailures:     snap.Network.Counts.InitFailures,
			FactoryResets:    snap.Network.Counts.FactoryResets,
		},
		Config: ConfigJSON{
			Role:        snap.Config.Role,
			ButtonPin:   snap.Config.ButtonPin,
			LEDPin:      snap.Config.LEDPin,
			Simulated:   snap.Config.Simulated,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPListen:  snap.Config.HTTPListen,
		},
	}
	inner.Device = DeviceJSON{
		Endpoint:          zigbee.LightEndpoint,
		ProfileID:         fmt.Sprintf("0x%04x", zigbee.LightProfileID),
		DeviceID:          fmt.Sprintf("0x%04x", zigbee.LightDeviceID),
		Manufacturer:      snap.Config.Device.Manufacturer,
		Model:             snap.Config.Device.Model,
		ZCLVersion:        snap.Config.Device.ZCLVersion,
		AppVersion:        snap.Config.Device.AppVersion,
		PowerSource:       snap.Config.Device.PowerSource,
		ColorCapabilities: fmt.Sprintf("0x%04x", snap.Config.Device.ColorCapabilities),
	}
	if snap.Host != nil {
		inner.Host = &HostJSON{
			Type:       snap.Host.Type,
			IP:         snap.Host.IP,
			Status:     snap.Host.Status,
			Gateway:    snap.Host.Gateway,
			WifiStatus: snap.Host.WifiStatus,
			SSID:       snap.Host.SSID,
		}
	}
	if snap.Joined() {
		inner.Network.PanID = FormatPanID(snap.Network.PanID)
		inner.Network.ExtPanID = zcl.FormatExtPanID(snap.Network.ExtPanID)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
