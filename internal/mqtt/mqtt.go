// Package mqtt reports the light over MQTT and accepts remote commands.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/zigbee-light/internal/light"
)

// Topic leaves under the configured prefix.
const (
	LeafState  = "state"
	LeafSystem = "system"
	LeafSet    = "set"
)

// Topics derives the topic names from a prefix such as "zigbee-light".
type Topics struct {
	Prefix string
}

func (t Topics) State() string  { return t.Prefix + "/" + LeafState }
func (t Topics) System() string { return t.Prefix + "/" + LeafSystem }
func (t Topics) Set() string    { return t.Prefix + "/" + LeafSet }

// Publisher publishes light state and system events.
type Publisher interface {
	// PublishState sends the light state. Errors are reported but must not
	// stop the daemon.
	PublishState(st light.State) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event such as STARTUP, JOINED or HEARTBEAT.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string
	RawPayload []byte // pre-formatted JSON; FormatSystemPayload returns it as is
	Retained   bool
}

// StatePayload is the retained light state message.
type StatePayload struct {
	State      string  `json:"state"`
	Brightness uint8   `json:"brightness"`
	Hue        uint8   `json:"hue"`
	Saturation uint8   `json:"saturation"`
	Color      ColorXY `json:"color"`
	ColorMode  uint8   `json:"color_mode"`
	Timestamp  string  `json:"timestamp"`
}

// ColorXY is a CIE xy colour in ZCL units (0..65279).
type ColorXY struct {
	X uint16 `json:"x"`
	Y uint16 `json:"y"`
}

// FormatStatePayload creates the JSON payload for a light state.
func FormatStatePayload(st light.State, now time.Time) ([]byte, error) {
	return json.Marshal(StatePayload{
		State:      light.OnOffString(st.On),
		Brightness: st.Level,
		Hue:        st.Hue,
		Saturation: st.Saturation,
		Color:      ColorXY{X: st.ColorX, Y: st.ColorY},
		ColorMode:  st.ColorMode,
		Timestamp:  now.UTC().Format(time.RFC3339),
	})
}

// SystemPayload is used for events that carry no status snapshot (will,
// reconnect).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
