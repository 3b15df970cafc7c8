package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sweeney/zigbee-light/internal/zcl"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

// ZCL ColorMode values written alongside colour commands.
const (
	colorModeHueSat uint8 = 0
	colorModeXY     uint8 = 1
)

const (
	maxLevel = 254
	maxXY    = 0xFEFF
)

// ErrEmptyCommand is returned for a command with no recognised field.
var ErrEmptyCommand = errors.New("mqtt: command sets nothing")

// Command is the JSON accepted on the set topic. Absent fields are left
// unchanged.
type Command struct {
	State      *string   `json:"state,omitempty"`
	Brightness *int      `json:"brightness,omitempty"`
	Hue        *int      `json:"hue,omitempty"`
	Saturation *int      `json:"saturation,omitempty"`
	Color      *ColorCmd `json:"color,omitempty"`
}

// ColorCmd is the xy part of a Command.
type ColorCmd struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ParseCommand decodes a set payload into the attribute writes a remote
// controller would send to the light endpoint.
func ParseCommand(payload []byte) ([]zigbee.AttributeWrite, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	return cmd.Writes()
}

// Writes converts the command, validating every field first.
func (c Command) Writes() ([]zigbee.AttributeWrite, error) {
	var writes []zigbee.AttributeWrite
	add := func(cluster, attr uint16, v zcl.Value) {
		writes = append(writes, zigbee.AttributeWrite{
			Endpoint:  zigbee.LightEndpoint,
			Cluster:   cluster,
			Attribute: attr,
			Value:     v,
		})
	}

	if c.Brightness != nil {
		if err := inRange("brightness", *c.Brightness, maxLevel); err != nil {
			return nil, err
		}
		add(zcl.ClusterLevelControl, zcl.AttrCurrentLevel, zcl.Uint8(uint8(*c.Brightness)))
	}

	switch {
	case c.Color != nil:
		if err := inRange("color.x", c.Color.X, maxXY); err != nil {
			return nil, err
		}
		if err := inRange("color.y", c.Color.Y, maxXY); err != nil {
			return nil, err
		}
		add(zcl.ClusterColorControl, zcl.AttrCurrentX, zcl.Uint16(uint16(c.Color.X)))
		add(zcl.ClusterColorControl, zcl.AttrCurrentY, zcl.Uint16(uint16(c.Color.Y)))
		add(zcl.ClusterColorControl, zcl.AttrColorMode, zcl.Uint8(colorModeXY))
	case c.Hue != nil || c.Saturation != nil:
		if c.Hue != nil {
			if err := inRange("hue", *c.Hue, maxLevel); err != nil {
				return nil, err
			}
			add(zcl.ClusterColorControl, zcl.AttrCurrentHue, zcl.Uint8(uint8(*c.Hue)))
		}
		if c.Saturation != nil {
			if err := inRange("saturation", *c.Saturation, maxLevel); err != nil {
				return nil, err
			}
			add(zcl.ClusterColorControl, zcl.AttrCurrentSaturation, zcl.Uint8(uint8(*c.Saturation)))
		}
		add(zcl.ClusterColorControl, zcl.AttrColorMode, zcl.Uint8(colorModeHueSat))
	}

	if c.State != nil {
		switch strings.ToUpper(*c.State) {
		case "ON":
			add(zcl.ClusterOnOff, zcl.AttrOnOff, zcl.Bool(true))
		case "OFF":
			add(zcl.ClusterOnOff, zcl.AttrOnOff, zcl.Bool(false))
		default:
			return nil, fmt.Errorf("state %q: want ON or OFF", *c.State)
		}
	}

	if len(writes) == 0 {
		return nil, ErrEmptyCommand
	}
	return writes, nil
}

func inRange(field string, v, limit int) error {
	if v < 0 || v > limit {
		return fmt.Errorf("%s %d out of range 0..%d", field, v, limit)
	}
	return nil
}

// Injector delivers attribute writes through the stack's event loop.
type Injector interface {
	InjectAttributeWrite(ctx context.Context, w zigbee.AttributeWrite) error
}

// CommandHandler turns set-topic messages into attribute writes.
type CommandHandler struct {
	injector Injector
	logger   zerolog.Logger
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(injector Injector, logger zerolog.Logger) *CommandHandler {
	return &CommandHandler{
		injector: injector,
		logger:   logger.With().Str("component", "mqtt-command").Logger(),
	}
}

// Handle parses payload and injects each write in order. Invalid commands are
// logged and dropped.
func (h *CommandHandler) Handle(ctx context.Context, payload []byte) error {
	writes, err := ParseCommand(payload)
	if err != nil {
		h.logger.Warn().Err(err).Bytes("payload", payload).Msg("invalid command")
		return err
	}
	for _, w := range writes {
		if err := h.injector.InjectAttributeWrite(ctx, w); err != nil {
			return fmt.Errorf("inject %s: %w", zcl.AttributeName(w.Cluster, w.Attribute), err)
		}
	}
	h.logger.Debug().Int("writes", len(writes)).Msg("command applied")
	return nil
}
