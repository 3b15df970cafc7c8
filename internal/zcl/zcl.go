// Package zcl holds the Zigbee Cluster Library identifiers and typed attribute
// values used by the light endpoint.
package zcl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Cluster IDs.
const (
	ClusterBasic        uint16 = 0x0000
	ClusterOnOff        uint16 = 0x0006
	ClusterLevelControl uint16 = 0x0008
	ClusterColorControl uint16 = 0x0300
)

// Basic cluster attributes.
const (
	AttrZCLVersion       uint16 = 0x0000
	AttrAppVersion       uint16 = 0x0001
	AttrManufacturerName uint16 = 0x0004
	AttrModelIdentifier  uint16 = 0x0005
	AttrPowerSource      uint16 = 0x0007
)

// On/Off cluster attributes.
const (
	AttrOnOff uint16 = 0x0000
)

// Level Control cluster attributes.
const (
	AttrCurrentLevel uint16 = 0x0000
)

// Color Control cluster attributes.
const (
	AttrCurrentHue        uint16 = 0x0000
	AttrCurrentSaturation uint16 = 0x0001
	AttrCurrentX          uint16 = 0x0003
	AttrCurrentY          uint16 = 0x0004
	AttrColorMode         uint16 = 0x0008
	AttrEnhancedColorMode uint16 = 0x4002
	AttrColorCapabilities uint16 = 0x400A
)

// ZCL data type IDs.
const (
	TypeBool    uint8 = 0x10
	TypeBitmap8 uint8 = 0x18
	TypeUint8   uint8 = 0x20
	TypeUint16  uint8 = 0x21
	TypeEnum8   uint8 = 0x30
)

var (
	ErrUnsupportedType = errors.New("zcl: unsupported data type")
	ErrShortPayload    = errors.New("zcl: payload too short")
)

// Kind identifies which member of a Value is set.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindUint8
	KindUint16
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	}
	return "invalid"
}

// Value is an attribute payload tagged with its width.
type Value struct {
	kind Kind
	raw  uint16
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, raw: 1}
	}
	return Value{kind: KindBool}
}

// Uint8 returns a one byte Value.
func Uint8(v uint8) Value {
	return Value{kind: KindUint8, raw: uint16(v)}
}

// Uint16 returns a two byte Value.
func Uint16(v uint16) Value {
	return Value{kind: KindUint16, raw: v}
}

// Kind reports the payload width.
func (v Value) Kind() Kind {
	return v.kind
}

// Bool reports whether the low byte is non-zero.
func (v Value) Bool() bool {
	return v.raw&0xFF != 0
}

// Uint8 returns the low byte of the payload.
func (v Value) Uint8() uint8 {
	return uint8(v.raw)
}

// Uint16 returns the payload widened to two bytes.
func (v Value) Uint16() uint16 {
	return v.raw
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case KindUint8:
		return fmt.Sprintf("%d", v.Uint8())
	case KindUint16:
		return fmt.Sprintf("%d", v.raw)
	}
	return "<invalid>"
}

// Decode converts a little-endian attribute payload of the given ZCL data type.
func Decode(dataType uint8, raw []byte) (Value, error) {
	switch dataType {
	case TypeBool:
		if len(raw) < 1 {
			return Value{}, fmt.Errorf("bool: %w", ErrShortPayload)
		}
		return Bool(raw[0] != 0), nil
	case TypeUint8, TypeEnum8, TypeBitmap8:
		if len(raw) < 1 {
			return Value{}, fmt.Errorf("type 0x%02X: %w", dataType, ErrShortPayload)
		}
		return Uint8(raw[0]), nil
	case TypeUint16:
		if len(raw) < 2 {
			return Value{}, fmt.Errorf("uint16: %w", ErrShortPayload)
		}
		return Uint16(binary.LittleEndian.Uint16(raw)), nil
	}
	return Value{}, fmt.Errorf("type 0x%02X: %w", dataType, ErrUnsupportedType)
}

// Encode returns the little-endian wire form of v.
func Encode(v Value) []byte {
	if v.kind == KindUint16 {
		return binary.LittleEndian.AppendUint16(nil, v.raw)
	}
	return []byte{uint8(v.raw)}
}

// FormatExtPanID renders an extended PAN ID most significant byte first,
// i.e. index 7 down to index 0.
func FormatExtPanID(id [8]byte) string {
	parts := make([]string, len(id))
	for i := range id {
		parts[i] = fmt.Sprintf("%02x", id[len(id)-1-i])
	}
	return strings.Join(parts, ":")
}

// ParseExtPanID is the inverse of FormatExtPanID.
func ParseExtPanID(s string) ([8]byte, error) {
	var id [8]byte
	parts := strings.Split(s, ":")
	if len(parts) != len(id) {
		return id, fmt.Errorf("extended pan id %q: want 8 colon separated bytes", s)
	}
	for i, p := range parts {
		var b uint8
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil || len(p) != 2 {
			return id, fmt.Errorf("extended pan id %q: bad byte %q", s, p)
		}
		id[len(id)-1-i] = b
	}
	return id, nil
}

var clusterNames = map[uint16]string{
	ClusterBasic:        "Basic",
	ClusterOnOff:        "On/Off",
	ClusterLevelControl: "Level Control",
	ClusterColorControl: "Color Control",
}

// ClusterName returns a human readable cluster name, or the hex id.
func ClusterName(id uint16) string {
	if n, ok := clusterNames[id]; ok {
		return n
	}
	return fmt.Sprintf("0x%04X", id)
}

var attributeNames = map[[2]uint16]string{
	{ClusterBasic, AttrZCLVersion}:               "ZCLVersion",
	{ClusterBasic, AttrAppVersion}:               "ApplicationVersion",
	{ClusterBasic, AttrManufacturerName}:         "ManufacturerName",
	{ClusterBasic, AttrModelIdentifier}:          "ModelIdentifier",
	{ClusterBasic, AttrPowerSource}:              "PowerSource",
	{ClusterOnOff, AttrOnOff}:                    "OnOff",
	{ClusterLevelControl, AttrCurrentLevel}:      "CurrentLevel",
	{ClusterColorControl, AttrCurrentHue}:        "CurrentHue",
	{ClusterColorControl, AttrCurrentSaturation}: "CurrentSaturation",
	{ClusterColorControl, AttrCurrentX}:          "CurrentX",
	{ClusterColorControl, AttrCurrentY}:          "CurrentY",
	{ClusterColorControl, AttrColorMode}:         "ColorMode",
	{ClusterColorControl, AttrEnhancedColorMode}: "EnhancedColorMode",
	{ClusterColorControl, AttrColorCapabilities}: "ColorCapabilities",
}

// AttributeName returns the attribute name within a cluster, or the hex id.
func AttributeName(cluster, attr uint16) string {
	if n, ok := attributeNames[[2]uint16{cluster, attr}]; ok {
		return n
	}
	return fmt.Sprintf("0x%04X", attr)
}
