package zcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		dataType uint8
		raw      []byte
		kind     Kind
		want     uint16
	}{
		{"bool true", TypeBool, []byte{0x01}, KindBool, 1},
		{"bool false", TypeBool, []byte{0x00}, KindBool, 0},
		{"uint8", TypeUint8, []byte{0xFE}, KindUint8, 0xFE},
		{"enum8", TypeEnum8, []byte{0x02}, KindUint8, 2},
		{"uint16 little endian", TypeUint16, []byte{0x34, 0x12}, KindUint16, 0x1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.dataType, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.Uint16())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(TypeUint16, []byte{0x01})
	assert.ErrorIs(t, err, ErrShortPayload)

	_, err = Decode(TypeBool, nil)
	assert.ErrorIs(t, err, ErrShortPayload)

	_, err = Decode(0x42, []byte("abc"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValueAccessors(t *testing.T) {
	assert.True(t, Bool(true).Bool())
	assert.False(t, Bool(false).Bool())
	assert.True(t, Uint8(7).Bool())
	assert.Equal(t, uint8(0x34), Uint16(0x1234).Uint8())
	assert.Equal(t, "4660", Uint16(0x1234).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "<invalid>", Value{}.String())
}

func TestEncodeRoundTrip(t *testing.T) {
	assert.Equal(t, []byte{0x34, 0x12}, Encode(Uint16(0x1234)))
	assert.Equal(t, []byte{0x01}, Encode(Bool(true)))
	assert.Equal(t, []byte{0x80}, Encode(Uint8(0x80)))
}

func TestFormatExtPanID(t *testing.T) {
	id := [8]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	assert.Equal(t, "08:07:06:05:04:03:02:01", FormatExtPanID(id))

	parsed, err := ParseExtPanID("08:07:06:05:04:03:02:01")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseExtPanIDInvalid(t *testing.T) {
	for _, s := range []string{"", "01:02", "zz:07:06:05:04:03:02:01", "8:07:06:05:04:03:02:01"} {
		_, err := ParseExtPanID(s)
		assert.Error(t, err, s)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Color Control", ClusterName(ClusterColorControl))
	assert.Equal(t, "0x0702", ClusterName(0x0702))
	assert.Equal(t, "CurrentX", AttributeName(ClusterColorControl, AttrCurrentX))
	assert.Equal(t, "0x4001", AttributeName(ClusterOnOff, 0x4001))
}
