package osc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"no args", Message{Addr: "/ping"}},
		{"mixed args", Message{Addr: "/set_hidden_param", Args: []any{int32(2), int32(0), int32(17), float32(0.75), "ab12cd34"}}},
		{"string padding", Message{Addr: "/x", Args: []any{"a", "abc", "abcd", "abcde"}}},
		{"negative int", Message{Addr: "/analyze_audio", Args: []any{int32(-1), "req1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.msg.Encode()
			require.NoError(t, err)
			assert.Zero(t, len(data)%4, "OSC packets are 4-byte aligned")

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg.Addr, decoded.Addr)
			assert.Equal(t, tt.msg.Args, decoded.Args)
		})
	}
}

func TestEncodeRejectsUnsupportedType(t *testing.T) {
	_, err := Message{Addr: "/x", Args: []any{3.14}}.Encode() // float64, not float32
	require.Error(t, err)
}

func TestDecodeAddressOnlyDatagram(t *testing.T) {
	// The bridge's response path emits its payload as a bare OSC address
	// with no type tag.
	data := appendPaddedString(nil, "eyJzdGF0dXMiOiJzdWNjZXNzIn0")
	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "eyJzdGF0dXMiOiJzdWNjZXNzIn0", msg.Addr)
	assert.Empty(t, msg.Args)
}

func TestDecodeTruncatedArgument(t *testing.T) {
	msg := Message{Addr: "/x", Args: []any{int32(1)}}
	data, err := msg.Encode()
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-2])
	require.Error(t, err)
}
