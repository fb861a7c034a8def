// Package osc implements the deep-API bridge to the in-DAW scripting
// device: a minimal OSC 1.0 codec, the chunked-response envelope, and the
// request/response client that runs over a send/receive UDP port pair.
package osc

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// Message is one OSC 1.0 message. Supported argument types are int32,
// float32, and string — the subset the bridge device speaks.
type Message struct {
	Addr string
	Args []any
}

// Encode serializes the message: padded address, padded ",..." type tag,
// then each argument in wire order.
func (m Message) Encode() ([]byte, error) {
	var tags strings.Builder
	tags.WriteByte(',')
	for _, a := range m.Args {
		switch a.(type) {
		case int32:
			tags.WriteByte('i')
		case float32:
			tags.WriteByte('f')
		case string:
			tags.WriteByte('s')
		default:
			return nil, fmt.Errorf("unsupported OSC argument type %T", a)
		}
	}

	buf := appendPaddedString(nil, m.Addr)
	buf = appendPaddedString(buf, tags.String())
	for _, a := range m.Args {
		switch v := a.(type) {
		case int32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(v))
		case float32:
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
		case string:
			buf = appendPaddedString(buf, v)
		}
	}
	return buf, nil
}

// Decode parses one OSC message. A datagram without a type tag decodes as
// an address-only message: the bridge's response path wraps its payload as
// the outlet symbol, which arrives as a bare OSC address.
func Decode(data []byte) (Message, error) {
	addr, rest, err := readPaddedString(data)
	if err != nil {
		return Message{}, dawerr.Wrap(dawerr.KindProtocol, err, "reading OSC address")
	}
	msg := Message{Addr: addr}

	if len(rest) == 0 {
		return msg, nil
	}
	tags, rest, err := readPaddedString(rest)
	if err != nil || !strings.HasPrefix(tags, ",") {
		// No parseable tag string: address-only message.
		return msg, nil
	}
	for _, t := range tags[1:] {
		switch t {
		case 'i':
			if len(rest) < 4 {
				return Message{}, dawerr.New(dawerr.KindProtocol, "truncated OSC int argument")
			}
			msg.Args = append(msg.Args, int32(binary.BigEndian.Uint32(rest)))
			rest = rest[4:]
		case 'f':
			if len(rest) < 4 {
				return Message{}, dawerr.New(dawerr.KindProtocol, "truncated OSC float argument")
			}
			msg.Args = append(msg.Args, math.Float32frombits(binary.BigEndian.Uint32(rest)))
			rest = rest[4:]
		case 's':
			var s string
			s, rest, err = readPaddedString(rest)
			if err != nil {
				return Message{}, dawerr.Wrap(dawerr.KindProtocol, err, "reading OSC string argument")
			}
			msg.Args = append(msg.Args, s)
		default:
			return Message{}, dawerr.New(dawerr.KindProtocol, "unsupported OSC type tag %q", t)
		}
	}
	return msg, nil
}

// appendPaddedString appends s NUL-terminated and zero-padded to a 4-byte
// boundary.
func appendPaddedString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func readPaddedString(data []byte) (string, []byte, error) {
	end := -1
	for i, b := range data {
		if b == 0 {
			end = i
			break
		}
	}
	if end < 0 {
		return "", nil, fmt.Errorf("unterminated OSC string")
	}
	s := string(data[:end])
	// Consume the terminator and padding.
	next := end + 1
	for next%4 != 0 {
		next++
	}
	if next > len(data) {
		next = len(data)
	}
	return s, data[next:], nil
}
