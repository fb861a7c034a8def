package daw

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// MaxLineBytes caps a single JSON line in either direction. A frame at or
// above the cap is a protocol error; the connection stays usable.
const MaxLineBytes = 16 << 20

// encodeFrame serializes cmd as a single JSON line. The size check runs
// before any bytes hit the wire so an oversized payload never corrupts
// the stream.
func encodeFrame(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, dawerr.Wrap(dawerr.KindProtocol, err, "encoding command %q", cmd.Type)
	}
	if len(data)+1 >= MaxLineBytes {
		return nil, dawerr.New(dawerr.KindProtocol,
			"command %q payload is %d bytes, exceeds the %d byte frame limit",
			cmd.Type, len(data), MaxLineBytes)
	}
	return append(data, '\n'), nil
}

// readFrame reads one newline-terminated JSON response. On an oversized
// line it consumes through the next newline, leaving the reader aligned
// for the following caller, and reports a protocol error.
func readFrame(r *bufio.Reader) (*Response, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, dawerr.Wrap(dawerr.KindProtocol, err, "malformed response frame")
	}
	if resp.Status == "" {
		return nil, dawerr.New(dawerr.KindProtocol, "response frame missing status field")
	}
	return &resp, nil
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) >= MaxLineBytes {
			drainLine(r, err == bufio.ErrBufferFull)
			return nil, dawerr.New(dawerr.KindProtocol,
				"response line exceeds the %d byte frame limit", MaxLineBytes)
		}
		switch err {
		case nil:
			return buf[:len(buf)-1], nil
		case bufio.ErrBufferFull:
			continue
		default:
			return nil, fmt.Errorf("reading response line: %w", err)
		}
	}
}

// drainLine discards the remainder of an over-long line so the next read
// starts at a frame boundary.
func drainLine(r *bufio.Reader, incomplete bool) {
	if !incomplete {
		return
	}
	for {
		_, err := r.ReadSlice('\n')
		if err != bufio.ErrBufferFull {
			return
		}
	}
}

// writeFrame writes an encoded frame in full.
func writeFrame(w io.Writer, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing command frame: %w", err)
	}
	return nil
}
