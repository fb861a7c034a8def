package daw

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// MaxDatagramBytes caps a real-time payload well under typical loopback
// UDP limits.
const MaxDatagramBytes = 8192

// RealtimeSender pushes fire-and-forget parameter updates to the DAW's
// real-time UDP port. No reads, no retries, no ordering guarantee; callers
// own rate limiting.
type RealtimeSender struct {
	mu   sync.Mutex
	conn net.Conn
	log  zerolog.Logger
}

// NewRealtimeSender connects (in the UDP sense) to addr.
func NewRealtimeSender(addr string, log zerolog.Logger) (*RealtimeSender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("opening real-time UDP socket to %s: %w", addr, err)
	}
	return &RealtimeSender{
		conn: conn,
		log:  log.With().Str("component", "realtime").Logger(),
	}, nil
}

// Send emits one datagram and returns immediately.
func (s *RealtimeSender) Send(commandType string, params map[string]any) error {
	payload, err := json.Marshal(Command{Type: commandType, Params: params})
	if err != nil {
		return dawerr.Wrap(dawerr.KindProtocol, err, "encoding real-time %q", commandType)
	}
	if len(payload) > MaxDatagramBytes {
		return dawerr.New(dawerr.KindProtocol,
			"real-time payload is %d bytes, exceeds the %d byte datagram limit",
			len(payload), MaxDatagramBytes)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.Write(payload); err != nil {
		return dawerr.Wrap(dawerr.KindDisconnected, err, "sending real-time %q", commandType)
	}
	return nil
}

// Close releases the socket.
func (s *RealtimeSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}
