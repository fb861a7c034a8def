// Package singleton prevents two daemon instances from contending for the
// DAW ports by holding an exclusive bind on a sentinel loopback port.
package singleton

import (
	"fmt"
	"net"
)

// Guard is the held sentinel bind. Close releases it on shutdown.
type Guard struct {
	ln net.Listener
}

// Acquire binds the sentinel port. Failure means another instance is
// already running.
func Acquire(port int) (*Guard, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("another instance appears to be running (sentinel port %d busy): %w", port, err)
	}
	return &Guard{ln: ln}, nil
}

// Close releases the sentinel bind.
func (g *Guard) Close() error {
	return g.ln.Close()
}
