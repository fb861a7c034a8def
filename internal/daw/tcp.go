package daw

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/livebridge/livebridge/internal/dawerr"
)

const (
	reconnectInitial = 250 * time.Millisecond
	reconnectCap     = 5 * time.Second
	reconnectBudget  = 10 * time.Second
)

// SendSpec is the per-command policy resolved by the pipeline: response
// deadline, whether a retry after a connection failure is allowed, and the
// settling delay held after success.
type SendSpec struct {
	Timeout    time.Duration
	Idempotent bool
	PostDelay  time.Duration
}

// TCPClient maintains the single long-lived framed connection to the DAW
// scripting endpoint. It exclusively owns the socket and the writer mutex:
// one command is on the wire at a time, and the matching response is read
// before the next caller proceeds.
type TCPClient struct {
	addr        string
	log         zerolog.Logger
	connectOnce sync.Once
	onConnected func()

	mu   sync.Mutex
	conn net.Conn
	br   *bufio.Reader
}

// NewTCPClient creates a client for addr. onConnected fires once, on the
// first successful dial, and is used to set the DAW-connected readiness
// event. It may be nil.
func NewTCPClient(addr string, log zerolog.Logger, onConnected func()) *TCPClient {
	return &TCPClient{
		addr:        addr,
		log:         log.With().Str("component", "tcp").Logger(),
		onConnected: onConnected,
	}
}

// Connect eagerly establishes the connection. Send dials lazily as well,
// so this exists only to surface reachability at startup and to set the
// readiness event early.
func (c *TCPClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(ctx)
}

// Send performs one serialized round-trip. Under the writer mutex it
// connects if needed, writes the frame, reads exactly one response, and on
// a connection-level failure reconnects and retries once when spec allows.
// The post-delay is held before the mutex is released so the DAW settles
// before the next command.
func (c *TCPClient) Send(ctx context.Context, cmd Command, spec SendSpec) (*Response, error) {
	frame, err := encodeFrame(cmd)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	attempts := 1
	if spec.Idempotent {
		attempts = 2
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.ensureLocked(ctx); err != nil {
			return nil, err
		}
		resp, err := c.roundTripLocked(cmd, frame, spec.Timeout)
		if err == nil {
			if !resp.OK() {
				return resp, dawerr.New(dawerr.KindDawReported, "%s", resp.Message)
			}
			if spec.PostDelay > 0 {
				c.sleepLocked(ctx, spec.PostDelay)
			}
			return resp, nil
		}
		lastErr = err
		if dawerr.KindOf(err) == dawerr.KindProtocol {
			// Framing errors leave the reader aligned at a line boundary;
			// the connection stays usable and retrying would not help.
			return nil, err
		}
		// Connection-level failure: tear down so the next attempt (or the
		// next caller) starts from a fresh socket and a drained buffer.
		c.closeLocked()
		if attempt < attempts {
			c.log.Warn().Err(err).Str("command", cmd.Type).Msg("retrying after connection failure")
		}
	}
	return nil, lastErr
}

// roundTripLocked writes one frame and reads one response under deadline.
func (c *TCPClient) roundTripLocked(cmd Command, frame []byte, timeout time.Duration) (*Response, error) {
	deadline := time.Now().Add(timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, dawerr.Wrap(dawerr.KindDisconnected, err, "setting socket deadline")
	}
	if err := writeFrame(c.conn, frame); err != nil {
		return nil, dawerr.Wrap(dawerr.KindDisconnected, err, "sending %q", cmd.Type)
	}
	resp, err := readFrame(c.br)
	if err != nil {
		var de *dawerr.Error
		if errors.As(err, &de) {
			return nil, err
		}
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, dawerr.Wrap(dawerr.KindTimeout, err,
				"no response to %q within %s", cmd.Type, timeout)
		}
		return nil, dawerr.Wrap(dawerr.KindDisconnected, err, "reading response to %q", cmd.Type)
	}
	return resp, nil
}

// ensureLocked dials with capped exponential backoff until connected or the
// attempt budget is spent.
func (c *TCPClient) ensureLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = reconnectInitial
	policy.Multiplier = 2
	policy.MaxInterval = reconnectCap
	policy.MaxElapsedTime = reconnectBudget

	dial := func() error {
		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			return err
		}
		c.conn = conn
		c.br = bufio.NewReaderSize(conn, 64<<10)
		return nil
	}
	if err := backoff.Retry(dial, backoff.WithContext(policy, ctx)); err != nil {
		return dawerr.Wrap(dawerr.KindDisconnected, err, "DAW endpoint %s unreachable", c.addr)
	}

	c.log.Info().Str("addr", c.addr).Msg("DAW connection established")
	c.connectOnce.Do(func() {
		if c.onConnected != nil {
			c.onConnected()
		}
	})
	return nil
}

func (c *TCPClient) closeLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.br = nil
	}
}

// Close tears down the connection.
func (c *TCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

// Connected reports whether a socket is currently open.
func (c *TCPClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// sleepLocked waits for the post-tier delay while still holding the writer
// mutex, bailing early on context cancellation.
func (c *TCPClient) sleepLocked(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
