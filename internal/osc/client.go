package osc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/livebridge/livebridge/internal/dawerr"
)

const (
	// pingTTL is how long a successful ping vouches for bridge health.
	pingTTL = 5 * time.Second
	// defaultTimeout bounds commands without a dynamic override.
	defaultTimeout = 5 * time.Second
	// maxDatagram is the receive buffer size for bridge responses.
	maxDatagram = 64 << 10
)

// Client is the request/response bridge to the in-DAW scripting device.
// It exclusively owns its two UDP sockets: commands go out on the send
// port, responses come back on the receive port and are correlated by the
// request id the client appends to every message.
//
// The client does not serialize callers against the bridge's one-at-a-time
// discovery/batch limit; overlap surfaces as a busy error, and
// SendQueueable wraps the commands worth retrying.
type Client struct {
	sendAddr string
	recvAddr string
	version  string
	log      zerolog.Logger

	mu       sync.Mutex
	sendConn *net.UDPConn
	recvConn *net.UDPConn

	pingMu        sync.Mutex
	lastPing      time.Time
	bridgeVersion string
}

// NewClient creates a bridge client. version is the daemon's own version,
// compared against the bridge's on ping.
func NewClient(sendAddr, recvAddr, version string, log zerolog.Logger) *Client {
	return &Client{
		sendAddr: sendAddr,
		recvAddr: recvAddr,
		version:  version,
		log:      log.With().Str("component", "osc").Logger(),
	}
}

// connectLocked sets up both UDP sockets. The receive bind is exclusive:
// a second daemon instance fails here rather than stealing datagrams.
func (c *Client) connectLocked() error {
	if c.sendConn != nil && c.recvConn != nil {
		return nil
	}
	c.closeLocked()

	raddr, err := net.ResolveUDPAddr("udp", c.sendAddr)
	if err != nil {
		return dawerr.Wrap(dawerr.KindDisconnected, err, "resolving bridge send address %s", c.sendAddr)
	}
	sendConn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return dawerr.Wrap(dawerr.KindDisconnected, err, "opening bridge send socket")
	}

	laddr, err := net.ResolveUDPAddr("udp", c.recvAddr)
	if err != nil {
		_ = sendConn.Close()
		return dawerr.Wrap(dawerr.KindDisconnected, err, "resolving bridge receive address %s", c.recvAddr)
	}
	recvConn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		_ = sendConn.Close()
		return dawerr.Wrap(dawerr.KindDisconnected, err,
			"binding bridge receive port %s (is another instance running?)", c.recvAddr)
	}

	c.sendConn = sendConn
	c.recvConn = recvConn
	c.log.Info().Str("send", c.sendAddr).Str("recv", c.recvAddr).Msg("bridge UDP sockets ready")
	return nil
}

func (c *Client) closeLocked() {
	if c.sendConn != nil {
		_ = c.sendConn.Close()
		c.sendConn = nil
	}
	if c.recvConn != nil {
		_ = c.recvConn.Close()
		c.recvConn = nil
	}
}

// Close releases both sockets.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

// Send performs one round-trip: build the OSC message with a fresh request
// id, drain stale datagrams, send, and collect the (possibly chunked)
// response matching the id. A failed write or a response timeout rebuilds
// the sockets and retries once; other receive failures return at once. A
// status=error response is surfaced as BridgeBusy or BridgeReported.
func (c *Client) Send(ctx context.Context, command string, params map[string]any, timeout time.Duration) (map[string]any, error) {
	if timeout <= 0 {
		timeout = DynamicTimeout(command, params)
	}
	requestID := uuid.NewString()[:8]
	packet, err := buildPacket(command, params, requestID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := c.connectLocked(); err != nil {
			return nil, err
		}
		c.drainLocked()

		if _, err := c.sendConn.Write(packet); err != nil {
			lastErr = dawerr.Wrap(dawerr.KindDisconnected, err, "sending %q to bridge", command)
			c.closeLocked()
			continue
		}

		result, err := c.collectLocked(ctx, command, requestID, timeout)
		if err == nil {
			return c.finish(command, result)
		}
		lastErr = err
		if dawerr.KindOf(err) != dawerr.KindTimeout {
			return nil, err
		}
		// Timeout: rebuild the sockets so a late response cannot leak into
		// the next call, then retry once.
		c.closeLocked()
		if attempt < 2 {
			c.log.Warn().Str("command", command).Msg("bridge response timeout, retrying")
		}
	}
	return nil, lastErr
}

// finish maps a decoded response onto the taxonomy.
func (c *Client) finish(command string, result map[string]any) (map[string]any, error) {
	status, _ := result["status"].(string)
	if status != "error" {
		return result, nil
	}
	message, _ := result["message"].(string)
	if strings.Contains(strings.ToLower(message), "busy") {
		return result, dawerr.New(dawerr.KindBridgeBusy, "bridge busy during %q: %s", command, message)
	}
	return result, dawerr.New(dawerr.KindBridgeReported, "%s", message)
}

// collectLocked reads datagrams until a response with the right id is
// assembled or the deadline passes. Mismatched ids are late arrivals from
// an earlier timed-out call and are discarded.
func (c *Client) collectLocked(ctx context.Context, command, requestID string, timeout time.Duration) (map[string]any, error) {
	deadline := time.Now().Add(timeout)
	var ra *reassembler

	for {
		if err := ctx.Err(); err != nil {
			return nil, dawerr.Wrap(dawerr.KindTimeout, err, "canceled waiting for %q", command)
		}
		if err := c.recvConn.SetReadDeadline(deadline); err != nil {
			return nil, dawerr.Wrap(dawerr.KindDisconnected, err, "arming bridge read deadline")
		}

		buf := make([]byte, maxDatagram)
		n, _, err := c.recvConn.ReadFromUDP(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				if ra != nil {
					return nil, dawerr.New(dawerr.KindProtocol,
						"chunk reassembly timed out for %q: received %d of %d, missing %v",
						command, len(ra.pieces), ra.total, ra.missing()).
						WithDetails(map[string]any{
							"received": len(ra.pieces),
							"expected": ra.total,
							"missing":  ra.missing(),
						})
				}
				return nil, dawerr.New(dawerr.KindTimeout,
					"no bridge response to %q within %s (is the bridge device loaded?)", command, timeout)
			}
			return nil, dawerr.Wrap(dawerr.KindDisconnected, err, "reading bridge response")
		}

		decoded, err := c.decodeDatagram(buf[:n])
		if err != nil {
			c.log.Warn().Err(err).Msg("discarding undecodable bridge datagram")
			continue
		}

		if isChunk(decoded) {
			env, err := envelopeFrom(decoded)
			if err != nil {
				return nil, err
			}
			if ra == nil {
				ra = newReassembler(env)
				// Chunked sends are slow on the bridge side; extend the
				// deadline to 100 ms per chunk over a 5 s floor.
				extra := max(5*time.Second, time.Duration(env.Total)*100*time.Millisecond+5*time.Second)
				deadline = time.Now().Add(extra)
			} else if ra.add(env) {
				c.log.Debug().Int("index", env.Index).Msg("duplicate chunk ignored")
			}
			if !ra.complete() {
				continue
			}
			raw, err := ra.assemble()
			if err != nil {
				return nil, err
			}
			var result map[string]any
			if err := json.Unmarshal(raw, &result); err != nil {
				return nil, dawerr.Wrap(dawerr.KindProtocol, err, "parsing reassembled bridge response")
			}
			if !matchesID(result, requestID) {
				c.log.Warn().Str("expected", requestID).Msg("discarding reassembled response with stale id")
				ra = nil
				continue
			}
			return result, nil
		}

		if ra != nil {
			c.log.Warn().Msg("non-chunk datagram during reassembly, ignoring")
			continue
		}
		if !matchesID(decoded, requestID) {
			c.log.Warn().Str("expected", requestID).Msg("discarding stale bridge response")
			continue
		}
		return decoded, nil
	}
}

// decodeDatagram parses one OSC packet and decodes the payload it carries.
// The bridge wraps its base64 JSON as the OSC address symbol; a typed
// string argument is accepted as well.
func (c *Client) decodeDatagram(data []byte) (map[string]any, error) {
	msg, err := Decode(data)
	if err != nil {
		return nil, err
	}
	payload := msg.Addr
	for _, a := range msg.Args {
		if s, ok := a.(string); ok && s != "" {
			payload = s
			break
		}
	}
	return decodeResponsePayload(payload)
}

// matchesID accepts responses without an id (older bridge builds) and
// responses whose id equals ours.
func matchesID(result map[string]any, requestID string) bool {
	id, _ := result["id"].(string)
	return id == "" || id == requestID
}

// drainLocked discards any stale datagrams so a response from an earlier
// timed-out call cannot be mis-correlated with the one about to be sent.
func (c *Client) drainLocked() {
	_ = c.recvConn.SetReadDeadline(time.Now())
	buf := make([]byte, maxDatagram)
	for i := 0; i < 100; i++ {
		if _, _, err := c.recvConn.ReadFromUDP(buf); err != nil {
			break
		}
	}
}

// SendQueueable is Send with the busy-retry policy for commands the
// bridge queues poorly: three attempts, waiting 0.5 s after the first busy
// response and 1.0 s after the second.
func (c *Client) SendQueueable(ctx context.Context, command string, params map[string]any, timeout time.Duration) (map[string]any, error) {
	const attempts = 3
	var result map[string]any
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = c.Send(ctx, command, params, timeout)
		if !dawerr.Is(err, dawerr.KindBridgeBusy) {
			return result, err
		}
		if attempt < attempts {
			delay := time.Duration(attempt) * 500 * time.Millisecond
			c.log.Warn().Str("command", command).Dur("delay", delay).
				Int("attempt", attempt).Msg("bridge busy, backing off")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, dawerr.Wrap(dawerr.KindTimeout, ctx.Err(), "canceled during busy retry")
			}
		}
	}
	var de *dawerr.Error
	if errors.As(err, &de) {
		de.Details = map[string]any{"attempts": attempts}
	}
	return result, err
}

// Ping verifies bridge liveness. A success inside the TTL window is
// answered from cache without touching the wire.
func (c *Client) Ping(ctx context.Context) error {
	c.pingMu.Lock()
	if time.Since(c.lastPing) < pingTTL {
		c.pingMu.Unlock()
		return nil
	}
	c.pingMu.Unlock()

	result, err := c.Send(ctx, "ping", nil, 3*time.Second)
	if err != nil {
		return err
	}

	c.pingMu.Lock()
	defer c.pingMu.Unlock()
	c.lastPing = time.Now()
	if inner, ok := result["result"].(map[string]any); ok {
		if v, ok := inner["version"].(string); ok && v != "" {
			c.bridgeVersion = v
			c.checkVersion(v)
		}
	}
	return nil
}

// checkVersion warns when the bridge's major.minor diverges from ours.
func (c *Client) checkVersion(bridgeVersion string) {
	mm := func(v string) string {
		parts := strings.SplitN(v, ".", 3)
		if len(parts) < 2 {
			return v
		}
		return parts[0] + "." + parts[1]
	}
	if mm(bridgeVersion) != mm(c.version) {
		c.log.Warn().
			Str("daemon", c.version).
			Str("bridge", bridgeVersion).
			Msg("bridge version mismatch, some features may not work")
	}
}

// Healthy reports liveness via the cached ping.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.Ping(ctx) == nil
}

// BridgeVersion returns the version the bridge last reported, if any.
func (c *Client) BridgeVersion() string {
	c.pingMu.Lock()
	defer c.pingMu.Unlock()
	return c.bridgeVersion
}

// DynamicTimeout scales the deadline with declared input size: batch sets
// cost ~150 ms per parameter with a 10 s floor, discovery is a flat 15 s.
func DynamicTimeout(command string, params map[string]any) time.Duration {
	switch command {
	case "batch_set_hidden_params":
		n := 0
		if list, ok := params["parameters"].([]map[string]any); ok {
			n = len(list)
		} else if list, ok := params["parameters"].([]any); ok {
			n = len(list)
		}
		return max(10*time.Second, time.Duration(n)*150*time.Millisecond)
	case "discover_params", "get_hidden_params":
		return 15 * time.Second
	default:
		return defaultTimeout
	}
}

// buildPacket renders one bridge command as an OSC message, appending the
// request id as the final string argument. JSON-bearing arguments travel
// as URL-safe base64 because the bridge's symbol handling mangles +, /,
// and =.
func buildPacket(command string, params map[string]any, requestID string) ([]byte, error) {
	p := func(key string) (int32, error) {
		n, ok := asInt(params[key])
		if !ok {
			return 0, dawerr.New(dawerr.KindInvalidInput, "%q requires integer %q", command, key)
		}
		return int32(n), nil
	}
	f := func(key string) (float32, error) {
		switch v := params[key].(type) {
		case float64:
			return float32(v), nil
		case float32:
			return v, nil
		case int:
			return float32(v), nil
		default:
			return 0, dawerr.New(dawerr.KindInvalidInput, "%q requires numeric %q", command, key)
		}
	}
	b64 := func(key string) (string, error) {
		raw, err := json.Marshal(params[key])
		if err != nil {
			return "", dawerr.Wrap(dawerr.KindProtocol, err, "encoding %q payload", command)
		}
		return encodeURLSafe(raw), nil
	}

	var args []any
	addArgs := func(vals ...any) { args = append(args, vals...) }

	switch command {
	case "ping", "get_app_version":
	case "discover_params", "get_hidden_params", "get_automation_states":
		t, err := p("track_index")
		if err != nil {
			return nil, err
		}
		d, err := p("device_index")
		if err != nil {
			return nil, err
		}
		addArgs(t, d)
	case "set_hidden_param":
		t, err := p("track_index")
		if err != nil {
			return nil, err
		}
		d, err := p("device_index")
		if err != nil {
			return nil, err
		}
		i, err := p("parameter_index")
		if err != nil {
			return nil, err
		}
		v, err := f("value")
		if err != nil {
			return nil, err
		}
		addArgs(t, d, i, v)
	case "batch_set_hidden_params":
		t, err := p("track_index")
		if err != nil {
			return nil, err
		}
		d, err := p("device_index")
		if err != nil {
			return nil, err
		}
		payload, err := b64("parameters")
		if err != nil {
			return nil, err
		}
		addArgs(t, d, payload)
	case "get_clip_notes_by_id":
		t, err := p("track_index")
		if err != nil {
			return nil, err
		}
		cl, err := p("clip_index")
		if err != nil {
			return nil, err
		}
		addArgs(t, cl)
	case "modify_clip_notes":
		t, err := p("track_index")
		if err != nil {
			return nil, err
		}
		cl, err := p("clip_index")
		if err != nil {
			return nil, err
		}
		payload, err := b64("modifications")
		if err != nil {
			return nil, err
		}
		addArgs(t, cl, payload)
	default:
		return nil, dawerr.New(dawerr.KindInvalidInput, "unknown bridge command %q", command)
	}

	addArgs(requestID)
	msg := Message{Addr: "/" + command, Args: args}
	packet, err := msg.Encode()
	if err != nil {
		return nil, fmt.Errorf("building OSC packet for %q: %w", command, err)
	}
	return packet, nil
}
