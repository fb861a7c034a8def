package daw

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BridgeSender is the OSC bridge entry point the pipeline forwards to.
// Implemented by osc.Client.
type BridgeSender interface {
	Send(ctx context.Context, command string, params map[string]any, timeout time.Duration) (map[string]any, error)
}

// Pipeline is the single waypoint between tool handlers and the DAW
// transports. It classifies each command (tier, idempotency, timeout) and
// hands it to the owning transport client; the TCP client applies the
// resulting post-delay and idempotency-gated retry.
type Pipeline struct {
	tcp    *TCPClient
	bridge BridgeSender
	log    zerolog.Logger
}

// NewPipeline wires the pipeline to its two transports.
func NewPipeline(tcp *TCPClient, bridge BridgeSender, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		tcp:    tcp,
		bridge: bridge,
		log:    log.With().Str("component", "pipeline").Logger(),
	}
}

// SendOption adjusts one SendCommand call.
type SendOption func(*sendConfig)

type sendConfig struct {
	timeout time.Duration
}

// WithTimeout overrides the classified response deadline.
func WithTimeout(d time.Duration) SendOption {
	return func(c *sendConfig) { c.timeout = d }
}

// SendCommand runs one command through the TCP transport with the full
// policy applied: vocabulary check, tier pacing, idempotency-gated retry,
// and timeout selection.
func (p *Pipeline) SendCommand(ctx context.Context, cmd Command, opts ...SendOption) (*Response, error) {
	var cfg sendConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if !knownCommand(cmd.Type) {
		// Unknown types pass through: the DAW-side vocabulary is closed
		// and answers unrecognized types with a cheap error response.
		p.log.Debug().Str("command", cmd.Type).Msg("passing through unclassified command")
	}

	tier := TierOf(cmd.Type)
	modifying := !readOnly(cmd.Type)
	spec := SendSpec{
		Timeout:    TimeoutFor(cmd.Type, modifying, cfg.timeout),
		Idempotent: Idempotent(cmd.Type),
		PostDelay:  tier.PostDelay(),
	}

	start := time.Now()
	resp, err := p.tcp.Send(ctx, cmd, spec)
	ev := p.log.Debug().
		Str("command", cmd.Type).
		Int("tier", int(tier)).
		Dur("elapsed", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("command failed")
		return resp, err
	}
	ev.Msg("command ok")
	return resp, nil
}

// SendBridge runs one command through the OSC bridge transport. Busy
// responses surface as-is; the queueable-command retry helper lives in the
// osc package, not here.
func (p *Pipeline) SendBridge(ctx context.Context, command string, params map[string]any, timeout time.Duration) (map[string]any, error) {
	return p.bridge.Send(ctx, command, params, timeout)
}

// readOnly reports whether a command only inspects DAW state: the
// get_-prefixed reads plus browse_path.
func readOnly(commandType string) bool {
	return strings.HasPrefix(commandType, "get_") || commandType == "browse_path"
}

// knownCommands is the classified vocabulary: every type with a tier,
// idempotency, or timeout entry, plus the common read commands.
var knownCommands = func() map[string]struct{} {
	known := map[string]struct{}{
		"get_session_info":    {},
		"get_track_info":      {},
		"get_clip_info":       {},
		"get_device_list":     {},
		"get_device_params":   {},
		"get_browser_tree":    {},
		"browse_path":         {},
		"set_tempo":           {},
		"start_playback":      {},
		"stop_playback":       {},
		"set_track_name":      {},
		"set_track_color":     {},
		"set_track_volume":    {},
		"set_track_pan":       {},
		"set_track_mute":      {},
		"set_track_solo":      {},
		"arm_track":           {},
		"disarm_track":        {},
		"set_track_arm":       {},
		"fire_clip":           {},
		"stop_clip":           {},
		"set_clip_name":       {},
		"set_clip_color":      {},
	}
	for t := range tierLight {
		known[t] = struct{}{}
	}
	for t := range tierStructural {
		known[t] = struct{}{}
	}
	for t := range nonIdempotent {
		known[t] = struct{}{}
	}
	for t := range slowCommands {
		known[t] = struct{}{}
	}
	return known
}()

func knownCommand(commandType string) bool {
	_, ok := knownCommands[commandType]
	return ok
}
