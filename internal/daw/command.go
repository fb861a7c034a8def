// Package daw implements the DAW-facing transports and the command
// pipeline that multiplexes tool calls onto them: the framed TCP command
// client, the fire-and-forget UDP real-time sender, and the tier, timeout,
// and idempotency policy applied to every outgoing command.
package daw

import (
	"encoding/json"
	"time"
)

// Command is one request to the DAW scripting endpoint. Type identifies a
// handler on the DAW side; Params is opaque here except for tier and
// idempotency classification.
type Command struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Response is the DAW's answer to one Command.
type Response struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OK reports whether the DAW accepted the command.
func (r *Response) OK() bool { return r.Status == "success" }

// Tier classifies a command by how much settling time the DAW needs after
// it. The post-delay serializes the next writer on the same transport.
type Tier int

const (
	// TierInstant covers pure property setters. No delay.
	TierInstant Tier = 0
	// TierLight covers note/clip/automation edits and parameter batches.
	TierLight Tier = 1
	// TierStructural covers create/delete of tracks, clips, scenes, racks,
	// device loads, and freezes.
	TierStructural Tier = 2
)

// PostDelay is the settling time applied after a command of this tier
// returns, while the transport writer is still held.
func (t Tier) PostDelay() time.Duration {
	switch t {
	case TierLight:
		return 50 * time.Millisecond
	case TierStructural:
		return 100 * time.Millisecond
	default:
		return 0
	}
}

// tierLight and tierStructural enumerate the non-instant command types.
// Everything not listed is TierInstant.
var tierLight = map[string]struct{}{
	"add_notes_to_clip":           {},
	"update_clip_notes":           {},
	"remove_clip_notes":           {},
	"quantize_clip":               {},
	"transpose_clip":              {},
	"set_clip_loop_points":        {},
	"set_clip_start_end":          {},
	"set_warp_marker":             {},
	"delete_warp_marker":          {},
	"add_automation_point":        {},
	"add_automation_points":       {},
	"clear_automation":            {},
	"set_device_parameter":        {},
	"set_device_parameters_batch": {},
	"set_macro_value":             {},
	"set_eq8_properties":          {},
}

var tierStructural = map[string]struct{}{
	"create_midi_track":          {},
	"create_audio_track":         {},
	"create_return_track":        {},
	"delete_track":               {},
	"duplicate_track":            {},
	"group_tracks":               {},
	"create_scene":               {},
	"delete_scene":               {},
	"duplicate_scene":            {},
	"create_clip":                {},
	"delete_clip":                {},
	"duplicate_clip":             {},
	"load_instrument_or_effect":  {},
	"load_drum_kit":              {},
	"insert_device":              {},
	"delete_device":              {},
	"freeze_track":               {},
	"unfreeze_track":             {},
	"audio_to_midi":              {},
	"sliced_simpler_to_drum_rack": {},
}

// TierOf classifies a command type. Unknown types are instant: the DAW
// treats anything it does not recognize as a cheap error round-trip.
func TierOf(commandType string) Tier {
	if _, ok := tierStructural[commandType]; ok {
		return TierStructural
	}
	if _, ok := tierLight[commandType]; ok {
		return TierLight
	}
	return TierInstant
}

// nonIdempotent lists command types whose repetition leaves a duplicated
// entity in the DAW. These are never retried after a transport failure.
var nonIdempotent = map[string]struct{}{
	"create_midi_track":          {},
	"create_audio_track":         {},
	"create_return_track":        {},
	"delete_track":               {},
	"duplicate_track":            {},
	"group_tracks":               {},
	"create_scene":               {},
	"delete_scene":               {},
	"duplicate_scene":            {},
	"create_clip":                {},
	"delete_clip":                {},
	"duplicate_clip":             {},
	"add_notes_to_clip":          {},
	"load_instrument_or_effect":  {},
	"load_drum_kit":              {},
	"insert_device":              {},
	"delete_device":              {},
	"audio_to_midi":              {},
	"create_take_lane":           {},
	"sliced_simpler_to_drum_rack": {},
}

// Idempotent reports whether a command may be retried once after a
// connection-level failure.
func Idempotent(commandType string) bool {
	_, ok := nonIdempotent[commandType]
	return !ok
}

const (
	// DefaultReadTimeout bounds read-only commands.
	DefaultReadTimeout = 10 * time.Second
	// DefaultModifyTimeout bounds modifying commands.
	DefaultModifyTimeout = 15 * time.Second
)

// slowCommands carries timeout overrides for known-slow commands: catalog
// loads, freezes, audio-to-MIDI, and browser traversal all hold the DAW's
// main thread far longer than a property set.
var slowCommands = map[string]time.Duration{
	"load_instrument_or_effect": 30 * time.Second,
	"load_drum_kit":             30 * time.Second,
	"insert_device":             30 * time.Second,
	"freeze_track":              60 * time.Second,
	"unfreeze_track":            60 * time.Second,
	"audio_to_midi":             60 * time.Second,
	"get_browser_tree":          45 * time.Second,
	"browse_path":               20 * time.Second,
}

// TimeoutFor picks the response deadline for a command. An explicit
// caller override wins; then the slow-command table; then the default for
// the modifying/read split.
func TimeoutFor(commandType string, modifying bool, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if d, ok := slowCommands[commandType]; ok {
		return d
	}
	if modifying {
		return DefaultModifyTimeout
	}
	return DefaultReadTimeout
}
