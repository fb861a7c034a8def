package daw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTierClassification(t *testing.T) {
	tests := []struct {
		commandType string
		want        Tier
	}{
		{"set_tempo", TierInstant},
		{"set_track_mute", TierInstant},
		{"fire_clip", TierInstant},
		{"add_notes_to_clip", TierLight},
		{"set_device_parameters_batch", TierLight},
		{"create_midi_track", TierStructural},
		{"load_instrument_or_effect", TierStructural},
		{"freeze_track", TierStructural},
		{"totally_unknown", TierInstant},
	}
	for _, tt := range tests {
		t.Run(tt.commandType, func(t *testing.T) {
			assert.Equal(t, tt.want, TierOf(tt.commandType))
		})
	}
}

func TestTierPostDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), TierInstant.PostDelay())
	assert.Equal(t, 50*time.Millisecond, TierLight.PostDelay())
	assert.Equal(t, 100*time.Millisecond, TierStructural.PostDelay())
}

func TestIdempotency(t *testing.T) {
	// Anything whose repetition duplicates an entity must never retry.
	for _, commandType := range []string{
		"create_midi_track", "delete_track", "create_clip",
		"add_notes_to_clip", "load_instrument_or_effect", "duplicate_scene",
	} {
		assert.False(t, Idempotent(commandType), commandType)
	}
	for _, commandType := range []string{
		"set_tempo", "get_session_info", "set_track_volume", "fire_clip",
	} {
		assert.True(t, Idempotent(commandType), commandType)
	}
}

func TestTimeoutFor(t *testing.T) {
	tests := []struct {
		name        string
		commandType string
		modifying   bool
		override    time.Duration
		want        time.Duration
	}{
		{"read default", "get_session_info", false, 0, 10 * time.Second},
		{"modify default", "set_tempo", true, 0, 15 * time.Second},
		{"slow override", "freeze_track", true, 0, 60 * time.Second},
		{"slow load", "load_instrument_or_effect", true, 0, 30 * time.Second},
		{"caller wins", "freeze_track", true, 2 * time.Second, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeoutFor(tt.commandType, tt.modifying, tt.override))
		})
	}
}

func TestTierTablesAreDisjoint(t *testing.T) {
	for commandType := range tierLight {
		_, clash := tierStructural[commandType]
		assert.False(t, clash, "%s in both tier tables", commandType)
	}
}
