package osc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livebridge/livebridge/internal/dawerr"
)

func TestBase64Identity(t *testing.T) {
	for _, s := range []string{"", "a", "ab", "abc", `{"k":"v+/="}`, strings.Repeat("x", 5000)} {
		out, err := decodeLoose(encodeURLSafe([]byte(s)))
		require.NoError(t, err)
		assert.Equal(t, s, string(out))
	}
}

func TestSplitReassembleIdentity(t *testing.T) {
	payload, err := json.Marshal(map[string]any{
		"status": "success",
		"id":     "ab12cd34",
		"result": map[string]any{"parameters": strings.Repeat("p", 4000)},
	})
	require.NoError(t, err)

	for _, pieceSize := range []int{1, 7, 256, 1024, len(payload), len(payload) * 2} {
		envs := SplitChunks(payload, pieceSize)
		require.NotEmpty(t, envs)

		ra := newReassembler(envs[0])
		for _, env := range envs[1:] {
			assert.False(t, ra.add(env))
		}
		out, err := ra.assemble()
		require.NoError(t, err)
		assert.Equal(t, payload, out, "piece size %d", pieceSize)
	}
}

func TestReassemblerDuplicatesIgnored(t *testing.T) {
	envs := SplitChunks([]byte("hello chunked world"), 4)
	ra := newReassembler(envs[0])
	assert.True(t, ra.add(envs[0]), "re-adding the first chunk is a duplicate")
	for _, env := range envs[1:] {
		ra.add(env)
		ra.add(env) // duplicates must not corrupt reassembly
	}
	out, err := ra.assemble()
	require.NoError(t, err)
	assert.Equal(t, "hello chunked world", string(out))
}

func TestReassemblerReportsMissingIndices(t *testing.T) {
	envs := SplitChunks([]byte(strings.Repeat("z", 100)), 10)
	require.Len(t, envs, 10)

	ra := newReassembler(envs[0])
	ra.add(envs[3])
	ra.add(envs[7])

	assert.False(t, ra.complete())
	assert.Equal(t, []int{1, 2, 4, 5, 6, 8, 9}, ra.missing())

	_, err := ra.assemble()
	require.Error(t, err)
	assert.Equal(t, dawerr.KindProtocol, dawerr.KindOf(err))
	details := dawerr.DetailsOf(err)
	assert.Equal(t, 3, details["received"])
	assert.Equal(t, 10, details["expected"])
}

func TestEnvelopeFromRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
	}{
		{"index out of range", map[string]any{"_c": 5.0, "_t": 3.0, "_d": "eA"}},
		{"zero total", map[string]any{"_c": 0.0, "_t": 0.0, "_d": "eA"}},
		{"missing data", map[string]any{"_c": 0.0, "_t": 2.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := envelopeFrom(tt.m)
			require.Error(t, err)
		})
	}
}

func TestDecodeResponsePayloadFallbacks(t *testing.T) {
	// Common path: URL-safe base64 of JSON.
	m, err := decodeResponsePayload(encodeURLSafe([]byte(`{"status":"success"}`)))
	require.NoError(t, err)
	assert.Equal(t, "success", m["status"])

	// Fallback: raw JSON.
	m, err = decodeResponsePayload(`{"status":"error","message":"busy"}`)
	require.NoError(t, err)
	assert.Equal(t, "error", m["status"])

	// Garbage.
	_, err = decodeResponsePayload("!!!not a payload!!!")
	require.Error(t, err)
}
