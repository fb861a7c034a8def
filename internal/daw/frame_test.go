package daw

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livebridge/livebridge/internal/dawerr"
)

func TestFrameRoundTrip(t *testing.T) {
	cmd := Command{Type: "set_tempo", Params: map[string]any{"bpm": 128.0}}
	frame, err := encodeFrame(cmd)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(frame, []byte("\n")))
	assert.Equal(t, 1, bytes.Count(frame, []byte("\n")))

	// The DAW echoes a response line; decoding must consume exactly one
	// line and leave the rest buffered.
	input := `{"status":"success","result":{"ok":true}}` + "\n" + `{"status":"success"}` + "\n"
	r := bufio.NewReader(strings.NewReader(input))

	resp, err := readFrame(r)
	require.NoError(t, err)
	assert.True(t, resp.OK())

	resp2, err := readFrame(r)
	require.NoError(t, err)
	assert.True(t, resp2.OK())
}

func TestEncodeFrameRejectsOversizedPayload(t *testing.T) {
	cmd := Command{
		Type:   "add_notes_to_clip",
		Params: map[string]any{"blob": strings.Repeat("x", MaxLineBytes)},
	}
	_, err := encodeFrame(cmd)
	require.Error(t, err)
	assert.Equal(t, dawerr.KindProtocol, dawerr.KindOf(err))
}

func TestReadFrameRejectsOversizedLineAndRealigns(t *testing.T) {
	// An over-long line must fail with a protocol error and leave the
	// reader positioned at the next frame.
	long := strings.Repeat("a", MaxLineBytes+10) + "\n" + `{"status":"success"}` + "\n"
	r := bufio.NewReaderSize(strings.NewReader(long), 64<<10)

	_, err := readFrame(r)
	require.Error(t, err)
	assert.Equal(t, dawerr.KindProtocol, dawerr.KindOf(err))

	resp, err := readFrame(r)
	require.NoError(t, err)
	assert.True(t, resp.OK())
}

func TestReadFrameMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "hello world\n"},
		{"missing status", `{"result":1}` + "\n"},
		{"wrong type", `{"status":42}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			_, err := readFrame(r)
			require.Error(t, err)
			assert.Equal(t, dawerr.KindProtocol, dawerr.KindOf(err))
		})
	}
}
