package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livebridge/livebridge/internal/dawerr"
)

func TestSuccessEnvelopeShape(t *testing.T) {
	out := SuccessEnvelope(&Result{Message: "Tempo set to 128.0 BPM", Data: map[string]any{"bpm": 128}})

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "ok", env["status"])
	assert.Equal(t, "Tempo set to 128.0 BPM", env["message"])
	assert.Equal(t, 128.0, env["data"].(map[string]any)["bpm"])
}

func TestErrorEnvelopeShape(t *testing.T) {
	err := dawerr.New(dawerr.KindBridgeBusy, "bridge busy").
		WithDetails(map[string]any{"attempts": 3})
	out := ErrorEnvelope("discover parameters", err)

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "error", env["status"])
	assert.Equal(t, "bridge_busy", env["kind"])
	assert.Contains(t, env["message"], "discover parameters: ")
	assert.Equal(t, 3.0, env["details"].(map[string]any)["attempts"])
}

func TestErrorEnvelopeHidesInternalDetail(t *testing.T) {
	out := ErrorEnvelope("save template", errors.New("nil pointer dereference in handler"))

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "internal", env["kind"])
	assert.NotContains(t, env["message"], "nil pointer")
}

func TestCallLogRingBound(t *testing.T) {
	l := NewCallLog(3)
	for i := 0; i < 5; i++ {
		l.Record(CallEntry{Name: fmt.Sprintf("tool-%d", i), Timestamp: time.Now()})
	}

	last := l.Last(10)
	require.Len(t, last, 3)
	assert.Equal(t, "tool-4", last[0].Name, "newest first")
	assert.Equal(t, "tool-2", last[2].Name)
}

func TestCallLogTopCounts(t *testing.T) {
	l := NewCallLog(10)
	for i := 0; i < 3; i++ {
		l.Record(CallEntry{Name: "set_tempo"})
	}
	l.Record(CallEntry{Name: "fire_clip"})

	top := l.Top(5)
	require.NotEmpty(t, top)
	assert.Equal(t, ToolCount{Name: "set_tempo", Count: 3}, top[0])
}

// --- Dispatcher flow ---

func callReq(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func newTestDispatcher(gates Gates) *Dispatcher {
	return NewDispatcher(gates, NewCallLog(16), 2, zerolog.Nop())
}

func envelopeOf(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &env))
	return env
}

func TestDispatcherNotReadyGate(t *testing.T) {
	d := newTestDispatcher(Gates{DAWConnected: func() bool { return false }})
	spec := ToolSpec{
		Definition:  mcp.NewTool("set_tempo"),
		Needs:       Needs{DAW: true},
		ErrorPrefix: "set tempo",
		Handle: func(ctx context.Context, req mcp.CallToolRequest) (*Result, error) {
			t.Fatal("handler must not run when the gate fails")
			return nil, nil
		},
	}

	res, err := d.wrap(spec)(context.Background(), callReq("set_tempo", nil))
	require.NoError(t, err)
	env := envelopeOf(t, res)
	assert.Equal(t, "error", env["status"])
	assert.Equal(t, "not_ready", env["kind"])
}

func TestDispatcherValidationShortCircuits(t *testing.T) {
	d := newTestDispatcher(Gates{})
	spec := ToolSpec{
		Definition:  mcp.NewTool("add_notes_to_clip"),
		ErrorPrefix: "add notes",
		Validate: func(req mcp.CallToolRequest) error {
			return dawerr.New(dawerr.KindInvalidInput, "field \"notes\": must not be empty")
		},
		Handle: func(ctx context.Context, req mcp.CallToolRequest) (*Result, error) {
			t.Fatal("handler must not run on invalid input")
			return nil, nil
		},
	}

	res, err := d.wrap(spec)(context.Background(), callReq("add_notes_to_clip", nil))
	require.NoError(t, err)
	env := envelopeOf(t, res)
	assert.Equal(t, "invalid_input", env["kind"])
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := newTestDispatcher(Gates{})
	spec := ToolSpec{
		Definition:  mcp.NewTool("explode"),
		ErrorPrefix: "explode",
		Handle: func(ctx context.Context, req mcp.CallToolRequest) (*Result, error) {
			panic("boom")
		},
	}

	res, err := d.wrap(spec)(context.Background(), callReq("explode", nil))
	require.NoError(t, err)
	env := envelopeOf(t, res)
	assert.Equal(t, "internal", env["kind"])

	// The dispatcher survives: a following call on the same pool works.
	okSpec := ToolSpec{
		Definition:  mcp.NewTool("fine"),
		ErrorPrefix: "fine",
		Handle: func(ctx context.Context, req mcp.CallToolRequest) (*Result, error) {
			return &Result{Message: "done"}, nil
		},
	}
	res, err = d.wrap(okSpec)(context.Background(), callReq("fine", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", envelopeOf(t, res)["status"])
}

func TestDispatcherRecordsCalls(t *testing.T) {
	d := newTestDispatcher(Gates{})
	spec := ToolSpec{
		Definition:  mcp.NewTool("get_session_info"),
		ErrorPrefix: "session info",
		Handle: func(ctx context.Context, req mcp.CallToolRequest) (*Result, error) {
			return &Result{Message: "Session info"}, nil
		},
	}

	_, err := d.wrap(spec)(context.Background(), callReq("get_session_info", map[string]any{"verbose": true}))
	require.NoError(t, err)

	last := d.Calls().Last(1)
	require.Len(t, last, 1)
	assert.Equal(t, "get_session_info", last[0].Name)
	assert.Equal(t, "ok", last[0].Outcome)
	assert.Contains(t, last[0].ArgsSummary, "verbose")
}

func TestSummarizeArgsTruncates(t *testing.T) {
	long := make(map[string]any)
	for i := 0; i < 50; i++ {
		long[fmt.Sprintf("key_%02d", i)] = "some longish value here"
	}
	s := summarizeArgs(callReq("x", long))
	assert.LessOrEqual(t, len(s), argsSummaryLimit+3)
}
