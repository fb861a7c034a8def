package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/dispatch"
)

// sessionTools covers transport and global song state.
func sessionTools(d *Deps) []dispatch.ToolSpec {
	return []dispatch.ToolSpec{
		{
			Definition: mcp.NewTool("set_tempo",
				mcp.WithDescription("Set the session tempo in BPM."),
				mcp.WithNumber("bpm", mcp.Required(),
					mcp.Description("Tempo in beats per minute (20-999).")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "set tempo",
			Validate: func(req mcp.CallToolRequest) error {
				bpm := req.GetFloat("bpm", 0)
				if bpm < 20 || bpm > 999 {
					return invalid("bpm", "must be between 20 and 999, got %v", bpm)
				}
				return nil
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				bpm := req.GetFloat("bpm", 120)
				if _, err := d.exec(ctx, "set_tempo", map[string]any{"bpm": bpm}); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: fmt.Sprintf("Tempo set to %.1f BPM", bpm)}, nil
			},
		},
		{
			Definition: mcp.NewTool("start_playback",
				mcp.WithDescription("Start session playback."),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "start playback",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				if _, err := d.exec(ctx, "start_playback", nil); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "Playback started"}, nil
			},
		},
		{
			Definition: mcp.NewTool("stop_playback",
				mcp.WithDescription("Stop session playback."),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "stop playback",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				if _, err := d.exec(ctx, "stop_playback", nil); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "Playback stopped"}, nil
			},
		},
		{
			Definition: mcp.NewTool("get_session_info",
				mcp.WithDescription("Read session state: tempo, time signature, track and scene counts, playback status."),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "get session info",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				raw, err := d.exec(ctx, "get_session_info", nil)
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: "Session info",
					Data:    resultAny(raw),
				}, nil
			},
		},
	}
}
