package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/dispatch"
)

// realtimeTools covers the best-effort UDP channel for high-frequency
// parameter streaming.
func realtimeTools(d *Deps) []dispatch.ToolSpec {
	return []dispatch.ToolSpec{
		{
			Definition: mcp.NewTool("stream_parameter_value",
				mcp.WithDescription("Send one parameter update over the real-time UDP channel. "+
					"Fire-and-forget: no acknowledgment, no ordering guarantee. Meant for "+
					"high-frequency sweeps where occasional loss is fine."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
				mcp.WithString("parameter_name", mcp.Required(), mcp.Description("Parameter display name.")),
				mcp.WithNumber("value", mcp.Required(), mcp.Description("New value.")),
			),
			ErrorPrefix: "stream parameter",
			Validate:    requireTrackIndex,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				err := d.Realtime.Send("set_device_parameter", map[string]any{
					"track_index":    req.GetInt("track_index", 0),
					"device_index":   req.GetInt("device_index", 0),
					"parameter_name": req.GetString("parameter_name", ""),
					"value":          req.GetFloat("value", 0),
				})
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "Parameter update sent"}, nil
			},
		},
	}
}
