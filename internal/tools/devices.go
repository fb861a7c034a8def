package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/dispatch"
)

// deviceTools covers loading devices and driving their visible parameters
// over the TCP channel. Hidden parameters go through the bridge tools.
func deviceTools(d *Deps) []dispatch.ToolSpec {
	requireDevice := func(req mcp.CallToolRequest) error {
		if err := requireTrackIndex(req); err != nil {
			return err
		}
		if idx := req.GetInt("device_index", -1); idx < 0 {
			return invalid("device_index", "must be a non-negative integer")
		}
		return nil
	}

	return []dispatch.ToolSpec{
		{
			Definition: mcp.NewTool("load_instrument_or_effect",
				mcp.WithDescription("Load an instrument or effect onto a track by name or catalog URI. "+
					"Names are resolved against the catalog; unknown names are passed to the DAW as-is."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithString("name", mcp.Required(), mcp.Description("Device name or catalog URI.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "load device",
			Validate: func(req mcp.CallToolRequest) error {
				if err := requireTrackIndex(req); err != nil {
					return err
				}
				return requireQuery(req, "name")
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				name := req.GetString("name", "")
				uri := d.Catalog.Resolve(name, resolveWait)
				raw, err := d.exec(ctx, "load_instrument_or_effect", map[string]any{
					"track_index": req.GetInt("track_index", 0),
					"uri":         uri,
				})
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Loaded %s", name),
					Data:    map[string]any{"uri": uri, "result": resultAny(raw)},
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("set_device_parameter",
				mcp.WithDescription("Set one visible device parameter by name."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
				mcp.WithString("parameter_name", mcp.Required(), mcp.Description("Parameter display name.")),
				mcp.WithNumber("value", mcp.Required(), mcp.Description("New value.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "set parameter",
			Validate:    requireDevice,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				name := req.GetString("parameter_name", "")
				if _, err := d.exec(ctx, "set_device_parameter", map[string]any{
					"track_index":    req.GetInt("track_index", 0),
					"device_index":   req.GetInt("device_index", 0),
					"parameter_name": name,
					"value":          req.GetFloat("value", 0),
				}); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: fmt.Sprintf("Parameter %q set", name)}, nil
			},
		},
		{
			Definition: mcp.NewTool("set_device_parameters_batch",
				mcp.WithDescription("Set many visible device parameters in one command. "+
					"Each entry: {name, value}."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
				mcp.WithArray("parameters", mcp.Required(), mcp.Description("Parameters to set.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "set parameters",
			Validate: func(req mcp.CallToolRequest) error {
				if err := requireDevice(req); err != nil {
					return err
				}
				params := argSlice(req, "parameters")
				if len(params) == 0 {
					return invalid("parameters", "must not be empty")
				}
				if len(params) > dispatch.MaxBatchParams {
					return invalid("parameters", "%d entries exceeds the cap of %d",
						len(params), dispatch.MaxBatchParams)
				}
				return nil
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				params := argSlice(req, "parameters")
				raw, err := d.exec(ctx, "set_device_parameters_batch", map[string]any{
					"track_index":  req.GetInt("track_index", 0),
					"device_index": req.GetInt("device_index", 0),
					"parameters":   params,
				})
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("%d parameters set", len(params)),
					Data:    resultAny(raw),
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("delete_device",
				mcp.WithDescription("Remove a device from a track."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "delete device",
			Validate:    requireDevice,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				if _, err := d.exec(ctx, "delete_device", map[string]any{
					"track_index":  req.GetInt("track_index", 0),
					"device_index": req.GetInt("device_index", 0),
				}); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "Device deleted"}, nil
			},
		},
	}
}
