package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/dispatch"
)

// bridgeTools covers the deep-API path through the OSC bridge device:
// hidden-parameter discovery and writes that the TCP channel cannot reach.
func bridgeTools(d *Deps) []dispatch.ToolSpec {
	requireDevice := func(req mcp.CallToolRequest) error {
		if err := requireTrackIndex(req); err != nil {
			return err
		}
		if idx := req.GetInt("device_index", -1); idx < 0 {
			return invalid("device_index", "must be a non-negative integer")
		}
		return nil
	}
	target := func(req mcp.CallToolRequest) map[string]any {
		return map[string]any{
			"track_index":  req.GetInt("track_index", 0),
			"device_index": req.GetInt("device_index", 0),
		}
	}
	requireClip := func(req mcp.CallToolRequest) error {
		if err := requireTrackIndex(req); err != nil {
			return err
		}
		if idx := req.GetInt("clip_index", -1); idx < 0 {
			return invalid("clip_index", "must be a non-negative integer")
		}
		return nil
	}

	return []dispatch.ToolSpec{
		{
			Definition: mcp.NewTool("discover_device_parameters",
				mcp.WithDescription("Discover every parameter of a device through the bridge, "+
					"including hidden ones not exposed over the command channel. Slow on large devices."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
				mcp.WithString("parameter_map_id", mcp.Description("Parameter map used to annotate "+
					"discovered parameters with friendly names.")),
			),
			Needs:       dispatch.Needs{Bridge: true},
			ErrorPrefix: "discover parameters",
			Validate:    requireDevice,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				// Discovery is queueable on the bridge side, so busy
				// responses are retried.
				result, err := d.Bridge.SendQueueable(ctx, "discover_params", target(req), 0)
				if err != nil {
					return nil, err
				}
				data := result["result"]
				if mapID := req.GetString("parameter_map_id", ""); mapID != "" {
					data = d.annotateParameters(mapID, data)
				}
				count := 0
				if m, ok := data.(map[string]any); ok {
					if list, ok := m["parameters"].([]any); ok {
						count = len(list)
					}
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Discovered %d parameters", count),
					Data:    data,
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("set_hidden_parameter",
				mcp.WithDescription("Set one parameter by bridge-discovered index, reaching "+
					"parameters hidden from the command channel."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
				mcp.WithNumber("parameter_index", mcp.Required(), mcp.Description("Index from discover_device_parameters.")),
				mcp.WithNumber("value", mcp.Required(), mcp.Description("New value.")),
			),
			Needs:       dispatch.Needs{Bridge: true},
			ErrorPrefix: "set hidden parameter",
			Validate:    requireDevice,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				params := target(req)
				params["parameter_index"] = req.GetInt("parameter_index", 0)
				params["value"] = req.GetFloat("value", 0)
				if _, err := d.Bridge.Send(ctx, "set_hidden_param", params, 0); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "Hidden parameter set"}, nil
			},
		},
		{
			Definition: mcp.NewTool("batch_set_hidden_parameters",
				mcp.WithDescription("Set many hidden parameters in one bridge operation. "+
					"Each entry: {index, value}."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
				mcp.WithArray("parameters", mcp.Required(), mcp.Description("Parameters to set.")),
				mcp.WithBoolean("sequential", mcp.Description("Send one at a time instead of a single batch. "+
					"Slower but more reliable for long payloads.")),
			),
			Needs:       dispatch.Needs{Bridge: true},
			ErrorPrefix: "batch set hidden parameters",
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
				if req.GetBool("sequential", false) {
					return d.batchSetSequential(ctx, req)
				}
				params := target(req)
				params["parameters"] = argSlice(req, "parameters")
				result, err := d.Bridge.SendQueueable(ctx, "batch_set_hidden_params", params, 0)
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Batch of %d applied", len(argSlice(req, "parameters"))),
					Data:    result["result"],
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("get_clip_notes",
				mcp.WithDescription("Read a clip's notes through the bridge, including the per-note ids "+
					"needed by modify_clip_notes."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("clip_index", mcp.Required(), mcp.Description("Target scene slot.")),
			),
			Needs:       dispatch.Needs{Bridge: true},
			ErrorPrefix: "get clip notes",
			Validate:    requireClip,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				result, err := d.Bridge.Send(ctx, "get_clip_notes_by_id", map[string]any{
					"track_index": req.GetInt("track_index", 0),
					"clip_index":  req.GetInt("clip_index", 0),
				}, 0)
				if err != nil {
					return nil, err
				}
				data := result["result"]
				count := 0
				if m, ok := data.(map[string]any); ok {
					if list, ok := m["notes"].([]any); ok {
						count = len(list)
					}
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Clip has %d notes", count),
					Data:    data,
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("modify_clip_notes",
				mcp.WithDescription("Surgically edit existing notes by id through the bridge. Each "+
					"modification: {note_id, pitch?, start_time?, duration?, velocity?}. Ids come "+
					"from get_clip_notes."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("clip_index", mcp.Required(), mcp.Description("Target scene slot.")),
				mcp.WithArray("modifications", mcp.Required(), mcp.Description("Per-note edits.")),
			),
			Needs:       dispatch.Needs{Bridge: true},
			ErrorPrefix: "modify clip notes",
			Validate: func(req mcp.CallToolRequest) error {
				if err := requireClip(req); err != nil {
					return err
				}
				mods := argSlice(req, "modifications")
				if len(mods) == 0 {
					return invalid("modifications", "must not be empty")
				}
				if len(mods) > dispatch.MaxNotes {
					return invalid("modifications", "%d edits exceeds the cap of %d",
						len(mods), dispatch.MaxNotes)
				}
				return nil
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				mods := argSlice(req, "modifications")
				result, err := d.Bridge.Send(ctx, "modify_clip_notes", map[string]any{
					"track_index":   req.GetInt("track_index", 0),
					"clip_index":    req.GetInt("clip_index", 0),
					"modifications": mods,
				}, 0)
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("%d notes modified", len(mods)),
					Data:    result["result"],
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("get_automation_states",
				mcp.WithDescription("Report per-parameter automation states for a device through the "+
					"bridge: which parameters carry automation and whether it is overridden."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
			),
			Needs:       dispatch.Needs{Bridge: true},
			ErrorPrefix: "automation states",
			Validate:    requireDevice,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				result, err := d.Bridge.Send(ctx, "get_automation_states", target(req), 0)
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: "Automation states read",
					Data:    result["result"],
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("get_bridge_status",
				mcp.WithDescription("Ping the bridge device and report its version."),
			),
			ErrorPrefix: "bridge status",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				if err := d.Bridge.Ping(ctx); err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: "Bridge is responding",
					Data: map[string]any{
						"bridge_version": d.Bridge.BridgeVersion(),
						"daemon_version": d.Version,
					},
				}, nil
			},
		},
	}
}

// annotateParameters rewrites a discovery result in place, attaching the
// friendly name (and category, when mapped) from a registered parameter
// map to each entry. Unmapped parameters keep their raw name only.
func (d *Deps) annotateParameters(mapID string, data any) any {
	m, ok := data.(map[string]any)
	if !ok {
		return data
	}
	list, ok := m["parameters"].([]any)
	if !ok {
		return data
	}
	for _, p := range list {
		entry, ok := p.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		mapping, ok := d.ParamMaps.Lookup(mapID, name)
		if !ok {
			continue
		}
		entry["friendly_name"] = mapping.FriendlyName
		if mapping.Category != "" {
			entry["category"] = mapping.Category
		}
	}
	return data
}

// batchSetSequential is the per-parameter fallback: one set_hidden_param
// round-trip per entry, with a breather above six parameters so the DAW
// keeps up. Partial failure is reported, not aborted.
func (d *Deps) batchSetSequential(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
	entries := argSlice(req, "parameters")
	trackIndex := req.GetInt("track_index", 0)
	deviceIndex := req.GetInt("device_index", 0)

	ok, failed := 0, 0
	var errs []string
	for _, e := range entries {
		m, _ := e.(map[string]any)
		params := map[string]any{
			"track_index":     trackIndex,
			"device_index":    deviceIndex,
			"parameter_index": m["index"],
			"value":           m["value"],
		}
		if _, err := d.Bridge.Send(ctx, "set_hidden_param", params, 0); err != nil {
			failed++
			errs = append(errs, fmt.Sprintf("[%v]: %v", m["index"], err))
			continue
		}
		ok++
		if len(entries) > 6 {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return &dispatch.Result{
		Message: fmt.Sprintf("%d of %d parameters set", ok, len(entries)),
		Data: map[string]any{
			"params_set":      ok,
			"params_failed":   failed,
			"total_requested": len(entries),
			"errors":          errs,
		},
	}, nil
}
