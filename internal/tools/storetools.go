package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/dispatch"
	"github.com/livebridge/livebridge/internal/stores"
)

// storeTools covers the cross-call shared stores: snapshots, macro
// controllers, and effect-chain templates.
func storeTools(d *Deps) []dispatch.ToolSpec {
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
			Definition: mcp.NewTool("capture_device_snapshot",
				mcp.WithDescription("Capture a device's current parameter values as a named snapshot "+
					"restorable later in one call."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("device_index", mcp.Required(), mcp.Description("Device position on the track.")),
				mcp.WithString("snapshot_id", mcp.Description("Identifier for the snapshot; generated when empty.")),
				mcp.WithString("parameter_map_id", mcp.Description("Parameter map used to render friendly "+
					"names in the captured list.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "capture snapshot",
			Validate:    requireDevice,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				ref := stores.DeviceRef{
					TrackIndex:  req.GetInt("track_index", 0),
					DeviceIndex: req.GetInt("device_index", 0),
				}
				raw, err := d.exec(ctx, "get_device_params", map[string]any{
					"track_index":  ref.TrackIndex,
					"device_index": ref.DeviceIndex,
				})
				if err != nil {
					return nil, err
				}
				var result struct {
					Parameters []stores.ParameterValue `json:"parameters"`
				}
				if err := decodeResult(raw, &result); err != nil {
					return nil, err
				}

				id := req.GetString("snapshot_id", "")
				if id == "" {
					id = "snap-" + uuid.NewString()[:8]
				}
				d.Snapshots.Save(stores.Snapshot{
					ID:         id,
					CreatedAt:  time.Now(),
					Device:     ref,
					Parameters: result.Parameters,
				})

				mapID := req.GetString("parameter_map_id", "")
				captured := make([]map[string]any, 0, len(result.Parameters))
				for _, p := range result.Parameters {
					entry := map[string]any{"name": p.Name, "value": p.Value}
					if mapID != "" {
						entry["friendly_name"] = d.ParamMaps.Friendly(mapID, p.Name)
					}
					captured = append(captured, entry)
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Snapshot %q captured with %d parameters", id, len(result.Parameters)),
					Data:    map[string]any{"snapshot_id": id, "parameters": captured},
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("restore_device_snapshot",
				mcp.WithDescription("Restore a captured snapshot onto its device."),
				mcp.WithString("snapshot_id", mcp.Required(), mcp.Description("Snapshot to restore.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "restore snapshot",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				snap, err := d.Snapshots.Get(req.GetString("snapshot_id", ""))
				if err != nil {
					return nil, err
				}
				params := make([]map[string]any, 0, len(snap.Parameters))
				for _, p := range snap.Parameters {
					params = append(params, map[string]any{"name": p.Name, "value": p.Value})
				}
				if _, err := d.exec(ctx, "set_device_parameters_batch", map[string]any{
					"track_index":  snap.Device.TrackIndex,
					"device_index": snap.Device.DeviceIndex,
					"parameters":   params,
				}); err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Snapshot %q restored (%d parameters)", snap.ID, len(params)),
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("list_snapshots",
				mcp.WithDescription("List captured snapshot identifiers."),
			),
			ErrorPrefix: "list snapshots",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				ids := d.Snapshots.IDs()
				return &dispatch.Result{
					Message: fmt.Sprintf("%d snapshots", len(ids)),
					Data:    map[string]any{"snapshot_ids": ids},
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("create_macro_controller",
				mcp.WithDescription("Create a macro controller: one 0..1 input fanned out to several "+
					"device parameters, each with its own range and curve. Each binding: "+
					"{track_index, device_index, parameter_name, min_out, max_out, curve}."),
				mcp.WithString("macro_id", mcp.Required(), mcp.Description("Identifier for the controller.")),
				mcp.WithArray("bindings", mcp.Required(), mcp.Description("Parameter bindings.")),
			),
			ErrorPrefix: "create macro",
			Validate: func(req mcp.CallToolRequest) error {
				if req.GetString("macro_id", "") == "" {
					return invalid("macro_id", "must not be empty")
				}
				if len(argSlice(req, "bindings")) == 0 {
					return invalid("bindings", "must not be empty")
				}
				return nil
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				raw, err := json.Marshal(argSlice(req, "bindings"))
				if err != nil {
					return nil, err
				}
				var bindings []struct {
					TrackIndex    int     `json:"track_index"`
					DeviceIndex   int     `json:"device_index"`
					ParameterName string  `json:"parameter_name"`
					MinOut        float64 `json:"min_out"`
					MaxOut        float64 `json:"max_out"`
					Curve         string  `json:"curve"`
				}
				if err := json.Unmarshal(raw, &bindings); err != nil {
					return nil, invalid("bindings", "malformed: %v", err)
				}

				m := stores.MacroController{ID: req.GetString("macro_id", "")}
				for _, b := range bindings {
					curve := stores.Curve(b.Curve)
					if b.Curve == "" {
						curve = stores.CurveLinear
					}
					m.Bindings = append(m.Bindings, stores.MacroBinding{
						Device:        stores.DeviceRef{TrackIndex: b.TrackIndex, DeviceIndex: b.DeviceIndex},
						ParameterName: b.ParameterName,
						MinOut:        b.MinOut,
						MaxOut:        b.MaxOut,
						Curve:         curve,
					})
				}
				if err := d.Macros.Save(m); err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Macro %q created with %d bindings", m.ID, len(m.Bindings)),
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("set_macro_value",
				mcp.WithDescription("Drive a macro controller: applies the 0..1 input to every binding "+
					"through its curve and range."),
				mcp.WithString("macro_id", mcp.Required(), mcp.Description("Controller to drive.")),
				mcp.WithNumber("value", mcp.Required(), mcp.Description("Input in 0..1.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "set macro value",
			Validate: func(req mcp.CallToolRequest) error {
				v := req.GetFloat("value", -1)
				if v < 0 || v > 1 {
					return invalid("value", "must be within 0..1, got %v", v)
				}
				return nil
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				m, err := d.Macros.Get(req.GetString("macro_id", ""))
				if err != nil {
					return nil, err
				}
				input := req.GetFloat("value", 0)
				for _, b := range m.Bindings {
					if _, err := d.exec(ctx, "set_device_parameter", map[string]any{
						"track_index":    b.Device.TrackIndex,
						"device_index":   b.Device.DeviceIndex,
						"parameter_name": b.ParameterName,
						"value":          b.Apply(input),
					}); err != nil {
						return nil, err
					}
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Macro %q applied to %d parameters", m.ID, len(m.Bindings)),
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("save_parameter_map",
				mcp.WithDescription("Register a parameter map: friendly display names for one device "+
					"kind's raw parameters. Each mapping: {original_name, friendly_name, category?}. "+
					"Used by capture_device_snapshot and discover_device_parameters to render readable "+
					"parameter lists."),
				mcp.WithString("map_id", mcp.Required(), mcp.Description("Identifier for the map.")),
				mcp.WithString("device_kind", mcp.Required(), mcp.Description("Device kind the map describes.")),
				mcp.WithArray("mappings", mcp.Required(), mcp.Description("Name mappings.")),
			),
			ErrorPrefix: "save parameter map",
			Validate: func(req mcp.CallToolRequest) error {
				if req.GetString("map_id", "") == "" {
					return invalid("map_id", "must not be empty")
				}
				mappings := argSlice(req, "mappings")
				if len(mappings) == 0 {
					return invalid("mappings", "must not be empty")
				}
				if len(mappings) > dispatch.MaxBatchParams {
					return invalid("mappings", "%d entries exceeds the cap of %d",
						len(mappings), dispatch.MaxBatchParams)
				}
				return nil
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				raw, err := json.Marshal(argSlice(req, "mappings"))
				if err != nil {
					return nil, err
				}
				var mappings []stores.ParameterMapping
				if err := json.Unmarshal(raw, &mappings); err != nil {
					return nil, invalid("mappings", "malformed: %v", err)
				}
				m := stores.ParameterMap{
					ID:         req.GetString("map_id", ""),
					DeviceKind: req.GetString("device_kind", ""),
					Mappings:   mappings,
				}
				d.ParamMaps.Put(m)
				return &dispatch.Result{
					Message: fmt.Sprintf("Parameter map %q saved with %d mappings", m.ID, len(m.Mappings)),
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("get_parameter_map",
				mcp.WithDescription("Read a registered parameter map."),
				mcp.WithString("map_id", mcp.Required(), mcp.Description("Map to read.")),
			),
			ErrorPrefix: "get parameter map",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				m, err := d.ParamMaps.Get(req.GetString("map_id", ""))
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Parameter map %q has %d mappings", m.ID, len(m.Mappings)),
					Data:    m,
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("list_parameter_maps",
				mcp.WithDescription("List registered parameter map identifiers."),
			),
			ErrorPrefix: "list parameter maps",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				ids := d.ParamMaps.IDs()
				return &dispatch.Result{
					Message: fmt.Sprintf("%d parameter maps", len(ids)),
					Data:    map[string]any{"map_ids": ids},
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("save_effect_chain_template",
				mcp.WithDescription("Save an ordered device chain as a named template, persisted to disk. "+
					"Each device: {uri, parameter_overrides?}."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Template name.")),
				mcp.WithArray("devices", mcp.Required(), mcp.Description("Ordered device list.")),
			),
			ErrorPrefix: "save template",
			Validate: func(req mcp.CallToolRequest) error {
				if req.GetString("name", "") == "" {
					return invalid("name", "must not be empty")
				}
				if len(argSlice(req, "devices")) == 0 {
					return invalid("devices", "must not be empty")
				}
				return nil
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				raw, err := json.Marshal(argSlice(req, "devices"))
				if err != nil {
					return nil, err
				}
				var devices []stores.TemplateDevice
				if err := json.Unmarshal(raw, &devices); err != nil {
					return nil, invalid("devices", "malformed: %v", err)
				}
				t := stores.Template{Name: req.GetString("name", ""), Devices: devices}
				if err := d.Templates.Save(t); err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Template %q saved with %d devices", t.Name, len(t.Devices)),
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("load_effect_chain_template",
				mcp.WithDescription("Read a saved effect-chain template."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Template name.")),
			),
			ErrorPrefix: "load template",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				t, err := d.Templates.Get(req.GetString("name", ""))
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Template %q has %d devices", t.Name, len(t.Devices)),
					Data:    t,
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("list_effect_chain_templates",
				mcp.WithDescription("List saved effect-chain template names."),
			),
			ErrorPrefix: "list templates",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				names := d.Templates.Names()
				return &dispatch.Result{
					Message: fmt.Sprintf("%d templates", len(names)),
					Data:    map[string]any{"names": names},
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("create_effect_chain",
				mcp.WithDescription("Load a saved template onto a track: each device is loaded in order "+
					"and its parameter overrides applied."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Template to apply.")),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "create effect chain",
			Validate:    requireTrackIndex,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				return d.createEffectChain(ctx, req)
			},
		},
	}
}

// createEffectChain loads every template device in order, then applies
// that device's overrides via a parameter batch.
func (d *Deps) createEffectChain(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
	t, err := d.Templates.Get(req.GetString("name", ""))
	if err != nil {
		return nil, err
	}
	trackIndex := req.GetInt("track_index", 0)

	var loaded []map[string]any
	for i, dev := range t.Devices {
		uri := d.Catalog.Resolve(dev.URI, resolveWait)
		raw, err := d.exec(ctx, "load_instrument_or_effect", map[string]any{
			"track_index": trackIndex,
			"uri":         uri,
		})
		if err != nil {
			return nil, err
		}
		var result struct {
			DeviceIndex int `json:"device_index"`
		}
		result.DeviceIndex = -1
		if err := decodeResult(raw, &result); err != nil {
			result.DeviceIndex = -1
		}

		if len(dev.ParameterOverrides) > 0 && result.DeviceIndex >= 0 {
			params := make([]map[string]any, 0, len(dev.ParameterOverrides))
			for name, value := range dev.ParameterOverrides {
				params = append(params, map[string]any{"name": name, "value": value})
			}
			if _, err := d.exec(ctx, "set_device_parameters_batch", map[string]any{
				"track_index":  trackIndex,
				"device_index": result.DeviceIndex,
				"parameters":   params,
			}); err != nil {
				return nil, err
			}
		}
		loaded = append(loaded, map[string]any{
			"position":     i,
			"uri":          uri,
			"device_index": result.DeviceIndex,
			"overrides":    len(dev.ParameterOverrides),
		})
	}

	return &dispatch.Result{
		Message: fmt.Sprintf("Template %q applied: %d devices on track %d", t.Name, len(loaded), trackIndex),
		Data:    map[string]any{"devices": loaded},
	}, nil
}
