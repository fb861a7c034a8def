package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/dispatch"
)

// trackTools covers track lifecycle and mixer properties.
func trackTools(d *Deps) []dispatch.ToolSpec {
	specs := []dispatch.ToolSpec{
		{
			Definition: mcp.NewTool("create_midi_track",
				mcp.WithDescription("Create a MIDI track. Returns the new track index."),
				mcp.WithNumber("index",
					mcp.Description("Insert position, -1 appends at the end.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "create MIDI track",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				raw, err := d.exec(ctx, "create_midi_track", map[string]any{
					"index": req.GetInt("index", -1),
				})
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "MIDI track created", Data: resultAny(raw)}, nil
			},
		},
		{
			Definition: mcp.NewTool("create_audio_track",
				mcp.WithDescription("Create an audio track. Returns the new track index."),
				mcp.WithNumber("index",
					mcp.Description("Insert position, -1 appends at the end.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "create audio track",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				raw, err := d.exec(ctx, "create_audio_track", map[string]any{
					"index": req.GetInt("index", -1),
				})
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "Audio track created", Data: resultAny(raw)}, nil
			},
		},
		{
			Definition: mcp.NewTool("delete_track",
				mcp.WithDescription("Delete a track by index."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Track to delete.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "delete track",
			Validate:    requireTrackIndex,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				idx := req.GetInt("track_index", 0)
				if _, err := d.exec(ctx, "delete_track", map[string]any{"track_index": idx}); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: fmt.Sprintf("Track %d deleted", idx)}, nil
			},
		},
		{
			Definition: mcp.NewTool("create_instrument_track",
				mcp.WithDescription("Create a MIDI track, load an instrument onto it by name or URI, "+
					"then optionally name and color the track. One call instead of four."),
				mcp.WithString("instrument_name", mcp.Required(),
					mcp.Description("Instrument name (resolved against the catalog) or a catalog URI.")),
				mcp.WithString("track_name", mcp.Description("Name for the new track.")),
				mcp.WithNumber("color", mcp.Description("Color index for the new track.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "create instrument track",
			Validate: func(req mcp.CallToolRequest) error {
				return requireQuery(req, "instrument_name")
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				return d.createInstrumentTrack(ctx, req)
			},
		},
	}

	// Mixer property setters share one shape: track_index plus a single
	// value argument.
	type propSpec struct {
		tool, command, arg, desc string
		numeric                  bool
	}
	for _, p := range []propSpec{
		{"set_track_name", "set_track_name", "name", "Rename a track.", false},
		{"set_track_volume", "set_track_volume", "volume", "Set track volume (0.0-1.0).", true},
		{"set_track_pan", "set_track_pan", "pan", "Set track pan (-1.0-1.0).", true},
	} {
		opts := []mcp.ToolOption{
			mcp.WithDescription(p.desc),
			mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
		}
		if p.numeric {
			opts = append(opts, mcp.WithNumber(p.arg, mcp.Required(), mcp.Description("New value.")))
		} else {
			opts = append(opts, mcp.WithString(p.arg, mcp.Required(), mcp.Description("New value.")))
		}
		p := p
		specs = append(specs, dispatch.ToolSpec{
			Definition:  mcp.NewTool(p.tool, opts...),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: p.tool,
			Validate:    requireTrackIndex,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				params := map[string]any{"track_index": req.GetInt("track_index", 0)}
				if p.numeric {
					params[p.arg] = req.GetFloat(p.arg, 0)
				} else {
					params[p.arg] = req.GetString(p.arg, "")
				}
				if _, err := d.exec(ctx, p.command, params); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: fmt.Sprintf("%s applied", p.tool)}, nil
			},
		})
	}

	// Boolean toggles.
	type toggleSpec struct {
		tool, command, arg, desc string
	}
	for _, p := range []toggleSpec{
		{"set_track_mute", "set_track_mute", "mute", "Mute or unmute a track."},
		{"set_track_solo", "set_track_solo", "solo", "Solo or unsolo a track."},
		{"arm_track", "set_track_arm", "arm", "Arm or disarm a track for recording."},
	} {
		p := p
		specs = append(specs, dispatch.ToolSpec{
			Definition: mcp.NewTool(p.tool,
				mcp.WithDescription(p.desc),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithBoolean(p.arg, mcp.Required(), mcp.Description("New state.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: p.tool,
			Validate:    requireTrackIndex,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				if _, err := d.exec(ctx, p.command, map[string]any{
					"track_index": req.GetInt("track_index", 0),
					p.arg:         req.GetBool(p.arg, false),
				}); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: fmt.Sprintf("%s applied", p.tool)}, nil
			},
		})
	}

	specs = append(specs, dispatch.ToolSpec{
		Definition: mcp.NewTool("set_track_color",
			mcp.WithDescription("Set a track's color index."),
			mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
			mcp.WithNumber("color", mcp.Required(), mcp.Description("Color index.")),
		),
		Needs:       dispatch.Needs{DAW: true},
		ErrorPrefix: "set track color",
		Validate:    requireTrackIndex,
		Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
			if _, err := d.exec(ctx, "set_track_color", map[string]any{
				"track_index": req.GetInt("track_index", 0),
				"color_index": req.GetInt("color", 0),
			}); err != nil {
				return nil, err
			}
			return &dispatch.Result{Message: "Track color set"}, nil
		},
	})

	return specs
}

// createInstrumentTrack is the compound flow: structural create, device
// load via the resolver, then the two instant property setters. Sub-step
// results are collected so the envelope shows what happened where.
func (d *Deps) createInstrumentTrack(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
	instrument := req.GetString("instrument_name", "")
	trackName := req.GetString("track_name", "")
	color, hasColor := req.GetArguments()["color"]

	var steps []map[string]any
	step := func(name string, data any) {
		steps = append(steps, map[string]any{"step": name, "result": data})
	}

	raw, err := d.exec(ctx, "create_midi_track", map[string]any{"index": -1})
	if err != nil {
		return nil, err
	}
	var created struct {
		TrackIndex int `json:"track_index"`
	}
	if err := decodeResult(raw, &created); err != nil {
		return nil, err
	}
	step("create_midi_track", resultAny(raw))

	uri := d.Catalog.Resolve(instrument, resolveWait)
	loadRaw, err := d.exec(ctx, "load_instrument_or_effect", map[string]any{
		"track_index": created.TrackIndex,
		"uri":         uri,
	})
	if err != nil {
		return nil, err
	}
	step("load_instrument_or_effect", resultAny(loadRaw))

	if trackName != "" {
		if _, err := d.exec(ctx, "set_track_name", map[string]any{
			"track_index": created.TrackIndex,
			"name":        trackName,
		}); err != nil {
			return nil, err
		}
		step("set_track_name", trackName)
	}
	if hasColor {
		colorIdx, _ := color.(float64)
		if _, err := d.exec(ctx, "set_track_color", map[string]any{
			"track_index": created.TrackIndex,
			"color_index": int(colorIdx),
		}); err != nil {
			return nil, err
		}
		step("set_track_color", int(colorIdx))
	}

	return &dispatch.Result{
		Message: fmt.Sprintf("Instrument track %d ready with %s", created.TrackIndex, instrument),
		Data:    map[string]any{"track_index": created.TrackIndex, "steps": steps},
	}, nil
}

func requireTrackIndex(req mcp.CallToolRequest) error {
	if idx := req.GetInt("track_index", -1); idx < 0 {
		return invalid("track_index", "must be a non-negative integer")
	}
	return nil
}
