package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/dispatch"
)

// clipTools covers session-view clip lifecycle and note editing.
func clipTools(d *Deps) []dispatch.ToolSpec {
	clipTarget := func(req mcp.CallToolRequest) map[string]any {
		return map[string]any{
			"track_index": req.GetInt("track_index", 0),
			"clip_index":  req.GetInt("clip_index", 0),
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

	specs := []dispatch.ToolSpec{
		{
			Definition: mcp.NewTool("create_clip",
				mcp.WithDescription("Create an empty MIDI clip in a session slot."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("clip_index", mcp.Required(), mcp.Description("Target scene slot.")),
				mcp.WithNumber("length", mcp.Description("Clip length in beats, default 4.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "create clip",
			Validate:    requireClip,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				params := clipTarget(req)
				params["length"] = req.GetFloat("length", 4)
				raw, err := d.exec(ctx, "create_clip", params)
				if err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "Clip created", Data: resultAny(raw)}, nil
			},
		},
		{
			Definition: mcp.NewTool("add_notes_to_clip",
				mcp.WithDescription("Add MIDI notes to a clip. Each note: "+
					"{pitch, start_time, duration, velocity, mute?}."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("clip_index", mcp.Required(), mcp.Description("Target scene slot.")),
				mcp.WithArray("notes", mcp.Required(), mcp.Description("Notes to add.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "add notes",
			Validate: func(req mcp.CallToolRequest) error {
				if err := requireClip(req); err != nil {
					return err
				}
				notes := argSlice(req, "notes")
				if len(notes) == 0 {
					return invalid("notes", "must not be empty")
				}
				if len(notes) > dispatch.MaxNotes {
					return invalid("notes", "%d notes exceeds the cap of %d", len(notes), dispatch.MaxNotes)
				}
				return nil
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				params := clipTarget(req)
				notes := argSlice(req, "notes")
				params["notes"] = notes
				if _, err := d.exec(ctx, "add_notes_to_clip", params); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: fmt.Sprintf("%d notes added", len(notes))}, nil
			},
		},
		{
			Definition: mcp.NewTool("set_clip_name",
				mcp.WithDescription("Rename a clip."),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("clip_index", mcp.Required(), mcp.Description("Target scene slot.")),
				mcp.WithString("name", mcp.Required(), mcp.Description("New clip name.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "set clip name",
			Validate:    requireClip,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				params := clipTarget(req)
				params["name"] = req.GetString("name", "")
				if _, err := d.exec(ctx, "set_clip_name", params); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: "Clip renamed"}, nil
			},
		},
	}

	type fireSpec struct {
		tool, command, doneMsg, desc string
	}
	for _, p := range []fireSpec{
		{"fire_clip", "fire_clip", "Clip launched", "Launch a clip."},
		{"stop_clip", "stop_clip", "Clip stopped", "Stop a playing clip."},
		{"delete_clip", "delete_clip", "Clip deleted", "Delete a clip."},
	} {
		p := p
		specs = append(specs, dispatch.ToolSpec{
			Definition: mcp.NewTool(p.tool,
				mcp.WithDescription(p.desc),
				mcp.WithNumber("track_index", mcp.Required(), mcp.Description("Target track.")),
				mcp.WithNumber("clip_index", mcp.Required(), mcp.Description("Target scene slot.")),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: p.tool,
			Validate:    requireClip,
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				if _, err := d.exec(ctx, p.command, clipTarget(req)); err != nil {
					return nil, err
				}
				return &dispatch.Result{Message: p.doneMsg}, nil
			},
		})
	}

	return specs
}
