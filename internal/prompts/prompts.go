// Package prompts implements the MCP prompt templates: canned instruction
// flows the agent can request by name.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// SoundDesignPrompt guides a sound-design session over the bridge tools.
type SoundDesignPrompt struct{}

// NewSoundDesignPrompt creates the prompt.
func NewSoundDesignPrompt() *SoundDesignPrompt { return &SoundDesignPrompt{} }

// Definition returns the prompt definition for registration.
func (p *SoundDesignPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("sound-design-workflow",
		mcp.WithPromptDescription("Step-by-step workflow for shaping a sound on an existing device, "+
			"using discovery, snapshots, and batched parameter changes."),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the sound should become, e.g. 'warm pad' or 'aggressive bass'."),
		),
	)
}

// Handle renders the prompt.
func (p *SoundDesignPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := req.Params.Arguments["goal"]
	if goal == "" {
		goal = "the requested sound"
	}
	text := fmt.Sprintf(`You are shaping a device toward: %s.

Work in this order:
1. Call discover_device_parameters on the target device to learn its full parameter set.
2. Call capture_device_snapshot so the starting point is restorable.
3. Apply changes with batch_set_hidden_parameters or set_device_parameters_batch, a few parameters at a time.
4. If a direction fails, restore_device_snapshot and try another.
5. When it sounds right, capture a final snapshot and report its id.`, goal)

	return mcp.NewGetPromptResult(
		"Sound design workflow",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	), nil
}

// SessionSetupPrompt guides building a new session skeleton.
type SessionSetupPrompt struct{}

// NewSessionSetupPrompt creates the prompt.
func NewSessionSetupPrompt() *SessionSetupPrompt { return &SessionSetupPrompt{} }

// Definition returns the prompt definition for registration.
func (p *SessionSetupPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("session-setup",
		mcp.WithPromptDescription("Workflow for laying out a new session: tempo, tracks, instruments, colors."),
		mcp.WithArgument("genre",
			mcp.ArgumentDescription("Musical genre to set up for."),
		),
	)
}

// Handle renders the prompt.
func (p *SessionSetupPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	genre := req.Params.Arguments["genre"]
	if genre == "" {
		genre = "the requested genre"
	}
	text := fmt.Sprintf(`Set up a fresh session for %s.

1. Call get_session_info to see what already exists.
2. Call set_tempo with a tempo typical for the genre.
3. Use create_instrument_track for each part (search_catalog first when unsure of exact names).
4. Name and color every track as you create it.
5. Finish by reading livebridge://tracks and summarizing the layout.`, genre)

	return mcp.NewGetPromptResult(
		"Session setup",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	), nil
}
