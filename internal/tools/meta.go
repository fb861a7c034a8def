package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/dispatch"
)

// metaTools covers the capabilities report.
func metaTools(d *Deps) []dispatch.ToolSpec {
	return []dispatch.ToolSpec{
		{
			Definition: mcp.NewTool("get_capabilities",
				mcp.WithDescription("Report daemon capabilities: DAW and bridge connectivity, "+
					"catalog population and size, tool count, versions."),
			),
			ErrorPrefix: "capabilities",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				st := d.Status(ctx)
				return &dispatch.Result{
					Message: "Capabilities",
					Data:    st,
				}, nil
			},
		},
	}
}
