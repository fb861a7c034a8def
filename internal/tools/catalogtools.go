package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/catalog"
	"github.com/livebridge/livebridge/internal/dispatch"
)

// catalogTools covers searching, listing, and refreshing the browser
// catalog cache.
func catalogTools(d *Deps) []dispatch.ToolSpec {
	return []dispatch.ToolSpec{
		{
			Definition: mcp.NewTool("search_catalog",
				mcp.WithDescription("Search loadable devices, presets, and samples by name."),
				mcp.WithString("query", mcp.Required(), mcp.Description("Case-insensitive substring.")),
				mcp.WithString("category",
					mcp.Description("Restrict to one category."),
					mcp.Enum(catalog.Categories...)),
				mcp.WithNumber("limit", mcp.Description("Maximum results, default 25.")),
			),
			Needs:       dispatch.Needs{Catalog: true},
			ErrorPrefix: "search catalog",
			Validate: func(req mcp.CallToolRequest) error {
				return requireQuery(req, "query")
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				query := req.GetString("query", "")
				items := d.Catalog.Search(query, req.GetString("category", ""), req.GetInt("limit", 25))
				return &dispatch.Result{
					Message: fmt.Sprintf("%d matches for %q", len(items), query),
					Data:    map[string]any{"items": items},
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("list_catalog_category",
				mcp.WithDescription("List everything cached under one catalog category."),
				mcp.WithString("category", mcp.Required(),
					mcp.Description("Category to list."),
					mcp.Enum(catalog.Categories...)),
			),
			Needs:       dispatch.Needs{Catalog: true},
			ErrorPrefix: "list category",
			Validate: func(req mcp.CallToolRequest) error {
				cat := req.GetString("category", "")
				for _, known := range catalog.Categories {
					if cat == known {
						return nil
					}
				}
				return invalid("category", "must be one of %s", strings.Join(catalog.Categories, ", "))
			},
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				cat := req.GetString("category", "")
				items := d.Catalog.ListCategory(cat)
				return &dispatch.Result{
					Message: fmt.Sprintf("%d items in %s", len(items), cat),
					Data:    map[string]any{"items": items},
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("refresh_catalog",
				mcp.WithDescription("Walk the DAW browser and rebuild the catalog cache. "+
					"Runs through the command channel and can take a while; a refresh already "+
					"in flight makes this a no-op."),
			),
			Needs:       dispatch.Needs{DAW: true},
			ErrorPrefix: "refresh catalog",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				if err := d.Catalog.Populate(ctx, d.Pipeline); err != nil {
					return nil, err
				}
				return &dispatch.Result{
					Message: fmt.Sprintf("Catalog refreshed, %d items", d.Catalog.Size()),
				}, nil
			},
		},
		{
			Definition: mcp.NewTool("get_catalog_status",
				mcp.WithDescription("Report catalog cache state: population, size, per-category counts."),
			),
			ErrorPrefix: "catalog status",
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*dispatch.Result, error) {
				return &dispatch.Result{
					Message: fmt.Sprintf("Catalog holds %d items", d.Catalog.Size()),
					Data: map[string]any{
						"populated":    d.Catalog.Populated(),
						"items":        d.Catalog.Size(),
						"by_category":  d.Catalog.CategoryCounts(),
						"refreshed_at": d.Catalog.RefreshedAt(),
					},
				}, nil
			},
		},
	}
}
