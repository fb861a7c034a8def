// Package resources implements the read-only MCP resources: session and
// track state, catalog status, and the capabilities report. Where the
// answer lives in daemon memory no DAW command is issued.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/livebridge/livebridge/internal/catalog"
	"github.com/livebridge/livebridge/internal/dashboard"
	"github.com/livebridge/livebridge/internal/daw"
)

// Handler serves all livebridge:// resources.
type Handler struct {
	pipeline *daw.Pipeline
	cache    *catalog.Cache
	status   func(ctx context.Context) dashboard.Status
}

// NewHandler creates the resource handler.
func NewHandler(pipeline *daw.Pipeline, cache *catalog.Cache, status func(ctx context.Context) dashboard.Status) *Handler {
	return &Handler{pipeline: pipeline, cache: cache, status: status}
}

// SessionResource describes livebridge://session.
func (h *Handler) SessionResource() mcp.Resource {
	return mcp.NewResource("livebridge://session", "Session state",
		mcp.WithResourceDescription("Current session state: tempo, signature, playback, track and scene counts."),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSession reads session state from the DAW.
func (h *Handler) HandleSession(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	resp, err := h.pipeline.SendCommand(ctx, daw.Command{Type: "get_session_info"})
	if err != nil {
		return nil, fmt.Errorf("reading session info: %w", err)
	}
	return jsonContents(req.Params.URI, json.RawMessage(resp.Result))
}

// TracksResource describes livebridge://tracks.
func (h *Handler) TracksResource() mcp.Resource {
	return mcp.NewResource("livebridge://tracks", "Track list",
		mcp.WithResourceDescription("All tracks with names, colors, arm/mute/solo state, and device lists."),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleTracks reads the track list from the DAW.
func (h *Handler) HandleTracks(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	resp, err := h.pipeline.SendCommand(ctx, daw.Command{Type: "get_track_info"})
	if err != nil {
		return nil, fmt.Errorf("reading track info: %w", err)
	}
	return jsonContents(req.Params.URI, json.RawMessage(resp.Result))
}

// CatalogStatusResource describes livebridge://catalog-status.
func (h *Handler) CatalogStatusResource() mcp.Resource {
	return mcp.NewResource("livebridge://catalog-status", "Catalog status",
		mcp.WithResourceDescription("Catalog cache state: population, item count, per-category counts."),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCatalogStatus answers from cache memory only.
func (h *Handler) HandleCatalogStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, map[string]any{
		"populated":    h.cache.Populated(),
		"items":        h.cache.Size(),
		"by_category":  h.cache.CategoryCounts(),
		"refreshed_at": h.cache.RefreshedAt(),
	})
}

// CapabilitiesResource describes livebridge://capabilities.
func (h *Handler) CapabilitiesResource() mcp.Resource {
	return mcp.NewResource("livebridge://capabilities", "Capabilities",
		mcp.WithResourceDescription("Connectivity, catalog, and version report for this daemon."),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCapabilities answers from daemon state; the only outbound traffic
// is a bridge ping when the cached bridge health has expired.
func (h *Handler) HandleCapabilities(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, h.status(ctx))
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding resource %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
