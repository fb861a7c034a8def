// Package tools defines the agent-facing tool registry: every tool's MCP
// definition, validator, readiness needs, and handler, grouped one file
// per tool family. The server composition root collects All() and hands
// each entry to the dispatcher.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/livebridge/livebridge/internal/catalog"
	"github.com/livebridge/livebridge/internal/dashboard"
	"github.com/livebridge/livebridge/internal/daw"
	"github.com/livebridge/livebridge/internal/dawerr"
	"github.com/livebridge/livebridge/internal/dispatch"
	"github.com/livebridge/livebridge/internal/osc"
	"github.com/livebridge/livebridge/internal/stores"
)

// resolveWait bounds how long a handler waits for the catalog before
// passing a raw name through to the DAW.
const resolveWait = 5 * time.Second

// Deps carries every dependency a tool handler can need. Status is bound
// late by the composition root, after the dispatcher exists.
type Deps struct {
	Pipeline  *daw.Pipeline
	Bridge    *osc.Client
	Realtime  *daw.RealtimeSender
	Catalog   *catalog.Cache
	Snapshots *stores.SnapshotStore
	Macros    *stores.MacroStore
	ParamMaps *stores.ParameterMapStore
	Templates *stores.TemplateStore
	Version   string
	Status    func(ctx context.Context) dashboard.Status
	Log       zerolog.Logger
}

// All returns the complete registry in registration order.
func All(d *Deps) []dispatch.ToolSpec {
	var specs []dispatch.ToolSpec
	specs = append(specs, sessionTools(d)...)
	specs = append(specs, trackTools(d)...)
	specs = append(specs, clipTools(d)...)
	specs = append(specs, deviceTools(d)...)
	specs = append(specs, bridgeTools(d)...)
	specs = append(specs, catalogTools(d)...)
	specs = append(specs, storeTools(d)...)
	specs = append(specs, realtimeTools(d)...)
	specs = append(specs, metaTools(d)...)
	return specs
}

// exec runs one TCP command through the pipeline and returns its raw
// result payload.
func (d *Deps) exec(ctx context.Context, commandType string, params map[string]any, opts ...daw.SendOption) (json.RawMessage, error) {
	resp, err := d.Pipeline.SendCommand(ctx, daw.Command{Type: commandType, Params: params}, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// decodeResult unmarshals a raw result into out, tolerating an empty
// payload.
func decodeResult(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// resultAny returns the raw result as a generic value for envelope data.
func resultAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// argSlice reads an array-typed argument.
func argSlice(req mcp.CallToolRequest, name string) []any {
	v, _ := req.GetArguments()[name].([]any)
	return v
}

// invalid builds an InvalidInput error naming the offending field.
func invalid(field, format string, args ...any) error {
	return dawerr.New(dawerr.KindInvalidInput, "field %q: %s", field, fmt.Sprintf(format, args...))
}

// requireQuery validates a free-text query argument against the size cap.
func requireQuery(req mcp.CallToolRequest, field string) error {
	q := req.GetString(field, "")
	if q == "" {
		return invalid(field, "must not be empty")
	}
	if len(q) > dispatch.MaxQueryLen {
		return invalid(field, "longer than %d characters", dispatch.MaxQueryLen)
	}
	return nil
}
