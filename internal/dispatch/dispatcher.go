package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// Input size caps enforced before any I/O.
const (
	MaxNotes            = 10000
	MaxAutomationPoints = 500
	MaxBatchParams      = 200
	MaxQueryLen         = 500
)

const argsSummaryLimit = 160

// Needs declares which readiness preconditions a tool requires. The
// dispatcher rejects the call with NotReady before the handler runs.
type Needs struct {
	DAW     bool
	Bridge  bool
	Catalog bool
}

// ToolSpec is one registry entry: the MCP definition plus the handler,
// its validator, its precondition needs, and the error-prefix label used
// in error envelopes.
type ToolSpec struct {
	Definition  mcp.Tool
	Needs       Needs
	ErrorPrefix string
	Validate    func(req mcp.CallToolRequest) error
	Handle      func(ctx context.Context, req mcp.CallToolRequest) (*Result, error)
}

// Gates answer the dispatcher's precondition checks against live state.
type Gates struct {
	DAWConnected     func() bool
	BridgeHealthy    func(ctx context.Context) bool
	CatalogPopulated func() bool
}

// Dispatcher routes tool invocations from the agent protocol. Handlers
// run on a bounded worker pool so the protocol loop stays responsive, and
// every outcome is recorded in the call log.
type Dispatcher struct {
	log     zerolog.Logger
	calls   *CallLog
	gates   Gates
	workers chan struct{}
	tools   int
}

// NewDispatcher creates a dispatcher with the given worker pool size.
func NewDispatcher(gates Gates, calls *CallLog, workerCount int, log zerolog.Logger) *Dispatcher {
	if workerCount <= 0 {
		workerCount = 8
	}
	return &Dispatcher{
		log:     log.With().Str("component", "dispatch").Logger(),
		calls:   calls,
		gates:   gates,
		workers: make(chan struct{}, workerCount),
	}
}

// Register adds one tool to the MCP server, wrapped in the dispatch flow.
func (d *Dispatcher) Register(s *server.MCPServer, spec ToolSpec) {
	s.AddTool(spec.Definition, d.wrap(spec))
	d.tools++
}

// ToolCount reports how many tools were registered.
func (d *Dispatcher) ToolCount() int { return d.tools }

// Calls exposes the call log to the dashboard and resources.
func (d *Dispatcher) Calls() *CallLog { return d.calls }

// wrap builds the per-call flow of one registry entry: log, gate,
// validate, execute on the pool with recovery, envelope.
func (d *Dispatcher) wrap(spec ToolSpec) server.ToolHandlerFunc {
	name := spec.Definition.Name
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		summary := summarizeArgs(req)

		res, err := d.execute(ctx, spec, req)

		outcome := "ok"
		var out *mcp.CallToolResult
		if err != nil {
			outcome = string(dawerr.KindOf(err))
			if dawerr.KindOf(err) == dawerr.KindInternal {
				d.log.Error().Str("tool", name).Err(err).Msg("tool failed internally")
			}
			out = mcp.NewToolResultError(ErrorEnvelope(spec.ErrorPrefix, err))
		} else {
			out = mcp.NewToolResultText(SuccessEnvelope(res))
		}

		d.calls.Record(CallEntry{
			Timestamp:   start,
			Name:        name,
			ArgsSummary: summary,
			DurationMS:  time.Since(start).Milliseconds(),
			Outcome:     outcome,
		})
		d.log.Debug().Str("tool", name).Str("outcome", outcome).
			Dur("elapsed", time.Since(start)).Msg("tool call")
		return out, nil
	}
}

func (d *Dispatcher) execute(ctx context.Context, spec ToolSpec, req mcp.CallToolRequest) (*Result, error) {
	if err := d.checkNeeds(ctx, spec.Needs); err != nil {
		return nil, err
	}
	if spec.Validate != nil {
		if err := spec.Validate(req); err != nil {
			if dawerr.KindOf(err) == dawerr.KindInvalidInput {
				return nil, err
			}
			return nil, dawerr.Wrap(dawerr.KindInvalidInput, err, "%s", err.Error())
		}
	}

	// Run on the pool. The handler always runs to completion even if the
	// caller goes away: transports must not be abandoned mid-round-trip.
	done := make(chan struct{})
	var res *Result
	var err error

	d.workers <- struct{}{}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = dawerr.New(dawerr.KindInternal, "panic in handler: %v", r)
				d.log.Error().Any("panic", r).Str("stack", string(debug.Stack())).
					Str("tool", spec.Definition.Name).Msg("handler panicked")
			}
			<-d.workers
			close(done)
		}()
		res, err = spec.Handle(ctx, req)
	}()
	<-done

	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, dawerr.New(dawerr.KindInternal, "handler returned no result")
	}
	return res, nil
}

func (d *Dispatcher) checkNeeds(ctx context.Context, needs Needs) error {
	if needs.DAW && d.gates.DAWConnected != nil && !d.gates.DAWConnected() {
		return dawerr.New(dawerr.KindNotReady, "DAW is not connected")
	}
	if needs.Bridge && d.gates.BridgeHealthy != nil && !d.gates.BridgeHealthy(ctx) {
		return dawerr.New(dawerr.KindNotReady, "bridge device is not responding")
	}
	if needs.Catalog && d.gates.CatalogPopulated != nil && !d.gates.CatalogPopulated() {
		return dawerr.New(dawerr.KindNotReady, "catalog is not populated")
	}
	return nil
}

// summarizeArgs renders the call arguments as a truncated one-liner for
// the ring log.
func summarizeArgs(req mcp.CallToolRequest) string {
	args := req.GetArguments()
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("<%d args>", len(args))
	}
	s := string(data)
	if len(s) > argsSummaryLimit {
		s = s[:argsSummaryLimit] + "..."
	}
	return s
}
