// Package server wires all daemon components and creates the MCP server
// instance.
//
// This is the composition root: it creates the transports, the pipeline,
// the catalog cache, the shared stores, and the dispatcher, and registers
// every tool, prompt, and resource. No business logic lives here — only
// wiring.
package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/livebridge/livebridge/internal/catalog"
	"github.com/livebridge/livebridge/internal/config"
	"github.com/livebridge/livebridge/internal/dashboard"
	"github.com/livebridge/livebridge/internal/daw"
	"github.com/livebridge/livebridge/internal/dispatch"
	"github.com/livebridge/livebridge/internal/osc"
	"github.com/livebridge/livebridge/internal/prompts"
	"github.com/livebridge/livebridge/internal/readiness"
	"github.com/livebridge/livebridge/internal/resources"
	"github.com/livebridge/livebridge/internal/stores"
	"github.com/livebridge/livebridge/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Daemon is the assembled bridge runtime: the MCP server plus the
// background machinery it depends on.
type Daemon struct {
	MCP *server.MCPServer

	cfg        *config.Config
	log        zerolog.Logger
	tcp        *daw.TCPClient
	bridge     *osc.Client
	realtime   *daw.RealtimeSender
	pipeline   *daw.Pipeline
	cache      *catalog.Cache
	dispatcher *dispatch.Dispatcher

	dawConnected *readiness.Event
	started      time.Time
}

// New assembles the daemon. The returned cleanup function closes the
// transports and must be called on shutdown.
func New(cfg *config.Config, log zerolog.Logger) (*Daemon, func(), error) {
	d := &Daemon{
		cfg:          cfg,
		log:          log,
		dawConnected: readiness.NewEvent(),
		started:      time.Now(),
	}

	// --- Transports and pipeline ---

	d.tcp = daw.NewTCPClient(cfg.TCPAddr(), log, d.dawConnected.Set)
	d.bridge = osc.NewClient(cfg.OSCSendAddr(), cfg.OSCRecvAddr(), Version, log)

	rt, err := daw.NewRealtimeSender(cfg.RealtimeAddr(), log)
	if err != nil {
		return nil, nil, err
	}
	d.realtime = rt
	d.pipeline = daw.NewPipeline(d.tcp, d.bridge, log)

	// --- Catalog cache and shared stores ---

	catalogReady := readiness.NewEvent()
	d.cache = catalog.NewCache(cfg.CatalogDir, catalogReady, log)

	snapshots := stores.NewSnapshotStore()
	macros := stores.NewMacroStore()
	paramMaps := stores.NewParameterMapStore()
	templates, err := stores.NewTemplateStore(cfg.CatalogDir, log)
	if err != nil {
		cleanupTransports(d)
		return nil, nil, err
	}

	// --- Dispatcher ---

	calls := dispatch.NewCallLog(200)
	d.dispatcher = dispatch.NewDispatcher(dispatch.Gates{
		DAWConnected:     d.dawConnected.IsSet,
		BridgeHealthy:    d.bridge.Healthy,
		CatalogPopulated: d.cache.Populated,
	}, calls, 8, log)

	// --- MCP server ---

	s := server.NewMCPServer(
		"livebridge",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)
	d.MCP = s

	// --- Register tools ---

	deps := &tools.Deps{
		Pipeline:  d.pipeline,
		Bridge:    d.bridge,
		Realtime:  d.realtime,
		Catalog:   d.cache,
		Snapshots: snapshots,
		Macros:    macros,
		ParamMaps: paramMaps,
		Templates: templates,
		Version:   Version,
		Status:    d.Status,
		Log:       log,
	}
	for _, spec := range tools.All(deps) {
		d.dispatcher.Register(s, spec)
	}

	// --- Register resources ---

	resourceHandler := resources.NewHandler(d.pipeline, d.cache, d.Status)
	s.AddResource(resourceHandler.SessionResource(), resourceHandler.HandleSession)
	s.AddResource(resourceHandler.TracksResource(), resourceHandler.HandleTracks)
	s.AddResource(resourceHandler.CatalogStatusResource(), resourceHandler.HandleCatalogStatus)
	s.AddResource(resourceHandler.CapabilitiesResource(), resourceHandler.HandleCapabilities)

	// --- Register prompts ---

	soundDesign := prompts.NewSoundDesignPrompt()
	s.AddPrompt(soundDesign.Definition(), soundDesign.Handle)

	sessionSetup := prompts.NewSessionSetupPrompt()
	s.AddPrompt(sessionSetup.Definition(), sessionSetup.Handle)

	cleanup := func() { cleanupTransports(d) }
	return d, cleanup, nil
}

func cleanupTransports(d *Daemon) {
	if d.tcp != nil {
		_ = d.tcp.Close()
	}
	if d.bridge != nil {
		_ = d.bridge.Close()
	}
	if d.realtime != nil {
		_ = d.realtime.Close()
	}
}

// Background runs the long-lived tasks: the eager DAW connect and the
// catalog bring-up. Returns once the catalog is loaded from disk or the
// initial populate finishes, or when ctx is canceled first.
func (d *Daemon) Background(ctx context.Context) error {
	// Eager connect so the DAW-connected event fires before the first
	// tool call when the DAW is already up. Failure is fine — the client
	// reconnects lazily on demand.
	if err := d.tcp.Connect(ctx); err != nil {
		d.log.Warn().Err(err).Msg("DAW not reachable at startup, will retry on demand")
	}

	if d.cache.LoadFromDisk() {
		return nil
	}

	// No usable snapshot: wait for the DAW, then walk the browser once.
	select {
	case <-ctx.Done():
		return nil
	case <-d.dawConnected.Done():
	}
	if err := d.cache.Populate(ctx, d.pipeline); err != nil {
		d.log.Warn().Err(err).Msg("initial catalog populate failed")
	}
	return nil
}

// Dashboard builds the dashboard server when enabled, else returns nil.
func (d *Daemon) Dashboard() *dashboard.Server {
	if !d.cfg.DashboardEnabled {
		return nil
	}
	return dashboard.New(d.cfg.DashboardAddr(), d, d.log)
}

// Status implements dashboard.StatusSource and feeds the capabilities
// tool and resource.
func (d *Daemon) Status(ctx context.Context) dashboard.Status {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return dashboard.Status{
		Version:          Version,
		DAWConnected:     d.dawConnected.IsSet(),
		BridgeConnected:  d.bridge.Healthy(pingCtx),
		BridgeVersion:    d.bridge.BridgeVersion(),
		CatalogPopulated: d.cache.Populated(),
		CatalogItems:     d.cache.Size(),
		CatalogByCat:     d.cache.CategoryCounts(),
		ToolCount:        d.dispatcher.ToolCount(),
		UptimeSeconds:    int64(time.Since(d.started).Seconds()),
	}
}

// Calls implements dashboard.StatusSource.
func (d *Daemon) Calls() *dispatch.CallLog {
	return d.dispatcher.Calls()
}

func serverInstructions() string {
	return `livebridge controls a digital audio workstation on this machine.

Use get_capabilities first: it reports whether the DAW, the deep-API
bridge device, and the browser catalog are available. Tools that need an
unavailable resource fail fast with kind "not_ready".

Device names given to load_instrument_or_effect and
create_instrument_track are resolved against the catalog; exact catalog
URIs are always accepted. search_catalog finds names worth loading.

Every tool answers with one JSON envelope: {"status":"ok",...} or
{"status":"error","kind":...,"message":...}.`
}
