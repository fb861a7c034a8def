// livebridge: a protocol-bridging daemon that lets an AI agent drive a
// digital audio workstation over MCP.
//
// It multiplexes agent tool calls onto three DAW-facing transports — a
// reliable TCP command channel, a best-effort UDP real-time channel, and
// an OSC-framed deep-API bridge — and serves an optional read-only
// dashboard.
//
// Usage:
//
//	livebridge serve     # Start the MCP server (stdio transport)
//	livebridge version   # Print the daemon version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/livebridge/livebridge/internal/config"
	"github.com/livebridge/livebridge/internal/logging"
	"github.com/livebridge/livebridge/internal/server"
	"github.com/livebridge/livebridge/internal/singleton"
)

// Exit codes: 0 clean, 1 configuration error, 2 singleton conflict,
// 3 required port bind failure.
const (
	exitConfig    = 1
	exitSingleton = 2
	exitBind      = 3
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitConfig)
	}

	switch os.Args[1] {
	case "serve":
		run()
	case "version", "--version", "-v":
		fmt.Printf("livebridge v%s\n", server.Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(exitConfig)
	}
}

func run() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(exitConfig)
	}
	log := logging.New(cfg.LogLevel)

	guard, err := singleton.Acquire(cfg.SentinelPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSingleton)
	}
	defer guard.Close()

	daemon, cleanup, err := server.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitBind)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return daemon.Background(gctx) })
	if dash := daemon.Dashboard(); dash != nil {
		g.Go(func() error { return dash.Run(gctx) })
	}

	log.Info().Str("version", server.Version).Msg("livebridge serving on stdio")
	serveErr := mcpserver.ServeStdio(daemon.MCP)
	cancel()
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("background task failed")
	}
	if serveErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", serveErr)
		os.Exit(exitConfig)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `livebridge v%s — DAW control bridge for AI agents (MCP over stdio)

Usage:
  livebridge serve     Start the MCP server
  livebridge version   Print the version

Configuration (environment):
  LIVEBRIDGE_TCP_PORT           DAW command channel port (default 9877)
  LIVEBRIDGE_UDP_RT_PORT        DAW real-time UDP port (default 9882)
  LIVEBRIDGE_OSC_SEND_PORT      Bridge device command port (default 9878)
  LIVEBRIDGE_OSC_RECV_PORT      Bridge device response port (default 9879)
  LIVEBRIDGE_SENTINEL_PORT      Single-instance sentinel port (default 9876)
  LIVEBRIDGE_DASHBOARD_ENABLED  Serve the telemetry dashboard (default false)
  LIVEBRIDGE_DASHBOARD_PORT     Dashboard port (default 9880)
  LIVEBRIDGE_CATALOG_DIR        Persisted catalog directory
  LIVEBRIDGE_LOG_LEVEL          trace|debug|info|warn|error (default info)

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "livebridge": {
        "command": "livebridge",
        "args": ["serve"]
      }
    }
  }
`, server.Version)
}
