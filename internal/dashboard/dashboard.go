// Package dashboard serves the read-only telemetry endpoints: connection
// states, recent tool calls, top tool counts, and catalog stats, as JSON
// plus one HTML page. Loopback only, opt-in, no mutation.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/livebridge/livebridge/internal/dispatch"
)

// Status is the snapshot served by /api/status.
type Status struct {
	Version          string         `json:"version"`
	DAWConnected     bool           `json:"daw_connected"`
	BridgeConnected  bool           `json:"bridge_connected"`
	BridgeVersion    string         `json:"bridge_version,omitempty"`
	CatalogPopulated bool           `json:"catalog_populated"`
	CatalogItems     int            `json:"catalog_items"`
	CatalogByCat     map[string]int `json:"catalog_by_category,omitempty"`
	ToolCount        int            `json:"tool_count"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
}

// StatusSource feeds the dashboard from live daemon state.
type StatusSource interface {
	Status(ctx context.Context) Status
	Calls() *dispatch.CallLog
}

// Server is the dashboard HTTP server.
type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// New builds the server bound to addr.
func New(addr string, source StatusSource, log zerolog.Logger) *Server {
	l := log.With().Str("component", "dashboard").Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	r.Get("/api/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, source.Status(req.Context()))
	})
	r.Get("/api/calls", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"calls": source.Calls().Last(50)})
	})
	r.Get("/api/tools", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"tools": source.Calls().Top(20)})
	})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: l,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("dashboard listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// indexHTML is the single dashboard page: it polls the JSON endpoints
// every 3 seconds.
const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>livebridge</title>
<style>
 body { font-family: ui-monospace, monospace; margin: 2rem; background: #111; color: #ddd; }
 h1 { font-size: 1.2rem; }
 table { border-collapse: collapse; margin-top: 1rem; }
 td, th { border: 1px solid #333; padding: 0.3rem 0.6rem; text-align: left; }
 .ok { color: #6c6; } .bad { color: #c66; }
</style>
</head>
<body>
<h1>livebridge</h1>
<div id="status">loading…</div>
<h2>Recent tool calls</h2>
<table id="calls"><thead><tr><th>time</th><th>tool</th><th>args</th><th>ms</th><th>outcome</th></tr></thead><tbody></tbody></table>
<script>
async function refresh() {
  const st = await (await fetch('/api/status')).json();
  document.getElementById('status').innerHTML =
    'version ' + st.version +
    ' | DAW <span class="' + (st.daw_connected ? 'ok">connected' : 'bad">down') + '</span>' +
    ' | bridge <span class="' + (st.bridge_connected ? 'ok">connected' : 'bad">down') + '</span>' +
    ' | catalog ' + st.catalog_items + ' items' +
    ' | ' + st.tool_count + ' tools';
  const calls = (await (await fetch('/api/calls')).json()).calls || [];
  document.querySelector('#calls tbody').innerHTML = calls.map(c =>
    '<tr><td>' + c.timestamp + '</td><td>' + c.name + '</td><td>' + c.args_summary +
    '</td><td>' + c.duration_ms + '</td><td>' + c.outcome + '</td></tr>').join('');
}
refresh();
setInterval(refresh, 3000);
</script>
</body>
</html>
`
