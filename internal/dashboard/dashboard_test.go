package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livebridge/livebridge/internal/dispatch"
)

type fakeSource struct {
	calls *dispatch.CallLog
}

func (f *fakeSource) Status(ctx context.Context) Status {
	return Status{
		Version:          "2.1.0",
		DAWConnected:     true,
		BridgeConnected:  false,
		CatalogPopulated: true,
		CatalogItems:     1234,
		ToolCount:        38,
	}
}

func (f *fakeSource) Calls() *dispatch.CallLog { return f.calls }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	calls := dispatch.NewCallLog(10)
	calls.Record(dispatch.CallEntry{Name: "set_tempo", Outcome: "ok", DurationMS: 12})
	calls.Record(dispatch.CallEntry{Name: "fire_clip", Outcome: "ok", DurationMS: 3})

	s := New("127.0.0.1:0", &fakeSource{calls: calls}, zerolog.Nop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var st Status
	getJSON(t, ts.URL+"/api/status", &st)
	assert.Equal(t, "2.1.0", st.Version)
	assert.True(t, st.DAWConnected)
	assert.False(t, st.BridgeConnected)
	assert.Equal(t, 1234, st.CatalogItems)
	assert.Equal(t, 38, st.ToolCount)
}

func TestCallsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Calls []dispatch.CallEntry `json:"calls"`
	}
	getJSON(t, ts.URL+"/api/calls", &body)
	require.Len(t, body.Calls, 2)
	assert.Equal(t, "fire_clip", body.Calls[0].Name, "newest first")
}

func TestToolsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Tools []dispatch.ToolCount `json:"tools"`
	}
	getJSON(t, ts.URL+"/api/tools", &body)
	require.Len(t, body.Tools, 2)
}

func TestIndexServesHTML(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]string
	getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, "ok", body["status"])
}
