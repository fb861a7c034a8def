package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9877, cfg.TCPPort)
	assert.Equal(t, 9882, cfg.UDPRealtimePort)
	assert.Equal(t, 9878, cfg.OSCSendPort)
	assert.Equal(t, 9879, cfg.OSCRecvPort)
	assert.Equal(t, 9876, cfg.SentinelPort)
	assert.False(t, cfg.DashboardEnabled)
	assert.Equal(t, 9880, cfg.DashboardPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.CatalogDir)

	assert.Equal(t, "127.0.0.1:9877", cfg.TCPAddr())
	assert.Equal(t, "127.0.0.1:9879", cfg.OSCRecvAddr())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LIVEBRIDGE_TCP_PORT", "19877")
	t.Setenv("LIVEBRIDGE_DASHBOARD_ENABLED", "true")
	t.Setenv("LIVEBRIDGE_LOG_LEVEL", "debug")
	t.Setenv("LIVEBRIDGE_CATALOG_DIR", "/tmp/livebridge-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 19877, cfg.TCPPort)
	assert.True(t, cfg.DashboardEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/livebridge-test", cfg.CatalogDir)
}

func TestLoadRejectsBadPorts(t *testing.T) {
	t.Setenv("LIVEBRIDGE_TCP_PORT", "70000")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsEqualOSCPorts(t *testing.T) {
	t.Setenv("LIVEBRIDGE_OSC_SEND_PORT", "9900")
	t.Setenv("LIVEBRIDGE_OSC_RECV_PORT", "9900")
	_, err := Load()
	require.Error(t, err)
}
