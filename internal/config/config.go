// Package config loads the daemon configuration from LIVEBRIDGE_*
// environment variables with defaults matching the DAW-side scripts.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the resolved daemon configuration.
type Config struct {
	TCPPort          int
	UDPRealtimePort  int
	OSCSendPort      int
	OSCRecvPort      int
	SentinelPort     int
	DashboardEnabled bool
	DashboardPort    int
	CatalogDir       string
	LogLevel         string
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LIVEBRIDGE")
	v.AutomaticEnv()

	v.SetDefault("tcp_port", 9877)
	v.SetDefault("udp_rt_port", 9882)
	v.SetDefault("osc_send_port", 9878)
	v.SetDefault("osc_recv_port", 9879)
	v.SetDefault("sentinel_port", 9876)
	v.SetDefault("dashboard_enabled", false)
	v.SetDefault("dashboard_port", 9880)
	v.SetDefault("catalog_dir", defaultCatalogDir())
	v.SetDefault("log_level", "info")

	cfg := &Config{
		TCPPort:          v.GetInt("tcp_port"),
		UDPRealtimePort:  v.GetInt("udp_rt_port"),
		OSCSendPort:      v.GetInt("osc_send_port"),
		OSCRecvPort:      v.GetInt("osc_recv_port"),
		SentinelPort:     v.GetInt("sentinel_port"),
		DashboardEnabled: v.GetBool("dashboard_enabled"),
		DashboardPort:    v.GetInt("dashboard_port"),
		CatalogDir:       v.GetString("catalog_dir"),
		LogLevel:         v.GetString("log_level"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	ports := map[string]int{
		"LIVEBRIDGE_TCP_PORT":       c.TCPPort,
		"LIVEBRIDGE_UDP_RT_PORT":    c.UDPRealtimePort,
		"LIVEBRIDGE_OSC_SEND_PORT":  c.OSCSendPort,
		"LIVEBRIDGE_OSC_RECV_PORT":  c.OSCRecvPort,
		"LIVEBRIDGE_SENTINEL_PORT":  c.SentinelPort,
		"LIVEBRIDGE_DASHBOARD_PORT": c.DashboardPort,
	}
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s: port %d out of range", name, port)
		}
	}
	if c.OSCSendPort == c.OSCRecvPort {
		return fmt.Errorf("OSC send and receive ports must differ (both %d)", c.OSCSendPort)
	}
	if c.CatalogDir == "" {
		return fmt.Errorf("LIVEBRIDGE_CATALOG_DIR must not be empty")
	}
	return nil
}

// TCPAddr is the DAW command endpoint. Everything binds to loopback; the
// daemon always runs on the same host as the DAW.
func (c *Config) TCPAddr() string { return fmt.Sprintf("127.0.0.1:%d", c.TCPPort) }

// RealtimeAddr is the DAW real-time UDP endpoint.
func (c *Config) RealtimeAddr() string { return fmt.Sprintf("127.0.0.1:%d", c.UDPRealtimePort) }

// OSCSendAddr is the bridge device's command port.
func (c *Config) OSCSendAddr() string { return fmt.Sprintf("127.0.0.1:%d", c.OSCSendPort) }

// OSCRecvAddr is the local bind for bridge responses.
func (c *Config) OSCRecvAddr() string { return fmt.Sprintf("127.0.0.1:%d", c.OSCRecvPort) }

// DashboardAddr is the dashboard's loopback bind.
func (c *Config) DashboardAddr() string { return fmt.Sprintf("127.0.0.1:%d", c.DashboardPort) }

func defaultCatalogDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".livebridge")
	}
	return filepath.Join(base, "livebridge")
}
