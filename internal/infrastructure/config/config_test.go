package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "lab"
database:
  path: "/tmp/netmap-test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "broker.lan"
    port: 1883
    client_id: "netmap-test"
  qos: 1
api:
  port: 9090
monitor:
  interval: 15
discovery:
  default_subnet: "10.0.0.0/24"
  workers: 8
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "lab" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "lab")
	}
	if cfg.Database.Path != "/tmp/netmap-test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/netmap-test.db")
	}
	if cfg.MQTT.Broker.Host != "broker.lan" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.lan")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if got := cfg.MonitorInterval(); got != 15*time.Second {
		t.Errorf("MonitorInterval() = %v, want 15s", got)
	}
	if cfg.Discovery.Workers != 8 {
		t.Errorf("Discovery.Workers = %d, want 8", cfg.Discovery.Workers)
	}

	// Unset sections keep their defaults.
	if cfg.Topology.Radius != 250 || cfg.Topology.CenterX != 400 || cfg.Topology.CenterY != 300 {
		t.Errorf("Topology = %+v, want radius 250 centred on (400,300)", cfg.Topology)
	}
	if cfg.Monitor.ProbeTimeout != 2 {
		t.Errorf("Monitor.ProbeTimeout = %d, want default 2", cfg.Monitor.ProbeTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
site:
  id: ""
database:
  path: "/tmp/test.db"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error for empty site.id, got nil")
	}
	if !strings.Contains(err.Error(), "site.id is required") {
		t.Errorf("error = %v, want mention of site.id", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/from-file.db"
`)
	t.Setenv("NETMAP_DATABASE_PATH", "/tmp/from-env.db")
	t.Setenv("NETMAP_API_PORT", "8181")
	t.Setenv("NETMAP_DISCOVERY_DEFAULT_SUBNET", "172.16.0.0/28")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/from-env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.API.Port != 8181 {
		t.Errorf("API.Port = %d, want 8181", cfg.API.Port)
	}
	if cfg.Discovery.DefaultSubnet != "172.16.0.0/28" {
		t.Errorf("Discovery.DefaultSubnet = %q, want env override", cfg.Discovery.DefaultSubnet)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path is required",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "zero monitor interval",
			mutate:  func(c *Config) { c.Monitor.Interval = 0 },
			wantErr: "monitor.interval",
		},
		{
			name:    "malformed default subnet",
			mutate:  func(c *Config) { c.Discovery.DefaultSubnet = "192.168.1.0/33" },
			wantErr: "discovery.default_subnet",
		},
		{
			name:    "no discovery workers",
			mutate:  func(c *Config) { c.Discovery.Workers = 0 },
			wantErr: "discovery.workers",
		},
		{
			name:    "negative radius",
			mutate:  func(c *Config) { c.Topology.Radius = -1 },
			wantErr: "topology.radius",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.ID = ""
	cfg.Storage.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"site.id", "storage.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v", got)
	}
	if got := cfg.MonitorProbeTimeout(); got != 2*time.Second {
		t.Errorf("MonitorProbeTimeout() = %v", got)
	}
	if got := cfg.MaxUploadBytes(); got != 10<<20 {
		t.Errorf("MaxUploadBytes() = %d", got)
	}
}
