package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for netmap-core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Topology  TopologyConfig  `yaml:"topology"`
}

// SiteConfig identifies the network being inventoried.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// StorageConfig contains settings for binary assets (device photos and
// configuration file content).
type StorageConfig struct {
	Path        string `yaml:"path"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MonitorConfig controls the background reachability refresh.
type MonitorConfig struct {
	// Enabled starts the periodic refresh loop. Single-device checks
	// through the API work regardless.
	Enabled bool `yaml:"enabled"`

	// Interval is the refresh cadence in seconds. Default: 30
	Interval int `yaml:"interval"`

	// ProbeTimeout bounds a single device probe in seconds. Default: 2
	ProbeTimeout int `yaml:"probe_timeout"`

	// Concurrency is the maximum number of probes in flight per cycle.
	Concurrency int `yaml:"concurrency"`
}

// DiscoveryConfig controls subnet scanning.
type DiscoveryConfig struct {
	DefaultSubnet    string `yaml:"default_subnet"`
	Workers          int    `yaml:"workers"`
	MaxHosts         int    `yaml:"max_hosts"`
	ProbeTimeout     int    `yaml:"probe_timeout"`
	ResolveHostnames bool   `yaml:"resolve_hostnames"`
}

// TopologyConfig sets the geometry of the circular layout.
type TopologyConfig struct {
	Radius  float64 `yaml:"radius"`
	CenterX float64 `yaml:"center_x"`
	CenterY float64 `yaml:"center_y"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: NETMAP_SECTION_KEY
// For example: NETMAP_DATABASE_PATH, NETMAP_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "netmap",
		},
		Database: DatabaseConfig{
			Path:        "./data/netmap.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Storage: StorageConfig{
			Path:        "./data/files",
			MaxUploadMB: 10,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "netmap-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Monitor: MonitorConfig{
			Enabled:      true,
			Interval:     30,
			ProbeTimeout: 2,
			Concurrency:  16,
		},
		Discovery: DiscoveryConfig{
			DefaultSubnet:    "192.168.1.0/24",
			Workers:          32,
			MaxHosts:         4096,
			ProbeTimeout:     2,
			ResolveHostnames: true,
		},
		Topology: TopologyConfig{
			Radius:  250,
			CenterX: 400,
			CenterY: 300,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: NETMAP_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NETMAP_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("NETMAP_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}

	if v := os.Getenv("NETMAP_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("NETMAP_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("NETMAP_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("NETMAP_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("NETMAP_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("NETMAP_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("NETMAP_DISCOVERY_DEFAULT_SUBNET"); v != "" {
		cfg.Discovery.DefaultSubnet = v
	}
	if v := os.Getenv("NETMAP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent field checks
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Storage.Path == "" {
		errs = append(errs, "storage.path is required")
	}
	if c.Storage.MaxUploadMB < 1 {
		errs = append(errs, "storage.max_upload_mb must be at least 1")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Monitor.Interval < 1 {
		errs = append(errs, "monitor.interval must be at least 1 second")
	}
	if c.Monitor.ProbeTimeout < 1 {
		errs = append(errs, "monitor.probe_timeout must be at least 1 second")
	}
	if c.Monitor.Concurrency < 1 {
		errs = append(errs, "monitor.concurrency must be at least 1")
	}

	if c.Discovery.DefaultSubnet != "" {
		if _, err := netip.ParsePrefix(c.Discovery.DefaultSubnet); err != nil {
			errs = append(errs, fmt.Sprintf("discovery.default_subnet is not a valid CIDR: %v", err))
		}
	}
	if c.Discovery.Workers < 1 {
		errs = append(errs, "discovery.workers must be at least 1")
	}
	if c.Discovery.MaxHosts < 1 {
		errs = append(errs, "discovery.max_hosts must be at least 1")
	}

	if c.Topology.Radius <= 0 {
		errs = append(errs, "topology.radius must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// MonitorInterval returns the status refresh cadence.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.Interval) * time.Second
}

// MonitorProbeTimeout returns the per-device probe timeout.
func (c *Config) MonitorProbeTimeout() time.Duration {
	return time.Duration(c.Monitor.ProbeTimeout) * time.Second
}

// DiscoveryProbeTimeout returns the per-host timeout used during a subnet sweep.
func (c *Config) DiscoveryProbeTimeout() time.Duration {
	return time.Duration(c.Discovery.ProbeTimeout) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMB) << 20
}
