// netmap - Network Device Inventory and Topology Service
//
// This is the main entry point for netmap. It tracks the devices of a small
// network, keeps their reachability current, discovers new hosts on a
// subnet and serves the inventory and its topology over a REST API.
//
// Configuration is read from configs/config.yaml or the file named by
// NETMAP_CONFIG.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/netmap-core/migrations"

	"github.com/nerrad567/netmap-core/internal/api"
	"github.com/nerrad567/netmap-core/internal/audit"
	"github.com/nerrad567/netmap-core/internal/configfile"
	"github.com/nerrad567/netmap-core/internal/connection"
	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/discovery"
	"github.com/nerrad567/netmap-core/internal/infrastructure/blobstore"
	"github.com/nerrad567/netmap-core/internal/infrastructure/config"
	"github.com/nerrad567/netmap-core/internal/infrastructure/database"
	"github.com/nerrad567/netmap-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/netmap-core/internal/infrastructure/logging"
	"github.com/nerrad567/netmap-core/internal/infrastructure/metrics"
	"github.com/nerrad567/netmap-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/netmap-core/internal/monitor"
	"github.com/nerrad567/netmap-core/internal/probe"
	"github.com/nerrad567/netmap-core/internal/topology"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C or SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear start-up sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting netmap",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Open blob store for configuration files and photos
	blobs, err := blobstore.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	log.Info("blob store ready", "path", blobs.Root())

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// Initialise device registry
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("device"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.GetDeviceCount())
	history := device.NewSQLiteStatusHistoryRepository(db.DB)

	graph := connection.NewGraph(connection.NewSQLiteRepository(db.DB))
	graph.SetLogger(log.Component("connection"))

	configs := configfile.NewService(configfile.NewSQLiteRepository(db.DB), blobs, registry, cfg.MaxUploadBytes())
	configs.SetLogger(log.Component("configfile"))

	recorder := audit.NewRecorder(audit.NewSQLiteRepository(db.DB))
	recorder.SetLogger(log.Component("audit"))
	recorder.Start(ctx)
	defer recorder.Stop()

	// The hub exists before the API starts so the monitor and scanner
	// can notify it.
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))

	prober := probe.New(probe.Config{Timeout: cfg.MonitorProbeTimeout()})
	mon := monitor.New(registry, prober, monitor.Config{
		Interval:    cfg.MonitorInterval(),
		Concurrency: cfg.Monitor.Concurrency,
	})
	mon.SetLogger(log.Component("monitor"))
	mon.SetMetrics(collector)
	mon.AddNotifier(monitor.OnChange(monitor.NewHistoryRecorder(history, log.Component("monitor"))))
	mon.AddNotifier(monitor.OnChange(hub))

	scanner := discovery.NewScanner(discovery.Config{
		DefaultSubnet:    cfg.Discovery.DefaultSubnet,
		Workers:          cfg.Discovery.Workers,
		MaxHosts:         cfg.Discovery.MaxHosts,
		ResolveHostnames: cfg.Discovery.ResolveHostnames,
	}, probe.New(probe.Config{Timeout: cfg.DiscoveryProbeTimeout()}), discovery.NetResolver, registry)
	scanner.SetLogger(log.Component("discovery"))
	scanner.SetMetrics(collector)
	scanner.SetStatusHistory(history)
	scanner.AddObserver(hub)

	if mqttClient != nil {
		events := &mqttEvents{client: mqttClient, log: log.Component("mqtt")}
		mon.AddNotifier(monitor.OnChange(events))
		scanner.AddObserver(events)
	}
	if influxClient != nil {
		// Every probe is a sample, changed or not.
		samples := &influxEvents{client: influxClient}
		mon.AddNotifier(samples)
		scanner.AddObserver(samples)
	}

	engine := topology.NewEngine(topology.Options{
		Radius:  cfg.Topology.Radius,
		CenterX: cfg.Topology.CenterX,
		CenterY: cfg.Topology.CenterY,
	})

	optional := make(map[string]api.HealthChecker)
	if mqttClient != nil {
		optional["mqtt"] = mqttClient
	}
	if influxClient != nil {
		optional["influxdb"] = influxClient
	}

	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log.Component("api"),
		Version:   version,
		Registry:  registry,
		History:   history,
		Graph:     graph,
		Configs:   configs,
		Blobs:     blobs,
		Monitor:   mon,
		Scanner:   scanner,
		Topology:  engine,
		Audit:     recorder,
		Metrics:   collector,
		MQTT:      mqttClient,
		Hub:       hub,
		Database:  db,
		Optional:  optional,
		UploadMax: cfg.MaxUploadBytes(),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if cfg.Monitor.Enabled {
		mon.Start(ctx)
		defer func() {
			log.Info("stopping monitor")
			mon.Stop()
		}()
		log.Info("monitor started", "interval", cfg.MonitorInterval().String())
	} else {
		log.Info("monitor disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// monitor, API server, audit recorder, InfluxDB, MQTT, database.

	log.Info("netmap stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses NETMAP_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("NETMAP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
