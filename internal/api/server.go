package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/netmap-core/internal/audit"
	"github.com/nerrad567/netmap-core/internal/configfile"
	"github.com/nerrad567/netmap-core/internal/connection"
	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/discovery"
	"github.com/nerrad567/netmap-core/internal/infrastructure/blobstore"
	"github.com/nerrad567/netmap-core/internal/infrastructure/config"
	"github.com/nerrad567/netmap-core/internal/infrastructure/logging"
	"github.com/nerrad567/netmap-core/internal/infrastructure/metrics"
	"github.com/nerrad567/netmap-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/netmap-core/internal/monitor"
	"github.com/nerrad567/netmap-core/internal/topology"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every dependency reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Version string

	Registry  *device.Registry
	History   device.StatusHistoryRepository
	Graph     *connection.Graph
	Configs   *configfile.Service
	Blobs     *blobstore.Store
	Monitor   *monitor.Monitor
	Scanner   *discovery.Scanner
	Topology  *topology.Engine
	Audit     *audit.Recorder
	Metrics   *metrics.Collector
	MQTT      *mqtt.Client // optional; inventory events are not published without it
	Hub       *Hub         // optional; created by Start when nil
	Database  HealthChecker
	Optional  map[string]HealthChecker // reported as degraded, never unhealthy
	UploadMax int64                    // photo size limit in bytes
}

// Server is the HTTP API server for netmap.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	version string

	registry  *device.Registry
	history   device.StatusHistoryRepository
	graph     *connection.Graph
	configs   *configfile.Service
	blobs     *blobstore.Store
	monitor   *monitor.Monitor
	scanner   *discovery.Scanner
	topology  *topology.Engine
	audit     *audit.Recorder
	metrics   *metrics.Collector
	mqtt      *mqtt.Client
	database  HealthChecker
	optional  map[string]HealthChecker
	uploadMax int64

	server    *http.Server
	hub       *Hub
	startTime time.Time
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, registry, graph, engines)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Graph == nil {
		return nil, fmt.Errorf("connection graph is required")
	}
	if deps.Topology == nil {
		deps.Topology = topology.NewEngine(topology.DefaultOptions())
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		version:   deps.Version,
		registry:  deps.Registry,
		history:   deps.History,
		graph:     deps.Graph,
		configs:   deps.Configs,
		blobs:     deps.Blobs,
		monitor:   deps.Monitor,
		scanner:   deps.Scanner,
		topology:  deps.Topology,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		mqtt:      deps.MQTT,
		database:  deps.Database,
		optional:  deps.Optional,
		uploadMax: deps.UploadMax,
		startTime: time.Now(),
	}

	// The monitor and scanner need the hub as a notifier before Start runs,
	// so cmd/netmap usually builds it up front.
	s.hub = deps.Hub

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// Hub returns the WebSocket hub, or nil before Start when none was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}
