package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/netmap-core/internal/audit"
	"github.com/nerrad567/netmap-core/internal/configfile"
	"github.com/nerrad567/netmap-core/internal/connection"
	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/discovery"
	"github.com/nerrad567/netmap-core/internal/infrastructure/blobstore"
	"github.com/nerrad567/netmap-core/internal/infrastructure/config"
	"github.com/nerrad567/netmap-core/internal/infrastructure/database"
	"github.com/nerrad567/netmap-core/internal/infrastructure/logging"
	"github.com/nerrad567/netmap-core/internal/infrastructure/metrics"
	"github.com/nerrad567/netmap-core/internal/monitor"
	"github.com/nerrad567/netmap-core/internal/probe"
	"github.com/nerrad567/netmap-core/internal/topology"
	_ "github.com/nerrad567/netmap-core/migrations"
)

// fakeProber reports the IPs in online as reachable.
type fakeProber struct {
	mu     sync.Mutex
	online map[string]bool
}

func (f *fakeProber) Probe(_ context.Context, ip string) (probe.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.online[ip] {
		return probe.Result{Online: true, Method: probe.MethodPing, Status: probe.StatusOnline}, nil
	}
	return probe.Result{Method: probe.MethodNone, Status: probe.StatusOffline}, nil
}

// fakePinger answers Reachable from a fixed set.
type fakePinger struct {
	up  map[string]bool
	err error
}

func (f *fakePinger) Reachable(_ context.Context, ip string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.up[ip], nil
}

type fakeResolver map[string]string

func (f fakeResolver) LookupAddr(_ context.Context, addr string) ([]string, error) {
	if name, ok := f[addr]; ok {
		return []string{name + "."}, nil
	}
	return nil, errNoHost
}

var errNoHost = errors.New("no such host")

type testEnv struct {
	srv      *Server
	router   http.Handler
	db       *database.DB
	registry *device.Registry
	graph    *connection.Graph
	blobs    *blobstore.Store
	prober   *fakeProber
	pinger   *fakePinger
	audit    *audit.Recorder
	metrics  *metrics.Collector
}

// newTestEnv builds a Server over in-memory SQLite and a temp blob store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(database.Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	blobs, err := blobstore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}
	history := device.NewSQLiteStatusHistoryRepository(db.DB)
	graph := connection.NewGraph(connection.NewSQLiteRepository(db.DB))
	configs := configfile.NewService(configfile.NewSQLiteRepository(db.DB), blobs, registry, 1024)

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}

	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	prober := &fakeProber{online: make(map[string]bool)}
	mon := monitor.New(registry, prober, monitor.Config{Interval: time.Hour, Concurrency: 4})
	mon.AddNotifier(monitor.OnChange(monitor.NewHistoryRecorder(history, nil)))
	mon.AddNotifier(monitor.OnChange(hub))

	pinger := &fakePinger{up: make(map[string]bool)}
	scanner := discovery.NewScanner(discovery.Config{
		DefaultSubnet:    "10.0.0.0/29",
		Workers:          4,
		MaxHosts:         256,
		ResolveHostnames: true,
	}, pinger, fakeResolver{"10.0.0.2": "nas.lan"}, registry)
	scanner.SetStatusHistory(history)
	scanner.AddObserver(hub)

	recorder := audit.NewRecorder(audit.NewSQLiteRepository(db.DB))
	recorder.Start(ctx)
	t.Cleanup(recorder.Stop)

	srv, err := New(Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:        config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:    log,
		Version:   "test",
		Registry:  registry,
		History:   history,
		Graph:     graph,
		Configs:   configs,
		Blobs:     blobs,
		Monitor:   mon,
		Scanner:   scanner,
		Topology:  topology.NewEngine(topology.DefaultOptions()),
		Audit:     recorder,
		Metrics:   collector,
		Hub:       hub,
		Database:  db,
		UploadMax: 1024,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	hubCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go hub.Run(hubCtx)

	return &testEnv{
		srv:      srv,
		router:   srv.buildRouter(),
		db:       db,
		registry: registry,
		graph:    graph,
		blobs:    blobs,
		prober:   prober,
		pinger:   pinger,
		audit:    recorder,
		metrics:  collector,
	}
}

// do sends a JSON request through the router.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// upload sends a single-file multipart request.
func (e *testEnv) upload(t *testing.T, method, path, field, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// createDevice adds a device through the API and returns it.
func (e *testEnv) createDevice(t *testing.T, hostname, ip string) device.Device {
	t.Helper()
	body := map[string]any{"hostname": hostname}
	if ip != "" {
		body["ip_address"] = ip
	}
	rec := e.do(t, http.MethodPost, "/api/v1/devices", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %s: status = %d, body = %s", hostname, rec.Code, rec.Body.String())
	}
	var d device.Device
	decode(t, rec, &d)
	return d
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

// expectError asserts the status and code of an error envelope.
func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) Error {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var e Error
	decode(t, rec, &e)
	if e.Code != code {
		t.Errorf("code = %q, want %q", e.Code, code)
	}
	return e
}

func TestNew_RequiresDependencies(t *testing.T) {
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{}, "test")
	registry := device.NewRegistry(nil)

	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Registry: registry}},
		{"no registry", Deps{Logger: log}},
		{"no graph", Deps{Logger: log, Registry: registry}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status  string            `json:"status"`
		Version string            `json:"version"`
		Checks  map[string]string `json:"checks"`
	}
	decode(t, rec, &body)
	if body.Status != "ok" || body.Version != "test" {
		t.Errorf("health = %+v", body)
	}
	if body.Checks["database"] != "ok" {
		t.Errorf("database check = %q", body.Checks["database"])
	}
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return io.ErrUnexpectedEOF }

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t)
	env.srv.optional = map[string]HealthChecker{"mqtt": failingCheck{}}

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}

	env.srv.database = failingCheck{}
	rec = env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when the database fails", rec.Code)
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q", got)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("generated X-Request-ID missing")
	}
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t)

	huge := bytes.Repeat([]byte("a"), maxRequestBodySize+10)
	body := append(append([]byte(`{"hostname":"`), huge...), []byte(`"}`)...)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	expectError(t, rec, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge)
}

func TestRecoveryMiddleware(t *testing.T) {
	env := newTestEnv(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	expectError(t, rec, http.StatusInternalServerError, ErrCodeInternal)
}
