package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handlePatchDevice)
				r.Put("/", s.handleReplaceDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/check-status", s.handleCheckStatus)
				r.Get("/status-history", s.handleStatusHistory)
				r.Put("/photo", s.handlePutPhoto)
				r.Get("/photo", s.handleGetPhoto)
				r.Delete("/photo", s.handleDeletePhoto)
			})
		})

		r.Route("/discovery", func(r chi.Router) {
			r.Post("/scan", s.handleScan)
			r.Post("/promote", s.handlePromote)
		})

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", s.handleListConnections)
			r.Post("/", s.handleCreateConnection)
			r.Get("/{id}", s.handleGetConnection)
			r.Put("/{id}", s.handleUpdateConnection)
			r.Delete("/{id}", s.handleDeleteConnection)
		})

		r.Route("/configuration-files", func(r chi.Router) {
			r.Get("/", s.handleListConfigFiles)
			r.Post("/", s.handleUploadConfigFile)
			r.Get("/{id}", s.handleGetConfigFile)
			r.Delete("/{id}", s.handleDeleteConfigFile)
			r.Get("/{id}/download", s.handleDownloadConfigFile)
		})

		r.Route("/topology", func(r chi.Router) {
			r.Get("/", s.handleGetTopology)
			r.Put("/positions/{id}", s.handlePinNode)
			r.Delete("/positions/{id}", s.handleUnpinNode)
			r.Post("/select/{id}", s.handleSelectNode)
		})

		r.Get("/audit", s.handleListAuditLogs)
		r.Get(s.websocketPath(), s.handleWebSocket)
	})

	return r
}

// websocketPath is the configured WebSocket route under /api/v1.
func (s *Server) websocketPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports liveness plus the state of each dependency.
// A failing database makes the service unhealthy (503); a failing
// optional sink only degrades it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.optional)+1)
	status, code := "ok", http.StatusOK

	if s.database != nil {
		checks["database"] = runCheck(r.Context(), s.database)
		if checks["database"] != "ok" {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}
	for name, checker := range s.optional {
		checks[name] = runCheck(r.Context(), checker)
		if checks[name] != "ok" && status == "ok" {
			status = "degraded"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"checks":         checks,
	})
}

func runCheck(ctx context.Context, c HealthChecker) string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := c.HealthCheck(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
