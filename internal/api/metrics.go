package api

import (
	"net/http"
)

// handleMetrics serves the Prometheus exposition. The device gauges are
// refreshed from the registry cache first so a scrape between monitor
// cycles still sees inventory edits.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.SetDeviceCounts(s.registry.Counts())
	s.metrics.Handler().ServeHTTP(w, r)
}
