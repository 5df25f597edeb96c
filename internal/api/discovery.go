package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nerrad567/netmap-core/internal/audit"
	"github.com/nerrad567/netmap-core/internal/discovery"
)

// scanRequest is the body of POST /discovery/scan. An empty subnet
// scans the configured default.
type scanRequest struct {
	Subnet string `json:"subnet"`
}

// handleScan sweeps a subnet and returns the responsive hosts that are
// not yet in the inventory. A failed scan returns no candidates at all.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "discovery not configured")
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeDecodeError(w, r, err)
		return
	}

	result, err := s.scanner.Scan(r.Context(), req.Subnet)
	if err != nil {
		s.writeDomainError(w, r, err, "scan failed")
		return
	}

	candidates := result.Candidates
	if candidates == nil {
		candidates = []discovery.Candidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subnet":     result.Subnet,
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// handlePromote adds a scan candidate to the inventory. Promoting the
// same candidate twice creates two devices.
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "discovery not configured")
		return
	}

	var c discovery.Candidate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}

	dev, err := s.scanner.Promote(r.Context(), c)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to promote candidate")
		return
	}

	s.recordChange(audit.ActionPromote, audit.EntityDevice, dev.ID, dev, map[string]any{
		"hostname":   dev.Hostname,
		"ip_address": dev.IP(),
	})
	writeJSON(w, http.StatusCreated, dev)
}
