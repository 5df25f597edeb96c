package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/netmap-core/internal/audit"
)

// connectionRequest is the body of connection create and update.
type connectionRequest struct {
	SourceDevice   string `json:"source_device"`
	TargetDevice   string `json:"target_device"`
	ConnectionType string `json:"connection_type"`
}

// handleListConnections returns connections, optionally only those
// touching one device.
//
// Query parameters:
//   - device_id: device at either end
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.graph.List(r.Context(), r.URL.Query().Get("device_id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list connections")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": conns, "count": len(conns)})
}

// handleGetConnection returns a single connection.
func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	c, err := s.graph.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get connection")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleCreateConnection links two devices. The reverse of an existing
// link is rejected with 409.
func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}

	c, err := s.graph.Create(r.Context(), req.SourceDevice, req.TargetDevice, req.ConnectionType)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to create connection")
		return
	}

	s.recordChange(audit.ActionCreate, audit.EntityConnection, c.ID, c, map[string]any{
		"source_device":   c.SourceDevice,
		"target_device":   c.TargetDevice,
		"connection_type": string(c.ConnectionType),
	})
	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateConnection replaces the endpoints and type of a connection.
func (s *Server) handleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}

	c, err := s.graph.Update(r.Context(), chi.URLParam(r, "id"), req.SourceDevice, req.TargetDevice, req.ConnectionType)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to update connection")
		return
	}

	s.recordChange(audit.ActionUpdate, audit.EntityConnection, c.ID, c, map[string]any{
		"source_device":   c.SourceDevice,
		"target_device":   c.TargetDevice,
		"connection_type": string(c.ConnectionType),
	})
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteConnection removes a connection.
func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.graph.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err, "failed to delete connection")
		return
	}

	s.recordChange(audit.ActionDelete, audit.EntityConnection, id, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}
