package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/topology"
)

// projectTopology lays out the current inventory, dropping pins of
// devices that no longer exist.
func (s *Server) projectTopology(r *http.Request) (topology.Graph, error) {
	devices, err := s.registry.ListDevices(r.Context(), device.Filter{})
	if err != nil {
		return topology.Graph{}, err
	}
	conns, err := s.graph.List(r.Context(), "")
	if err != nil {
		return topology.Graph{}, err
	}
	s.topology.Prune(devices)
	return s.topology.Project(devices, conns), nil
}

// handleGetTopology returns the node and edge projection.
func (s *Server) handleGetTopology(w http.ResponseWriter, r *http.Request) {
	g, err := s.projectTopology(r)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to build topology")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handlePinNode fixes a node at the given position.
func (s *Server) handlePinNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.registry.GetDevice(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}

	var pos topology.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	if err := s.topology.Pin(id, pos); err != nil {
		s.writeDomainError(w, r, err, "failed to pin node")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "position": pos})
}

// handleUnpinNode returns a node to its circular placement.
func (s *Server) handleUnpinNode(w http.ResponseWriter, r *http.Request) {
	s.topology.Unpin(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectNode returns the device reference for a clicked node, used
// to seed the source of a new connection.
func (s *Server) handleSelectNode(w http.ResponseWriter, r *http.Request) {
	g, err := s.projectTopology(r)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to build topology")
		return
	}
	ref, err := topology.OnNodeSelect(g, chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to select node")
		return
	}
	writeJSON(w, http.StatusOK, ref)
}
