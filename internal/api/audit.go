package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/netmap-core/internal/audit"
	"github.com/nerrad567/netmap-core/internal/infrastructure/mqtt"
)

// recordChange fans a successful mutation out to the audit trail, the
// inventory.changed WebSocket channel and the MQTT inventory topic.
// Every sink is best-effort and optional.
func (s *Server) recordChange(action, entityType, entityID string, data any, details map[string]any) {
	if s.audit != nil {
		s.audit.Record(action, entityType, entityID, details)
	}

	payload := InventoryPayload{
		Entity: entityType,
		Action: action,
		ID:     entityID,
		Data:   data,
	}
	if s.hub != nil {
		s.hub.Broadcast(ChannelInventory, payload)
	}
	if s.mqtt != nil && s.mqtt.IsConnected() {
		if err := s.mqtt.PublishJSON(mqtt.Topics{}.Inventory(entityType, action), payload, false); err != nil {
			s.logger.Warn("publishing inventory event failed",
				"entity_type", entityType,
				"action", action,
				"error", err,
			)
		}
	}
}

// handleListAuditLogs returns paginated audit log entries with optional filters.
//
// Query parameters:
//   - action: filter by action type (create, update, delete, promote, upload)
//   - entity_type: filter by entity type (device, connection, configuration_file, discovery)
//   - entity_id: filter by specific entity ID
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
