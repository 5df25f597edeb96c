package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/netmap-core/internal/audit"
	"github.com/nerrad567/netmap-core/internal/device"
)

// defaultHistoryLimit is the status-history page size when none is given.
const defaultHistoryLimit = 50

// handleListDevices returns devices ordered by hostname.
//
// Query parameters:
//   - type: filter by device type (COMPUTER, ROUTER, ...)
//   - is_online: filter by reachability (true/false)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var filter device.Filter
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		t, err := device.ParseDeviceType(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		filter.Type = t
	}
	if v := q.Get("is_online"); v != "" {
		online, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "is_online must be true or false")
			return
		}
		filter.IsOnline = &online
	}

	devices, err := s.registry.ListDevices(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice creates a new device. The ID, photo and timestamps
// are always assigned by the server.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev device.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	dev.ID = ""
	dev.Photo = ""

	if err := s.registry.CreateDevice(r.Context(), &dev); err != nil {
		s.writeDomainError(w, r, err, "failed to create device")
		return
	}

	s.recordChange(audit.ActionCreate, audit.EntityDevice, dev.ID, dev, map[string]any{
		"hostname": dev.Hostname,
	})
	writeJSON(w, http.StatusCreated, dev)
}

// handlePatchDevice applies the fields present in the body onto the
// stored device.
func (s *Server) handlePatchDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}
	photo := existing.Photo

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	existing.ID = id
	existing.Photo = photo

	s.updateDevice(w, r, existing)
}

// handleReplaceDevice replaces every editable field. Fields missing from
// the body are cleared; the photo and reachability are kept.
func (s *Server) handleReplaceDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}

	var dev device.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	dev.ID = id
	dev.Photo = existing.Photo
	dev.IsOnline = existing.IsOnline

	s.updateDevice(w, r, &dev)
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request, dev *device.Device) {
	if err := s.registry.UpdateDevice(r.Context(), dev); err != nil {
		s.writeDomainError(w, r, err, "failed to update device")
		return
	}

	s.recordChange(audit.ActionUpdate, audit.EntityDevice, dev.ID, dev, map[string]any{
		"hostname": dev.Hostname,
	})
	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device. Its connections and configuration
// file rows are removed by the database; blobs and pins are cleaned here.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}
	if err := s.registry.DeleteDevice(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err, "failed to delete device")
		return
	}

	if s.configs != nil {
		if err := s.configs.PurgeDevice(id); err != nil {
			s.logger.Warn("failed to purge configuration file content", "device_id", id, "error", err)
		}
	}
	if s.blobs != nil {
		if err := s.blobs.DeletePrefix(photoPrefix(id)); err != nil {
			s.logger.Warn("failed to delete device photo", "device_id", id, "error", err)
		}
	}
	s.topology.Unpin(id)

	s.recordChange(audit.ActionDelete, audit.EntityDevice, id, nil, map[string]any{
		"hostname": dev.Hostname,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleCheckStatus probes one device now and returns the status text.
// The text contains "online" exactly when the device is reachable.
func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "status monitor not configured")
		return
	}

	dev, res, err := s.monitor.CheckDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to check device status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": res.Status,
		"method": res.Method,
		"device": dev,
	})
}

// handleStatusHistory returns the newest reachability transitions first.
//
// Query parameters:
//   - limit: max results (default 50)
func (s *Server) handleStatusHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "status history not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.registry.GetDevice(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.GetHistory(r.Context(), id, limit)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get status history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries, "count": len(entries)})
}

// writeDecodeError reports a body that could not be decoded, keeping the
// 413 for bodies cut off by the size limit.
func (s *Server) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeBadRequest(w, "invalid JSON body")
}

// requiredField trims v and reports whether anything is left.
func requiredField(v string) (string, bool) {
	v = strings.TrimSpace(v)
	return v, v != ""
}
