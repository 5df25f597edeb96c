package api

import (
	"errors"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/netmap-core/internal/audit"
	"github.com/nerrad567/netmap-core/internal/configfile"
	"github.com/nerrad567/netmap-core/internal/infrastructure/blobstore"
)

const (
	// photoField is the multipart field carrying the image.
	photoField = "photo"

	// multipartMemory is held in memory before parts spill to temp files.
	multipartMemory = 8 << 20
)

func photoPrefix(deviceID string) string {
	return "photos/" + deviceID
}

// handlePutPhoto stores the uploaded image and points the device at it.
// A previous photo with a different name is removed.
func (s *Server) handlePutPhoto(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "blob storage not configured")
		return
	}

	id := chi.URLParam(r, "id")
	existing, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeMultipartError(w, r, err)
		return
	}
	file, header, err := r.FormFile(photoField)
	if err != nil {
		writeValidationError(w, "photo file is required")
		return
	}
	defer file.Close()

	name, err := configfile.SanitizeFileName(header.Filename)
	if err != nil {
		writeValidationError(w, "invalid photo file name")
		return
	}
	key := path.Join(photoPrefix(id), name)

	if _, err := s.blobs.Put(key, file, s.uploadMax); err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "photo exceeds the upload limit")
			return
		}
		s.writeDomainError(w, r, err, "failed to store photo")
		return
	}

	dev, err := s.registry.SetPhoto(r.Context(), id, key)
	if err != nil {
		_ = s.blobs.Delete(key) //nolint:errcheck // best-effort cleanup of the orphaned blob
		s.writeDomainError(w, r, err, "failed to set photo")
		return
	}
	if existing.Photo != "" && existing.Photo != key {
		if err := s.blobs.Delete(existing.Photo); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn("failed to delete replaced photo", "device_id", id, "key", existing.Photo, "error", err)
		}
	}

	s.recordChange(audit.ActionUpdate, audit.EntityDevice, id, dev, map[string]any{
		"photo": key,
	})
	writeJSON(w, http.StatusOK, dev)
}

// handleGetPhoto serves the device photo.
func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}
	if dev.Photo == "" || s.blobs == nil {
		writeNotFound(w, "device has no photo")
		return
	}

	f, err := s.blobs.Open(dev.Photo)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			writeNotFound(w, "device has no photo")
			return
		}
		s.writeDomainError(w, r, err, "failed to open photo")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeDomainError(w, r, err, "failed to open photo")
		return
	}
	http.ServeContent(w, r, path.Base(dev.Photo), info.ModTime(), f)
}

// handleDeletePhoto clears the device photo.
func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}
	if existing.Photo == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if _, err := s.registry.SetPhoto(r.Context(), id, ""); err != nil {
		s.writeDomainError(w, r, err, "failed to clear photo")
		return
	}
	if s.blobs != nil {
		if err := s.blobs.Delete(existing.Photo); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn("failed to delete photo content", "device_id", id, "error", err)
		}
	}

	s.recordChange(audit.ActionUpdate, audit.EntityDevice, id, nil, map[string]any{
		"photo": nil,
	})
	w.WriteHeader(http.StatusNoContent)
}

// writeMultipartError reports a multipart body that could not be parsed.
func (s *Server) writeMultipartError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeBadRequest(w, "invalid multipart form")
}
