package api

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/netmap-core/internal/audit"
	"github.com/nerrad567/netmap-core/internal/configfile"
)

// Multipart fields of a configuration file upload.
const (
	configFileField        = "file"
	configDeviceField      = "related_device"
	configDescriptionField = "description"
)

// handleListConfigFiles returns file metadata, newest first.
//
// Query parameters:
//   - device_id: files of one device
func (s *Server) handleListConfigFiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigs(w) {
		return
	}
	files, err := s.configs.List(r.Context(), r.URL.Query().Get("device_id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list configuration files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files, "count": len(files)})
}

// handleUploadConfigFile stores a configuration file for a device.
func (s *Server) handleUploadConfigFile(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigs(w) {
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeMultipartError(w, r, err)
		return
	}

	file, header, err := r.FormFile(configFileField)
	if err != nil {
		writeValidationError(w, "file is required")
		return
	}
	defer file.Close()

	deviceID, ok := requiredField(r.FormValue(configDeviceField))
	if !ok {
		writeValidationError(w, "related_device is required")
		return
	}

	f, err := s.configs.Upload(r.Context(), configfile.Upload{
		DeviceID:    deviceID,
		FileName:    header.Filename,
		Description: r.FormValue(configDescriptionField),
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "failed to upload configuration file")
		return
	}

	s.recordChange(audit.ActionUpload, audit.EntityConfigFile, f.ID, f, map[string]any{
		"related_device": f.RelatedDevice,
		"file_name":      f.FileName,
		"size":           f.Size,
	})
	writeJSON(w, http.StatusCreated, f)
}

// handleGetConfigFile returns file metadata.
func (s *Server) handleGetConfigFile(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigs(w) {
		return
	}
	f, err := s.configs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get configuration file")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// handleDownloadConfigFile streams the file content as an attachment.
func (s *Server) handleDownloadConfigFile(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigs(w) {
		return
	}
	f, content, err := s.configs.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to open configuration file")
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		s.logger.Debug("configuration file download interrupted", "id", f.ID, "error", err)
	}
}

// handleDeleteConfigFile removes a file and its content.
func (s *Server) handleDeleteConfigFile(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigs(w) {
		return
	}
	f, err := s.configs.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to delete configuration file")
		return
	}

	s.recordChange(audit.ActionDelete, audit.EntityConfigFile, f.ID, nil, map[string]any{
		"related_device": f.RelatedDevice,
		"file_name":      f.FileName,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireConfigs(w http.ResponseWriter) bool {
	if s.configs == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "configuration files not configured")
		return false
	}
	return true
}
