package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/netmap-core/internal/configfile"
	"github.com/nerrad567/netmap-core/internal/connection"
	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/discovery"
	"github.com/nerrad567/netmap-core/internal/topology"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInternal        = "internal_error"
	ErrCodeValidation      = "validation_error"
	ErrCodeScanFailed      = "scan_failed"
	ErrCodePayloadTooLarge = "payload_too_large"
	ErrCodeUnavailable     = "service_unavailable"
)

// reverseConnectionMessage is shown verbatim by the connection form.
const reverseConnectionMessage = "Cannot create this connection: reverse connection already exists."

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeValidationError writes a 400 validation error response.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps a domain error onto the response envelope.
// fallback is the message used for unexpected (500) errors, whose
// detail is logged rather than returned.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")

	case errors.Is(err, connection.ErrReverseExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, reverseConnectionMessage)

	case errors.Is(err, device.ErrDeviceExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())

	case errors.Is(err, device.ErrInvalidDevice),
		errors.Is(err, device.ErrNoIPAddress),
		errors.Is(err, connection.ErrInvalidConnection),
		errors.Is(err, connection.ErrDeviceNotFound),
		errors.Is(err, configfile.ErrInvalidFile),
		errors.Is(err, topology.ErrInvalidPosition):
		writeValidationError(w, err.Error())

	case errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, connection.ErrConnectionNotFound),
		errors.Is(err, configfile.ErrFileNotFound),
		errors.Is(err, topology.ErrNodeNotFound):
		writeNotFound(w, err.Error())

	case errors.Is(err, discovery.ErrInvalidSubnet),
		errors.Is(err, discovery.ErrSubnetTooLarge):
		writeBadRequest(w, err.Error())

	case errors.Is(err, discovery.ErrScan):
		writeError(w, http.StatusBadGateway, ErrCodeScanFailed, err.Error())

	default:
		s.logger.Error(fallback,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, fallback)
	}
}
