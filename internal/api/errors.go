package api

import (
	"encoding/json"
	"net/http"

	"github.com/twinkletaps/twinkletaps-core/internal/apperr"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/mqtt"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeLastAdmin      = "last_admin"
	ErrCodePoolExhausted  = "pool_exhausted"
	ErrCodeDeliveryFailed = "delivery_failed"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

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

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps an error returned by a core service to a response.
// Kinded errors carry a message fit for the caller; anything else is
// logged and reported as a generic internal error.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperr.Kind(err) {
	case apperr.ErrForbidden:
		writeError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case apperr.ErrInvalidInput:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case apperr.ErrNotFound:
		writeNotFound(w, err.Error())
	case apperr.ErrPoolEmpty:
		writeError(w, http.StatusServiceUnavailable, ErrCodePoolExhausted, "no device credentials available")
	case apperr.ErrAlreadyAcceptedOrExpired:
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case apperr.ErrLastAdmin:
		writeError(w, http.StatusConflict, ErrCodeLastAdmin, err.Error())
	default:
		if mqtt.IsDeliveryError(err) {
			s.logger.Warn("device delivery failed",
				"path", r.URL.Path,
				"request_id", r.Context().Value(ctxKeyRequestID),
				"error", err,
			)
			writeError(w, http.StatusBadGateway, ErrCodeDeliveryFailed, "device could not be reached")
			return
		}
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err,
		)
		writeInternalError(w, "internal server error")
	}
}
