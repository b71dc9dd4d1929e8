// ABOUTME: JSON response helpers and the error-to-status mapping for the API
// ABOUTME: Every error body has the same {code, message} shape
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/store"
	"go.uber.org/zap"
)

const (
	codeInvalidRequest = "invalid_request"
	codeValidation     = "validation_failed"
	codeNotFound       = "not_found"
	codeInUse          = "in_use"
	codeUnavailable    = "store_unavailable"
	codeRateLimited    = "rate_limit_exceeded"
	codeInternal       = "internal_error"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{Code: code, Message: message})
}

// handleServiceError maps the CRM error taxonomy onto HTTP statuses.
// Backend details are logged, never returned.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, codeValidation, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "record not found")
	case errors.Is(err, crm.ErrInUse):
		writeError(w, http.StatusConflict, codeInUse, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		s.log.Error("store unavailable",
			zap.Error(err),
			zap.String("request_id", RequestIDFromContext(r.Context())))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "storage is temporarily unavailable")
	default:
		s.log.Error("request failed",
			zap.Error(err),
			zap.String("request_id", RequestIDFromContext(r.Context())))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid id "+raw)
		return uuid.Nil, false
	}
	return id, true
}

// parseRef reads an optional reference. Absent or blank leaves it unset,
// "none" clears it, anything else must be a UUID.
func parseRef(w http.ResponseWriter, field string, raw *string) (*uuid.UUID, bool) {
	if raw == nil {
		return nil, true
	}
	switch v := strings.TrimSpace(*raw); v {
	case "":
		return nil, true
	case "none":
		return models.Ref(uuid.Nil), true
	default:
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid "+field+" "+v)
			return nil, false
		}
		return &id, true
	}
}
