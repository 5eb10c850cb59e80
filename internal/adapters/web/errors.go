package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"inventory-transfer/internal/app"
	"inventory-transfer/internal/core"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, status, errorResponse{Error: message, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, resp errorResponse) {
	resp.RequestID = requestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a success envelope.
func writeJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Message: message})
}

// writeCoreError translates an error from the application layer into an HTTP response.
func (h *Handler) writeCoreError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.Is(err, core.ErrInconsistentState):
		h.logger.Error("Inconsistent stock state",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, "stock may be inconsistent, contact an administrator", "INCONSISTENT_STATE", http.StatusInternalServerError)
	case errors.As(err, &verr):
		writeErrorResponse(w, r, http.StatusUnprocessableEntity, errorResponse{
			Error:  "The given data was invalid.",
			Code:   "VALIDATION_FAILED",
			Errors: verr.Fields,
		})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrInsufficientAvailable):
		writeError(w, r, err.Error(), "INSUFFICIENT_AVAILABLE", http.StatusBadRequest)
	case errors.Is(err, core.ErrInsufficientReserved):
		writeError(w, r, err.Error(), "INSUFFICIENT_RESERVED", http.StatusBadRequest)
	case errors.Is(err, core.ErrInvalidState):
		writeError(w, r, err.Error(), "INVALID_STATE", http.StatusBadRequest)
	case errors.Is(err, core.ErrConflict):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, r, "invalid username or password", "UNAUTHORIZED", http.StatusUnauthorized)
	default:
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
