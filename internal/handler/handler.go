// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/contactbridge/contactbridge/internal/handler/dto"
	"github.com/contactbridge/contactbridge/internal/middleware"
	"github.com/contactbridge/contactbridge/internal/service"
	"github.com/contactbridge/contactbridge/internal/upstream"
)

// retryAfterSeconds is sent with 503 responses after upstream timeouts.
const retryAfterSeconds = "5"

// Handler serves the router-level fallbacks.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
		Error: "resource not found",
		Code:  "NOT_FOUND",
	})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorResponse{
		Error: "method not allowed",
		Code:  "METHOD_NOT_ALLOWED",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, summary, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   summary,
		Code:    code,
		Message: message,
	})
}

// decodeJSON reads a JSON request body and writes the 4xx response itself
// when it cannot. It reports whether the caller should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", "")
		return false
	}
	writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body", err.Error())
	return false
}

// validationMessages are the client-facing texts for validation errors.
var validationMessages = []struct {
	err     error
	code    string
	message string
}{
	{service.ErrEmailRequired, "EMAIL_REQUIRED", "Email is required"},
	{service.ErrListIDRequired, "LIST_ID_REQUIRED", "List ID is required"},
	{service.ErrAttributesRequired, "ATTRIBUTES_REQUIRED", "Attributes are required"},
	{service.ErrIdentifierRequired, "IDENTIFIER_REQUIRED", "conversationId or contactId is required"},
}

// handleServiceError maps service and upstream errors to HTTP responses.
// summary names the failed operation and is used for 5xx bodies.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, summary string, err error) {
	requestID := middleware.GetRequestID(r.Context())

	if service.IsValidation(err) {
		for _, v := range validationMessages {
			if errors.Is(err, v.err) {
				writeError(w, http.StatusBadRequest, v.code, v.message, "")
				return
			}
		}
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), "")
		return
	}

	var upErr *upstream.Error
	switch {
	case errors.Is(err, service.ErrBrevoContactNotFound):
		writeError(w, http.StatusNotFound, "BREVO_CONTACT_NOT_FOUND", "Contact not found in Brevo", "")
	case errors.Is(err, service.ErrContactNotFound):
		writeError(w, http.StatusNotFound, "CONTACT_NOT_FOUND", "Contact not found", "")
	case errors.Is(err, service.ErrEmailNotFound):
		writeError(w, http.StatusNotFound, "EMAIL_NOT_FOUND", "Contact email not found", "")
	case errors.Is(err, service.ErrChatwootNotConfigured):
		logger.Error("chatwoot_not_configured", "request_id", requestID)
		writeError(w, http.StatusInternalServerError, "CHATWOOT_NOT_CONFIGURED", summary, err.Error())
	case errors.Is(err, upstream.ErrNotConfigured):
		logger.Error("upstream_not_configured", "request_id", requestID, "error", err)
		writeError(w, http.StatusInternalServerError, "NOT_CONFIGURED", summary, err.Error())
	case errors.Is(err, upstream.ErrUnavailable):
		logger.Error("upstream_unavailable", "request_id", requestID, "error", err)
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", summary, "Upstream service did not respond in time")
	case errors.As(err, &upErr):
		logger.Error("upstream_error",
			"request_id", requestID,
			"service", upErr.Service,
			"status", upErr.Status,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "UPSTREAM_ERROR", summary, upErr.Detail())
	default:
		logger.Error("internal_error", "request_id", requestID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", summary, "An internal error occurred")
	}
}
