package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/contactbridge/contactbridge/internal/brevo"
	"github.com/contactbridge/contactbridge/internal/handler/dto"
	"github.com/contactbridge/contactbridge/internal/service"
)

// BrevoHandler handles the /api/brevo routes.
type BrevoHandler struct {
	svc    *service.ContactService
	logger *slog.Logger
}

// NewBrevoHandler creates a new BrevoHandler.
func NewBrevoHandler(svc *service.ContactService, logger *slog.Logger) *BrevoHandler {
	return &BrevoHandler{
		svc:    svc,
		logger: logger,
	}
}

// emailParam returns the decoded {email} path parameter.
func emailParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "email")
	email, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(email), nil
}

// GetContact handles GET /api/brevo/contact/{email}.
func (h *BrevoHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	email, err := emailParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email parameter", "")
		return
	}

	contact, err := h.svc.GetContact(r.Context(), email)
	if errors.Is(err, service.ErrBrevoContactNotFound) {
		writeJSON(w, http.StatusNotFound, dto.ContactMissingResponse{
			Error:  "Contact not found in Brevo",
			Code:   "BREVO_CONTACT_NOT_FOUND",
			Email:  email,
			Exists: false,
		})
		return
	}
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to fetch contact from Brevo", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ContactLookupResponse{
		Email:   email,
		Exists:  true,
		Name:    contact.DisplayName(),
		Contact: contact,
	})
}

// Subscribe handles POST /api/brevo/subscribe.
func (h *BrevoHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req dto.SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := service.SubscribeInput{
		Email:      strings.TrimSpace(req.Email),
		ListID:     int64(req.ListID),
		Attributes: req.Attributes,
	}

	result, err := h.svc.Subscribe(r.Context(), input)
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to subscribe contact", err)
		return
	}

	h.logger.Info("contact_subscribed",
		"list_id", input.ListID,
		"attribute_count", len(input.Attributes),
	)

	writeJSON(w, http.StatusOK, dto.SubscribeResponse{
		Success: true,
		Email:   input.Email,
		ListID:  input.ListID,
		Result:  result,
	})
}

// UpsertContact handles POST /api/brevo/contact.
func (h *BrevoHandler) UpsertContact(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := service.UpsertInput{
		Email:      strings.TrimSpace(req.Email),
		Attributes: req.Attributes,
		ListIDs:    brevo.ListIDs(req.ListIDs),
	}

	result, err := h.svc.Upsert(r.Context(), input)
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to create/update contact", err)
		return
	}

	h.logger.Info("contact_upserted",
		"contact_id", result.ID,
		"created", result.Created,
		"list_count", len(input.ListIDs),
	)

	writeJSON(w, http.StatusOK, dto.ContactWriteResponse{
		Success: true,
		Email:   input.Email,
		Contact: result,
	})
}

// UpdateContact handles PUT /api/brevo/contact/{email}.
func (h *BrevoHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	email, err := emailParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email parameter", "")
		return
	}

	var req dto.UpdateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.UpdateByEmail(r.Context(), email, req.Attributes)
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to update contact in Brevo", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ContactWriteResponse{
		Success: true,
		Email:   email,
		Contact: result,
	})
}

// Lists handles GET /api/brevo/lists.
func (h *BrevoHandler) Lists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.Lists(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to fetch lists from Brevo", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListsResponse{Lists: lists})
}
