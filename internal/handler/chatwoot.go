package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/contactbridge/contactbridge/internal/chatwoot"
	"github.com/contactbridge/contactbridge/internal/handler/dto"
	"github.com/contactbridge/contactbridge/internal/service"
)

// ChatwootHandler handles the /api/chatwoot routes.
type ChatwootHandler struct {
	svc    *service.ResolverService
	logger *slog.Logger
}

// NewChatwootHandler creates a new ChatwootHandler.
func NewChatwootHandler(svc *service.ResolverService, logger *slog.Logger) *ChatwootHandler {
	return &ChatwootHandler{
		svc:    svc,
		logger: logger,
	}
}

// ResolveContact handles GET /api/chatwoot/contact?conversationId=&contactId=.
func (h *ChatwootHandler) ResolveContact(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := service.ResolveInput{
		ConversationID: chatwoot.ID(strings.TrimSpace(query.Get("conversationId"))),
		ContactID:      chatwoot.ID(strings.TrimSpace(query.Get("contactId"))),
	}

	resolution, err := h.svc.Resolve(r.Context(), input)
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to fetch contact from Chatwoot", err)
		return
	}

	h.logger.Info("contact_resolved",
		"contact_id", resolution.Contact.ID.String(),
		"email_source", resolution.Ref.EmailSource,
	)

	writeJSON(w, http.StatusOK, dto.ResolveResponse{
		Email:   resolution.Email,
		Contact: resolution.Contact,
	})
}
