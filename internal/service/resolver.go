package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/contactbridge/contactbridge/internal/chatwoot"
	"github.com/contactbridge/contactbridge/internal/metrics"
)

// ChatwootAPI is the subset of the Chatwoot adapter resolution uses.
type ChatwootAPI interface {
	FetchContact(ctx context.Context, contactID chatwoot.ID) (*chatwoot.ContactRecord, error)
	FetchConversation(ctx context.Context, conversationID chatwoot.ID) (*chatwoot.ConversationRecord, error)
}

// ResolveInput identifies the contact to resolve. At least one field must
// be set; ContactID wins when both are.
type ResolveInput struct {
	ConversationID chatwoot.ID
	ContactID      chatwoot.ID
}

// ContactSummary is the minimal contact returned to callers.
type ContactSummary struct {
	ID    chatwoot.ID `json:"id"`
	Name  *string     `json:"name"`
	Email string      `json:"email"`
}

// ContactRef links a conversation to a contact and its email for the
// duration of one resolution.
type ContactRef struct {
	ConversationID chatwoot.ID
	ContactID      chatwoot.ID
	Email          string
	// EmailSource is the field path the email was taken from.
	EmailSource string
}

// Resolution is the result of a successful resolution.
type Resolution struct {
	Email   string
	Contact ContactSummary
	Ref     ContactRef
}

// emailCandidate is one place a Chatwoot contact may carry its email.
type emailCandidate struct {
	path  string
	value func(c *chatwoot.ContactRecord) string
}

// emailCandidates lists email locations in priority order.
var emailCandidates = []emailCandidate{
	{"email", func(c *chatwoot.ContactRecord) string { return deref(c.Email) }},
	{"contact.email", func(c *chatwoot.ContactRecord) string {
		if c.Contact == nil {
			return ""
		}
		return deref(c.Contact.Email)
	}},
	{"identifier", func(c *chatwoot.ContactRecord) string { return deref(c.Identifier) }},
	{"additional_attributes.email", func(c *chatwoot.ContactRecord) string {
		v, _ := c.AdditionalAttributes["email"].(string)
		return v
	}},
}

// usableEmail is the validator applied to every candidate.
func usableEmail(v string) bool {
	return strings.Contains(v, "@")
}

// ExtractEmail returns the first candidate that passes validation, with
// the field path it came from.
func ExtractEmail(contact *chatwoot.ContactRecord) (email, source string, ok bool) {
	if contact == nil {
		return "", "", false
	}
	for _, candidate := range emailCandidates {
		v := strings.TrimSpace(candidate.value(contact))
		if v != "" && usableEmail(v) {
			return v, candidate.path, true
		}
	}
	return "", "", false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ResolverService turns Chatwoot conversation or contact identifiers into a
// validated email address.
type ResolverService struct {
	chatwoot ChatwootAPI
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewResolverService creates a ResolverService. A nil api means the
// Chatwoot integration is disabled; Resolve then returns
// ErrChatwootNotConfigured.
func NewResolverService(api ChatwootAPI, logger *slog.Logger, recorder metrics.Recorder) *ResolverService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolverService{
		chatwoot: api,
		metrics:  recorder,
		logger:   logger.With("component", "service.resolver"),
	}
}

// Configured reports whether a Chatwoot adapter is wired in.
func (s *ResolverService) Configured() bool {
	return s != nil && s.chatwoot != nil
}

// Resolve finds the contact behind a conversation or contact ID and
// extracts its email.
func (s *ResolverService) Resolve(ctx context.Context, input ResolveInput) (*Resolution, error) {
	if input.ConversationID.IsZero() && input.ContactID.IsZero() {
		return nil, ErrIdentifierRequired
	}
	if !s.Configured() {
		return nil, ErrChatwootNotConfigured
	}

	resolution, err := s.resolve(ctx, input)
	switch {
	case err == nil:
		s.metrics.IncResolution("success")
	case errors.Is(err, ErrContactNotFound), errors.Is(err, ErrEmailNotFound):
		s.metrics.IncResolution("not_found")
	default:
		s.metrics.IncResolution("error")
	}
	return resolution, err
}

func (s *ResolverService) resolve(ctx context.Context, input ResolveInput) (*Resolution, error) {
	ref := ContactRef{
		ConversationID: input.ConversationID,
		ContactID:      input.ContactID,
	}

	if ref.ContactID.IsZero() {
		conversation, err := s.chatwoot.FetchConversation(ctx, input.ConversationID)
		if err != nil {
			return nil, err
		}
		if conversation == nil {
			s.logger.Debug("conversation not found", "conversation_id", input.ConversationID.String())
			return nil, ErrContactNotFound
		}
		ref.ContactID = conversation.ResolveContactID()
		if ref.ContactID.IsZero() {
			s.logger.Debug("conversation has no contact", "conversation_id", input.ConversationID.String())
			return nil, ErrContactNotFound
		}
	}

	contact, err := s.chatwoot.FetchContact(ctx, ref.ContactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}

	email, source, ok := ExtractEmail(contact)
	if !ok {
		return nil, ErrEmailNotFound
	}
	ref.Email = email
	ref.EmailSource = source

	id := contact.ID
	if id.IsZero() {
		id = ref.ContactID
	}

	s.logger.Debug("contact resolved",
		"conversation_id", ref.ConversationID.String(),
		"contact_id", id.String(),
		"email_source", source,
	)

	return &Resolution{
		Email: email,
		Contact: ContactSummary{
			ID:    id,
			Name:  contact.Name,
			Email: email,
		},
		Ref: ref,
	}, nil
}
