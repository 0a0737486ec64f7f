// Package service provides the bridge's business logic: request
// validation, Brevo contact operations and Chatwoot contact resolution.
package service

import (
	"errors"

	"github.com/contactbridge/contactbridge/internal/brevo"
)

// Validation errors. These are the caller's fault and map to 400.
var (
	ErrEmailRequired      = errors.New("email is required")
	ErrListIDRequired     = errors.New("list ID is required")
	ErrAttributesRequired = errors.New("attributes are required")
	ErrIdentifierRequired = errors.New("conversationId or contactId is required")
)

// Not-found errors. These map to 404.
var (
	// ErrBrevoContactNotFound means Brevo has no contact for the email.
	ErrBrevoContactNotFound = brevo.ErrContactNotFound
	// ErrContactNotFound means Chatwoot resolution found no contact.
	ErrContactNotFound = errors.New("contact not found")
	// ErrEmailNotFound means the Chatwoot contact has no usable email.
	ErrEmailNotFound = errors.New("contact email not found")
)

// ErrChatwootNotConfigured is returned by resolution when the bridge runs
// without a Chatwoot integration.
var ErrChatwootNotConfigured = errors.New("chatwoot integration is not configured")

// IsValidation reports whether err is a request validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmailRequired) ||
		errors.Is(err, ErrListIDRequired) ||
		errors.Is(err, ErrAttributesRequired) ||
		errors.Is(err, ErrIdentifierRequired)
}
