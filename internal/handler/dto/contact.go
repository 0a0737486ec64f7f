// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/contactbridge/contactbridge/internal/brevo"
	"github.com/contactbridge/contactbridge/internal/service"
)

// SubscribeRequest is the body of POST /api/brevo/subscribe.
type SubscribeRequest struct {
	Email      string         `json:"email"`
	ListID     brevo.ListID   `json:"listId"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// UpsertContactRequest is the body of POST /api/brevo/contact.
type UpsertContactRequest struct {
	Email      string         `json:"email"`
	Attributes map[string]any `json:"attributes,omitempty"`
	ListIDs    []brevo.ListID `json:"listIds,omitempty"`
}

// UpdateContactRequest is the body of PUT /api/brevo/contact/{email}.
type UpdateContactRequest struct {
	Attributes map[string]any `json:"attributes"`
}

// ContactLookupResponse is returned when a Brevo contact exists.
type ContactLookupResponse struct {
	Email  string `json:"email"`
	Exists bool   `json:"exists"`
	// Name is FIRSTNAME and LASTNAME joined, empty when neither is set.
	Name    string         `json:"name"`
	Contact *brevo.Contact `json:"contact"`
}

// ContactMissingResponse is the 404 body of the contact lookup.
type ContactMissingResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Email  string `json:"email"`
	Exists bool   `json:"exists"`
}

// SubscribeResponse is returned after adding a contact to a list.
type SubscribeResponse struct {
	Success bool                   `json:"success"`
	Email   string                 `json:"email"`
	ListID  int64                  `json:"listId"`
	Result  *brevo.SubscribeResult `json:"result"`
}

// ContactWriteResponse is returned after a create, upsert or update.
type ContactWriteResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
	Contact any    `json:"contact"`
}

// ListsResponse wraps the Brevo list enumeration.
type ListsResponse struct {
	Lists []brevo.List `json:"lists"`
}

// ResolveResponse is returned by the Chatwoot contact resolution.
type ResolveResponse struct {
	Email   string                 `json:"email"`
	Contact service.ContactSummary `json:"contact"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
