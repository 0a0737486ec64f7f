package chatwoot

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is a Chatwoot resource identifier. Chatwoot sends numbers, but
// identifiers arriving from query strings or older payloads are strings,
// so both decode. The zero value means "absent".
type ID string

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// String returns the textual form.
func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = ID(n.String())
	}
	return nil
}

// MarshalJSON emits integers as JSON numbers and anything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// ContactRef is the minimal contact shape nested in other resources.
type ContactRef struct {
	ID    ID      `json:"id"`
	Email *string `json:"email"`
}

// ContactRecord is a Chatwoot contact. Every field may be absent.
type ContactRecord struct {
	ID                   ID             `json:"id"`
	Name                 *string        `json:"name"`
	Email                *string        `json:"email"`
	Identifier           *string        `json:"identifier"`
	Contact              *ContactRef    `json:"contact"`
	AdditionalAttributes map[string]any `json:"additional_attributes"`
}

// UnmarshalJSON accepts both the bare contact and the {"payload": {...}}
// envelope used by the contact show endpoint.
func (c *ContactRecord) UnmarshalJSON(data []byte) error {
	type plain ContactRecord
	if inner, ok := unwrapPayload(data); ok {
		data = inner
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ContactRecord(p)
	return nil
}

// Sender is the conversation's contact as reported under meta.sender.
type Sender = ContactRef

// ConversationMeta holds conversation metadata.
type ConversationMeta struct {
	Sender *Sender `json:"sender"`
}

// ConversationRecord is a Chatwoot conversation. Chatwoot has reported the
// contact as a nested object, a flat contact_id and meta.sender depending on
// version and endpoint.
type ConversationRecord struct {
	ID        ID                `json:"id"`
	ContactID ID                `json:"contact_id"`
	Contact   *ContactRef       `json:"contact"`
	Meta      *ConversationMeta `json:"meta"`
	Status    string            `json:"status,omitempty"`
}

// UnmarshalJSON accepts both the bare conversation and a payload envelope.
func (c *ConversationRecord) UnmarshalJSON(data []byte) error {
	type plain ConversationRecord
	if inner, ok := unwrapPayload(data); ok {
		data = inner
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ConversationRecord(p)
	return nil
}

// ResolveContactID returns the conversation's contact identifier, checking
// the nested contact object first, then contact_id, then meta.sender.
func (c *ConversationRecord) ResolveContactID() ID {
	if c == nil {
		return ""
	}
	if c.Contact != nil && !c.Contact.ID.IsZero() {
		return c.Contact.ID
	}
	if !c.ContactID.IsZero() {
		return c.ContactID
	}
	if c.Meta != nil && c.Meta.Sender != nil && !c.Meta.Sender.ID.IsZero() {
		return c.Meta.Sender.ID
	}
	return ""
}

func unwrapPayload(data []byte) ([]byte, bool) {
	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false
	}
	inner := bytes.TrimSpace(envelope.Payload)
	if len(inner) == 0 || inner[0] != '{' {
		return nil, false
	}
	return inner, true
}
