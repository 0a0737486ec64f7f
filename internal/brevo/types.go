package brevo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Contact is a Brevo contact as returned by GET /contacts/{identifier}.
// Fields this package does not model (statistics and the like) are kept
// in Extra and written back out unchanged.
type Contact struct {
	ID               int64          `json:"id"`
	Email            string         `json:"email"`
	EmailBlacklisted bool           `json:"emailBlacklisted"`
	SMSBlacklisted   bool           `json:"smsBlacklisted"`
	CreatedAt        string         `json:"createdAt,omitempty"`
	ModifiedAt       string         `json:"modifiedAt,omitempty"`
	Attributes       map[string]any `json:"attributes"`
	ListIDs          []int64        `json:"listIds"`
	ListUnsubscribed []int64        `json:"listUnsubscribed,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type contactFields Contact

var contactKeys = []string{
	"id", "email", "emailBlacklisted", "smsBlacklisted", "createdAt",
	"modifiedAt", "attributes", "listIds", "listUnsubscribed",
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Contact) UnmarshalJSON(data []byte) error {
	var fields contactFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range contactKeys {
		delete(raw, key)
	}
	*c = Contact(fields)
	c.Extra = nil
	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Modeled fields win over Extra.
func (c Contact) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(contactFields(c))
	if err != nil || len(c.Extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range c.Extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// DisplayName joins the FIRSTNAME and LASTNAME attributes.
// It returns "" when neither is set.
func (c *Contact) DisplayName() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	for _, key := range []string{"FIRSTNAME", "LASTNAME"} {
		if v, ok := c.Attributes[key].(string); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	return strings.Join(parts, " ")
}

// List is a Brevo contact list.
type List struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	FolderID          int64  `json:"folderId,omitempty"`
	TotalBlacklisted  int64  `json:"totalBlacklisted"`
	TotalSubscribers  int64  `json:"totalSubscribers"`
	UniqueSubscribers int64  `json:"uniqueSubscribers"`
}

// SubscribeResult is the response of POST /contacts/lists/{id}/contacts/add.
type SubscribeResult struct {
	Contacts struct {
		Success []string `json:"success"`
		Failure []string `json:"failure"`
		Total   int      `json:"total,omitempty"`
	} `json:"contacts"`
}

// UpsertResult is the response of POST /contacts. Brevo answers 201 with
// the new ID on create and 204 with no body when an existing contact was
// updated, so ID is zero and Created false in that case.
type UpsertResult struct {
	ID      int64 `json:"id,omitempty"`
	Created bool  `json:"created"`
}

// UpdateResult describes a successful PUT /contacts/{id}. Brevo replies
// 204 No Content, so the result echoes what was applied.
type UpdateResult struct {
	ID         int64          `json:"id"`
	Email      string         `json:"email,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// ListID is a Brevo list identifier. It decodes from a JSON number or a
// numeric string, since form-driven clients send either.
type ListID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *ListID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*id = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid list id %s", string(data))
	}
	*id = ListID(n)
	return nil
}

// ListIDs converts to plain int64 identifiers, dropping zero values.
func ListIDs(ids []ListID) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, int64(id))
		}
	}
	return out
}
