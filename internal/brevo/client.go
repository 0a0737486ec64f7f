// Package brevo is the adapter for the Brevo (formerly Sendinblue)
// contacts REST API.
package brevo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/contactbridge/contactbridge/internal/metrics"
	"github.com/contactbridge/contactbridge/internal/upstream"
)

const (
	// ServiceName labels Brevo in errors, logs and metrics.
	ServiceName = "brevo"

	// DefaultBaseURL is the Brevo REST API v3 root.
	DefaultBaseURL = "https://api.brevo.com/v3"

	// DefaultListPageSize is the page size used when enumerating lists.
	// Brevo rejects limits above 50 on /contacts/lists.
	DefaultListPageSize = 50

	// maxListPages bounds list enumeration.
	maxListPages = 20
)

// ErrContactNotFound is returned by UpdateContactByEmail when no contact
// exists for the email.
var ErrContactNotFound = errors.New("contact not found in Brevo")

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// Client calls the Brevo contacts API.
type Client struct {
	api     *upstream.Client
	apiKey  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a Brevo client. An empty APIKey is accepted; every
// operation then fails with a configuration error before touching the
// network.
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = upstream.DefaultTimeout
	}
	return &Client{
		api: upstream.NewClient(upstream.Options{
			Service:    ServiceName,
			BaseURL:    baseURL,
			Header:     http.Header{"Api-Key": []string{opts.APIKey}},
			Timeout:    opts.Timeout,
			HTTPClient: opts.HTTPClient,
			UserAgent:  "contactbridge/1.0",
			Logger:     logger,
			Metrics:    opts.Metrics,
		}),
		apiKey:  opts.APIKey,
		timeout: timeout,
		logger:  logger.With("component", "brevo.client"),
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) checkConfigured() error {
	if !c.Configured() {
		return &upstream.ConfigError{Service: ServiceName, Missing: "BREVO_API_KEY"}
	}
	return nil
}

// FetchContactByEmail looks up a contact. A missing contact returns
// (nil, nil).
func (c *Client) FetchContactByEmail(ctx context.Context, email string) (*Contact, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	var contact Contact
	err := c.api.Do(ctx, upstream.Request{
		Operation: "get_contact",
		Method:    http.MethodGet,
		Path:      "/contacts/" + url.PathEscape(email),
		Fallback:  "Failed to fetch contact",
	}, &contact)
	if upstream.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

type addToListRequest struct {
	Emails     []string       `json:"emails"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// SubscribeToList adds email to listID, optionally setting attributes in
// the same call.
func (c *Client) SubscribeToList(ctx context.Context, email string, listID int64, attributes map[string]any) (*SubscribeResult, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	body := addToListRequest{Emails: []string{email}}
	if len(attributes) > 0 {
		body.Attributes = attributes
	}

	var result SubscribeResult
	err := c.api.Do(ctx, upstream.Request{
		Operation: "add_to_list",
		Method:    http.MethodPost,
		Path:      "/contacts/lists/" + strconv.FormatInt(listID, 10) + "/contacts/add",
		Body:      body,
		Fallback:  "Failed to subscribe contact",
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type upsertRequest struct {
	Email         string         `json:"email"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	ListIDs       []int64        `json:"listIds,omitempty"`
	UpdateEnabled bool           `json:"updateEnabled"`
}

// CreateOrUpdateContact creates the contact or updates it if it already
// exists. Attributes and list IDs are only sent when non-empty so existing
// values upstream are left alone.
func (c *Client) CreateOrUpdateContact(ctx context.Context, email string, attributes map[string]any, listIDs []int64) (*UpsertResult, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	body := upsertRequest{Email: email, UpdateEnabled: true}
	if len(attributes) > 0 {
		body.Attributes = attributes
	}
	if len(listIDs) > 0 {
		body.ListIDs = listIDs
	}

	var result UpsertResult
	err := c.api.Do(ctx, upstream.Request{
		Operation: "upsert_contact",
		Method:    http.MethodPost,
		Path:      "/contacts",
		Body:      body,
		Fallback:  "Failed to create/update contact",
	}, &result)
	if err != nil {
		return nil, err
	}
	result.Created = result.ID != 0
	return &result, nil
}

type updateRequest struct {
	Attributes map[string]any `json:"attributes"`
}

// UpdateContactByID sets attributes on the contact with the given Brevo ID.
func (c *Client) UpdateContactByID(ctx context.Context, id int64, attributes map[string]any) (*UpdateResult, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}
	if attributes == nil {
		attributes = map[string]any{}
	}

	c.logger.Debug("updating contact",
		slog.Int64("contact_id", id),
		slog.Int("attribute_count", len(attributes)),
	)

	err := c.api.Do(ctx, upstream.Request{
		Operation: "update_contact",
		Method:    http.MethodPut,
		Path:      "/contacts/" + strconv.FormatInt(id, 10),
		Body:      updateRequest{Attributes: attributes},
		Fallback:  "Failed to update contact",
	}, nil)
	if upstream.IsNotFound(err) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}
	return &UpdateResult{ID: id, Attributes: attributes}, nil
}

// UpdateContactByEmail resolves email to a contact ID and updates it.
// It returns ErrContactNotFound when the contact does not exist.
func (c *Client) UpdateContactByEmail(ctx context.Context, email string, attributes map[string]any) (*UpdateResult, error) {
	contact, err := c.FetchContactByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if contact == nil || contact.ID == 0 {
		return nil, ErrContactNotFound
	}

	result, err := c.UpdateContactByID(ctx, contact.ID, attributes)
	if err != nil {
		return nil, err
	}
	result.Email = contact.Email
	return result, nil
}

type listsResponse struct {
	Lists []List `json:"lists"`
	Count int64  `json:"count"`
}

// ListAllLists enumerates contact lists starting at offset, pageSize at a
// time, until the upstream count is reached. Zero lists yield an empty,
// non-nil slice. The whole enumeration shares one upstream timeout.
func (c *Client) ListAllLists(ctx context.Context, pageSize, offset int) ([]List, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}
	if pageSize <= 0 || pageSize > DefaultListPageSize {
		pageSize = DefaultListPageSize
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	lists := make([]List, 0)
	for page := 0; page < maxListPages; page++ {
		var resp listsResponse
		err := c.api.Do(ctx, upstream.Request{
			Operation: "list_lists",
			Method:    http.MethodGet,
			Path:      "/contacts/lists",
			Query: url.Values{
				"limit":  []string{strconv.Itoa(pageSize)},
				"offset": []string{strconv.Itoa(offset)},
			},
			Fallback: "Failed to fetch lists",
		}, &resp)
		if upstream.IsNotFound(err) {
			break
		}
		if err != nil {
			return nil, err
		}

		lists = append(lists, resp.Lists...)
		offset += len(resp.Lists)

		if len(resp.Lists) < pageSize || (resp.Count > 0 && int64(offset) >= resp.Count) {
			break
		}
	}
	return lists, nil
}
