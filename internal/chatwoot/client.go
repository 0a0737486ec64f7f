// Package chatwoot is the adapter for the Chatwoot application API.
package chatwoot

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/contactbridge/contactbridge/internal/metrics"
	"github.com/contactbridge/contactbridge/internal/upstream"
)

const (
	// ServiceName labels Chatwoot in errors, logs and metrics.
	ServiceName = "chatwoot"

	// DefaultAccountID is used when no account is configured.
	DefaultAccountID = "1"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIToken   string
	AccountID  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// Client reads contacts and conversations from one Chatwoot account.
type Client struct {
	api       *upstream.Client
	baseURL   string
	apiToken  string
	accountID string
}

// NewClient creates a Chatwoot client.
func NewClient(opts Options) *Client {
	accountID := opts.AccountID
	if accountID == "" {
		accountID = DefaultAccountID
	}
	api := upstream.NewClient(upstream.Options{
		Service:    ServiceName,
		BaseURL:    opts.BaseURL,
		Header:     http.Header{"Api_access_token": []string{opts.APIToken}},
		Timeout:    opts.Timeout,
		HTTPClient: opts.HTTPClient,
		UserAgent:  "contactbridge/1.0",
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
	})
	return &Client{
		api:       api,
		baseURL:   api.BaseURL(),
		apiToken:  opts.APIToken,
		accountID: accountID,
	}
}

// Configured reports whether both base URL and access token are set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiToken != ""
}

func (c *Client) checkConfigured() error {
	if c == nil || c.baseURL == "" {
		return &upstream.ConfigError{Service: ServiceName, Missing: "CHATWOOT_URL"}
	}
	if c.apiToken == "" {
		return &upstream.ConfigError{Service: ServiceName, Missing: "CHATWOOT_API_KEY"}
	}
	return nil
}

func (c *Client) accountPath(resource string, id ID) string {
	return "/api/v1/accounts/" + url.PathEscape(c.accountID) + "/" + resource + "/" + url.PathEscape(id.String())
}

// FetchContact returns the contact, or (nil, nil) when it does not exist.
func (c *Client) FetchContact(ctx context.Context, contactID ID) (*ContactRecord, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	var record ContactRecord
	err := c.api.Do(ctx, upstream.Request{
		Operation: "get_contact",
		Method:    http.MethodGet,
		Path:      c.accountPath("contacts", contactID),
		Fallback:  "Failed to fetch contact from Chatwoot",
	}, &record)
	if upstream.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FetchConversation returns the conversation, or (nil, nil) when it does
// not exist.
func (c *Client) FetchConversation(ctx context.Context, conversationID ID) (*ConversationRecord, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	var record ConversationRecord
	err := c.api.Do(ctx, upstream.Request{
		Operation: "get_conversation",
		Method:    http.MethodGet,
		Path:      c.accountPath("conversations", conversationID),
		Fallback:  "Failed to fetch conversation from Chatwoot",
	}, &record)
	if upstream.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
