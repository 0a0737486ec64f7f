package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contactbridge/contactbridge/internal/metrics"
)

const (
	// DefaultTimeout bounds a single upstream call, including body read.
	DefaultTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second

	// maxResponseBody caps how much of an upstream body is read.
	maxResponseBody = 4 << 20
)

// Call outcomes reported to the metrics recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
)

// NewHTTPClient creates an HTTP client configured for upstream API calls.
// Redirects are not followed; a redirect from a JSON API is an error.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Options configures a Client.
type Options struct {
	// Service names the upstream in errors, logs and metrics ("brevo").
	Service string
	BaseURL string
	// Header is sent on every request (authentication, Accept).
	Header     http.Header
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// Client issues JSON requests against one upstream base URL.
type Client struct {
	service    string
	baseURL    string
	header     http.Header
	timeout    time.Duration
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// NewClient creates a Client. BaseURL may be empty; callers are expected to
// check configuration before calling Do.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(timeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	header := opts.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		service:    opts.Service,
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		header:     header,
		timeout:    timeout,
		httpClient: httpClient,
		userAgent:  strings.TrimSpace(opts.UserAgent),
		logger:     logger.With("component", "upstream."+opts.Service),
		metrics:    recorder,
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one upstream call.
type Request struct {
	// Operation labels the call in logs and metrics ("get_contact").
	Operation string
	Method    string
	// Path is appended to the base URL and must already be escaped.
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Fallback is the error message used when the upstream gives none.
	Fallback string
}

// Do performs the request and decodes a 2xx JSON body into out (if out is
// non-nil and the body is non-empty).
//
// Any non-2xx returns *Error; a 404 additionally matches ErrNotFound. Transport
// failures and timeouts return an error wrapping ErrUnavailable.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		c.metrics.ObserveUpstreamCall(c.service, req.Operation, outcome, time.Since(start))
	}()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", req.Operation, err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.Operation, err)
	}
	for key, values := range c.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		outcome = OutcomeUnavailable
		c.logger.Warn("upstream call failed",
			slog.String("operation", req.Operation),
			slog.String("reason", transportReason(err)),
			slog.String("error", transportDetail(err)),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("%s %s: %w: %v", c.service, req.Operation, ErrUnavailable, transportReason(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		outcome = OutcomeUnavailable
		return fmt.Errorf("%s %s: %w: read body: %v", c.service, req.Operation, ErrUnavailable, err)
	}

	c.logger.Debug("upstream call",
		slog.String("operation", req.Operation),
		slog.String("method", req.Method),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		outcome = OutcomeSuccess
	case resp.StatusCode == http.StatusNotFound:
		outcome = OutcomeNotFound
		return c.responseError(resp.StatusCode, respBody, req.Fallback)
	default:
		return c.responseError(resp.StatusCode, respBody, req.Fallback)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		outcome = OutcomeError
		return fmt.Errorf("decode %s response: %w", req.Operation, err)
	}
	return nil
}

// responseError builds *Error, preferring the message the upstream sent.
func (c *Client) responseError(status int, body []byte, fallback string) error {
	if fallback == "" {
		fallback = http.StatusText(status)
	}
	code, message := parseErrorBody(body)
	if message == "" {
		message = fallback
	}
	return &Error{
		Service: c.service,
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// parseErrorBody understands the error shapes Brevo and Chatwoot return:
// {"code","message"}, {"error": "..."}, {"errors": ["..."]}.
func parseErrorBody(body []byte) (code, message string) {
	var parsed struct {
		Code    any             `json:"code"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errors  []any           `json:"errors"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return "", ""
	}
	if s, ok := parsed.Code.(string); ok {
		code = s
	}
	if msg := strings.TrimSpace(parsed.Message); msg != "" {
		return code, msg
	}
	var errText string
	if len(parsed.Error) > 0 && json.Unmarshal(parsed.Error, &errText) == nil && strings.TrimSpace(errText) != "" {
		return code, strings.TrimSpace(errText)
	}
	if len(parsed.Errors) > 0 {
		if s, ok := parsed.Errors[0].(string); ok {
			return code, s
		}
	}
	return code, ""
}

func transportReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "connection failed"
}

// transportDetail describes a transport failure without the request URL,
// which carries contact emails and account paths.
func transportDetail(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Err == nil {
			return urlErr.Op
		}
		return urlErr.Op + ": " + urlErr.Err.Error()
	}
	return err.Error()
}
