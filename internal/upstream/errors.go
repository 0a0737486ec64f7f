// Package upstream provides the shared HTTP plumbing used by the
// Brevo and Chatwoot adapters: a tuned http.Client, a JSON request helper
// and the error taxonomy every adapter reports through.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for upstream operations.
var (
	// ErrNotConfigured is returned before any network call when a required
	// credential or base URL is missing.
	ErrNotConfigured = errors.New("upstream not configured")

	// ErrNotFound matches (via errors.Is) the *Error Client.Do returns for
	// a 404. Lookups translate it into an absent result.
	ErrNotFound = errors.New("upstream resource not found")

	// ErrUnavailable is returned when the upstream could not be reached in
	// time (timeout or connection failure).
	ErrUnavailable = errors.New("upstream unavailable")
)

// ConfigError reports which setting of which upstream is missing.
type ConfigError struct {
	Service string
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured: %s is not set", e.Service, e.Missing)
}

// Unwrap lets errors.Is match ErrNotConfigured.
func (e *ConfigError) Unwrap() error {
	return ErrNotConfigured
}

// Error is a non-2xx, non-404 response from an upstream.
type Error struct {
	Service string
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s request failed: status=%d code=%s message=%s", e.Service, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s request failed: status=%d message=%s", e.Service, e.Status, e.Message)
}

// Is makes a 404 *Error match ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Detail returns the upstream-provided message, for surfacing to callers.
func (e *Error) Detail() string {
	return e.Message
}

// IsNotFound reports whether err means the upstream entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
