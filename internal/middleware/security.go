package middleware

import (
	"net/http"
	"strings"
)

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS in dev environments.
	IsDevelopment bool
	// FrameAncestors lists origins allowed to embed our pages, typically
	// the Chatwoot instance. Empty means same-origin only.
	FrameAncestors []string
	// MaxRequestBodySize is the max allowed request body in bytes.
	MaxRequestBodySize int64
}

func (c SecurityConfig) frameAncestors() string {
	sources := append([]string{"'self'"}, c.FrameAncestors...)
	return "frame-ancestors " + strings.Join(sources, " ")
}

// Security returns a middleware that applies security headers to all responses.
// This middleware should be applied early in the chain.
//
// X-Frame-Options is omitted because it cannot express a cross-origin
// allow list; frame-ancestors in the CSP covers framing instead.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	csp := "default-src 'none'; " + cfg.frameAncestors()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", csp)
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")

			// max-age=31536000 = 1 year
			if !cfg.IsDevelopment {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			h.Set("Cache-Control", "no-store")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// Dashboard relaxes the API policy for the embedded HTML dashboard: it may
// load its own scripts and styles and call back into the API.
func Dashboard(cfg SecurityConfig) func(http.Handler) http.Handler {
	csp := strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"connect-src 'self'",
		cfg.frameAncestors(),
	}, "; ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("Cache-Control", "no-cache")
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize returns a middleware that limits request body size.
//
// When the limit is exceeded, the connection is closed and subsequent
// reads return an error.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", "PAYLOAD_TOO_LARGE")
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}
