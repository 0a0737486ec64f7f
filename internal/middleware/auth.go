package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	// Token is the shared bearer token. Empty disables the check.
	Token string
	// Enforce rejects failed requests with 401. When false the failure is
	// only logged and the request continues.
	Enforce bool
}

// Auth returns a middleware that checks the Authorization bearer token
// sent by the dashboard.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	expected := []byte(cfg.Token)

	return func(next http.Handler) http.Handler {
		if cfg.Token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := extractBearer(r)
			if reason == "" && subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
				reason = "invalid_token"
			}

			if reason == "" {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("authentication failed",
				slog.String("reason", reason),
				slog.Bool("enforced", cfg.Enforce),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			if !cfg.Enforce {
				next.ServeHTTP(w, r)
				return
			}
			writeAuthError(w)
		})
	}
}

// extractBearer returns the bearer token, or a failure reason when the
// header is missing or malformed.
func extractBearer(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing_token"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid_format"
	}
	return strings.TrimSpace(token), ""
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED")
}
