package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	brevoConfigured    bool
	chatwootConfigured bool
	cache              HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for cache when Redis is not configured.
func NewHealthHandler(brevoConfigured, chatwootConfigured bool, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		brevoConfigured:    brevoConfigured,
		chatwootConfigured: chatwootConfigured,
		cache:              cache,
	}
}

// StatusResponse is the body of GET /health.
type StatusResponse struct {
	Status             string `json:"status"`
	BrevoConfigured    bool   `json:"brevoConfigured"`
	ChatwootConfigured bool   `json:"chatwootConfigured"`
}

// HealthResponse represents the probe responses.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports which integrations are configured. It never calls
// upstreams.
//
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:             "ok",
		BrevoConfigured:    h.brevoConfigured,
		ChatwootConfigured: h.chatwootConfigured,
	})
}

// Healthz is a liveness probe endpoint.
// It returns 200 if the server is running.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// Redis is optional; when configured it must answer a ping.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{
		"brevo":    configuredCheck(h.brevoConfigured),
		"chatwoot": configuredCheck(h.chatwootConfigured),
	}
	healthy := true

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "not configured"
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status: status,
		Checks: checks,
	})
}

func configuredCheck(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
