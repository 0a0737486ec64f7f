package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/contactbridge/contactbridge/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.ObserveUpstreamCall("brevo", "get_contact", "success", 20*time.Millisecond)
	recorder.ObserveUpstreamCall("brevo", "get_contact", "not_found", 10*time.Millisecond)
	recorder.ObserveUpstreamCall("chatwoot", "get_contact", "success", 5*time.Millisecond)
	recorder.IncResolution("success")
	recorder.IncListsCacheHit()
	recorder.IncActivityPublished("dropped")

	h := NewMetricsHandler(recorder)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.Metrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()

	expected := []string{
		`bridge_upstream_requests_total{service="brevo",operation="get_contact",outcome="not_found"} 1`,
		`bridge_upstream_requests_total{service="brevo",operation="get_contact",outcome="success"} 1`,
		`bridge_upstream_duration_seconds_count{service="brevo"} 2`,
		`bridge_upstream_duration_seconds_sum{service="brevo"} 0.030000`,
		`bridge_resolutions_total{outcome="success"} 1`,
		`bridge_lists_cache_hits_total 1`,
		`bridge_activity_events_published_total{status="dropped"} 1`,
	}
	for _, line := range expected {
		if !strings.Contains(body, line) {
			t.Errorf("missing %q in:\n%s", line, body)
		}
	}

	// Series are emitted in a stable order.
	if strings.Index(body, `service="brevo"`) > strings.Index(body, `service="chatwoot"`) {
		t.Error("upstream series not sorted by service")
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	h := NewMetricsHandler(nil)
	rec := httptest.NewRecorder()
	h.Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
