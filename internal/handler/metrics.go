package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/contactbridge/contactbridge/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	calls := make([]metrics.UpstreamKey, 0, len(snap.UpstreamCalls))
	for k := range snap.UpstreamCalls {
		calls = append(calls, k)
	}
	sort.Slice(calls, func(i, j int) bool {
		a, b := calls[i], calls[j]
		if a.Service != b.Service {
			return a.Service < b.Service
		}
		if a.Operation != b.Operation {
			return a.Operation < b.Operation
		}
		return a.Outcome < b.Outcome
	})
	for _, k := range calls {
		writeMetric(w, "bridge_upstream_requests_total{service=%q,operation=%q,outcome=%q} %d\n",
			k.Service, k.Operation, k.Outcome, snap.UpstreamCalls[k])
	}

	for _, service := range sortedKeys(snap.UpstreamDurations) {
		d := snap.UpstreamDurations[service]
		writeMetric(w, "bridge_upstream_duration_seconds_count{service=%q} %d\n", service, d.Count)
		writeMetric(w, "bridge_upstream_duration_seconds_sum{service=%q} %.6f\n", service, float64(d.TotalNs)/1e9)
	}

	for _, outcome := range sortedKeys(snap.Resolutions) {
		writeMetric(w, "bridge_resolutions_total{outcome=%q} %d\n", outcome, snap.Resolutions[outcome])
	}

	writeMetric(w, "bridge_lists_cache_hits_total %d\n", snap.ListsCacheHits)
	writeMetric(w, "bridge_lists_cache_misses_total %d\n", snap.ListsCacheMisses)

	writeMetric(w, "bridge_activity_events_published_total{status=\"success\"} %d\n", snap.ActivityPublished)
	writeMetric(w, "bridge_activity_events_published_total{status=\"dropped\"} %d\n", snap.ActivityDropped)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
