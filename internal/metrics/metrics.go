// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Upstream adapter metrics
	ObserveUpstreamCall(service, operation, outcome string, duration time.Duration)

	// Contact resolution metrics
	IncResolution(outcome string) // outcome: "success", "not_found", "error"

	// Brevo list cache metrics
	IncListsCacheHit()
	IncListsCacheMiss()

	// Activity stream metrics
	IncActivityPublished(status string) // status: "success" or "dropped"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
