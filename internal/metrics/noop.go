package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveUpstreamCall is a no-op.
func (n *NoopRecorder) ObserveUpstreamCall(service, operation, outcome string, duration time.Duration) {}

// IncResolution is a no-op.
func (n *NoopRecorder) IncResolution(outcome string) {}

// IncListsCacheHit is a no-op.
func (n *NoopRecorder) IncListsCacheHit() {}

// IncListsCacheMiss is a no-op.
func (n *NoopRecorder) IncListsCacheMiss() {}

// IncActivityPublished is a no-op.
func (n *NoopRecorder) IncActivityPublished(status string) {}
