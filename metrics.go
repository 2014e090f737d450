package responder

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the response-latency histogram buckets in
// nanoseconds, logarithmically spaced from 1us to 10s.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks frame-level traffic and error statistics for a Responder.
// All fields are safe for concurrent use from the reader/writer goroutines
// and any number of caller goroutines.
type Metrics struct {
	FramesSent     atomic.Uint64
	FramesReceived atomic.Uint64
	BytesSent      atomic.Uint64
	BytesReceived  atomic.Uint64

	OrphanResponses atomic.Uint64 // RESPONSE frames with no matching waiter
	TransportErrors atomic.Uint64

	TotalLatencyNs atomic.Uint64
	ResponseCount  atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a Metrics instance and stamps its start time.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveFrameSent records one outbound frame and its payload size.
func (m *Metrics) ObserveFrameSent(bytes uint64) {
	m.FramesSent.Add(1)
	m.BytesSent.Add(bytes)
}

// ObserveFrameReceived records one inbound frame and its payload size.
func (m *Metrics) ObserveFrameReceived(bytes uint64) {
	m.FramesReceived.Add(1)
	m.BytesReceived.Add(bytes)
}

// ObserveOrphanResponse records a RESPONSE frame that arrived with no
// registered waiter for its client ID.
func (m *Metrics) ObserveOrphanResponse() {
	m.OrphanResponses.Add(1)
}

// ObserveTransportError records a fatal transport-level error.
func (m *Metrics) ObserveTransportError() {
	m.TransportErrors.Add(1)
}

// ObserveResponseLatency records the enqueue-to-completion latency of one
// response round trip and buckets it into the cumulative histogram.
func (m *Metrics) ObserveResponseLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.ResponseCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the responder as stopped for uptime accounting.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics suitable for logging
// or exporting without holding a reference to live atomics.
type MetricsSnapshot struct {
	FramesSent      uint64
	FramesReceived  uint64
	BytesSent       uint64
	BytesReceived   uint64
	OrphanResponses uint64
	TransportErrors uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyHistogram [numLatencyBuckets]uint64
}

// Snapshot computes derived statistics and returns an immutable copy.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		FramesSent:      m.FramesSent.Load(),
		FramesReceived:  m.FramesReceived.Load(),
		BytesSent:       m.BytesSent.Load(),
		BytesReceived:   m.BytesReceived.Load(),
		OrphanResponses: m.OrphanResponses.Load(),
		TransportErrors: m.TransportErrors.Load(),
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	responseCount := m.ResponseCount.Load()
	if responseCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / responseCount
	}

	start := m.StartTime.Load()
	stop := m.StopTime.Load()
	if stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	return snap
}

// Observer is the narrow interface a Responder reports metrics through,
// letting callers plug in their own collector instead of *Metrics.
type Observer interface {
	ObserveFrameSent(bytes uint64)
	ObserveFrameReceived(bytes uint64)
	ObserveOrphanResponse()
	ObserveTransportError()
	ObserveResponseLatency(latencyNs uint64)
}
