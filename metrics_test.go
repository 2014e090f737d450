package responder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveFrameCounters(t *testing.T) {
	m := NewMetrics()

	m.ObserveFrameSent(10)
	m.ObserveFrameSent(20)
	m.ObserveFrameReceived(5)
	m.ObserveOrphanResponse()
	m.ObserveTransportError()

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.FramesSent)
	assert.EqualValues(t, 30, snap.BytesSent)
	assert.EqualValues(t, 1, snap.FramesReceived)
	assert.EqualValues(t, 5, snap.BytesReceived)
	assert.EqualValues(t, 1, snap.OrphanResponses)
	assert.EqualValues(t, 1, snap.TransportErrors)
}

func TestMetricsLatencyHistogramBucketsAreCumulative(t *testing.T) {
	m := NewMetrics()

	m.ObserveResponseLatency(500) // below every bucket
	snap := m.Snapshot()

	for i, count := range snap.LatencyHistogram {
		require.EqualValuesf(t, 1, count, "bucket %d should include a latency below all thresholds", i)
	}
	assert.EqualValues(t, 500, snap.AvgLatencyNs)
}

func TestMetricsLatencyAverageAcrossSamples(t *testing.T) {
	m := NewMetrics()
	m.ObserveResponseLatency(1_000_000)
	m.ObserveResponseLatency(3_000_000)

	snap := m.Snapshot()
	assert.EqualValues(t, 2_000_000, snap.AvgLatencyNs)
}

func TestMetricsStopFreezesUptime(t *testing.T) {
	m := NewMetrics()
	m.Stop()

	snap1 := m.Snapshot()
	snap2 := m.Snapshot()
	assert.Equal(t, snap1.UptimeNs, snap2.UptimeNs)
}
