package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := New(reg)
	require.NoError(t, err)
	require.NotNil(t, m)

	// registering twice on the same registry fails
	_, err = New(reg)
	assert.Error(t, err)
}

func TestObserveChunk(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveChunk(OutcomeSuccess, 4000, 12)
	m.ObserveChunk(OutcomeSuccess, 2000, 3)
	m.ObserveChunk(OutcomeShrunk, 4000, 0)
	m.ObserveChunk(OutcomeSkipped, 512, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunks.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunks.WithLabelValues(OutcomeShrunk)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunks.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.logsFetched))
	assert.Equal(t, 512.0, testutil.ToFloat64(m.blocksSkipped))
}

func TestObserveRPC(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveRPC(nil, 0.2)
	m.ObserveRPC(errors.New("boom"), 1.5)
	m.ObserveRPC(errors.New("boom"), 0.1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues(StatusError)))
}

func TestScanLifecycle(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ScanStarted()
	m.ScanStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.scansInFlight))

	m.ScanFinished("complete", 3, 10)
	m.ScanFinished("partial", 4, 5)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.scansInFlight))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.transfersFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("partial")))

	m.SetChunkSize(8000)
	assert.Equal(t, 8000.0, testutil.ToFloat64(m.chunkSize))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveChunk(OutcomeSuccess, 1, 1)
		m.SetChunkSize(1)
		m.ObserveRPC(nil, 1)
		m.ScanStarted()
		m.ScanFinished("complete", 1, 1)
	})
}
