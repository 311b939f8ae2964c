package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "holders"

	Scanner = "scanner"
	RPC     = "rpc"
	Service = "service"

	// Chunk outcome label values
	OutcomeSuccess  = "success"
	OutcomeShrunk   = "shrunk"
	OutcomeSkipped  = "skipped"
	OutcomeCanceled = "canceled"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the Prometheus collectors of the holder indexer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	chunks        *prometheus.CounterVec
	chunkSize     prometheus.Gauge
	chunkBlocks   prometheus.Histogram
	logsFetched   prometheus.Counter
	blocksSkipped prometheus.Counter

	rpcCalls    *prometheus.CounterVec
	rpcDuration prometheus.Histogram

	scans          *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	transfersFound prometheus.Counter
	scansInFlight  prometheus.Gauge
}

// New creates a Metrics instance and registers all collectors with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Scanner,
			Name:      "chunks_total",
			Help:      "Log query chunks by outcome",
		}, []string{"outcome"}),
		chunkSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Scanner,
			Name:      "chunk_size_blocks",
			Help:      "Current adaptive chunk size of the most recent scan",
		}),
		chunkBlocks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Scanner,
			Name:      "chunk_blocks",
			Help:      "Block span of successful log query chunks",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 8),
		}),
		logsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Scanner,
			Name:      "logs_fetched_total",
			Help:      "Raw logs returned by successful chunks",
		}),
		blocksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Scanner,
			Name:      "blocks_skipped_total",
			Help:      "Blocks left unscanned because their chunk was skipped",
		}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "get_logs_total",
			Help:      "eth_getLogs calls by status",
		}, []string{"status"}),
		rpcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "get_logs_duration_seconds",
			Help:      "eth_getLogs call duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Service,
			Name:      "scans_total",
			Help:      "Holder scans by completeness (complete/partial) or error",
		}, []string{"result"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Service,
			Name:      "scan_duration_seconds",
			Help:      "End-to-end holder scan duration in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		transfersFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Service,
			Name:      "transfers_applied_total",
			Help:      "Decoded transfer events folded into balances",
		}),
		scansInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Service,
			Name:      "scans_in_flight",
			Help:      "Holder scans currently running",
		}),
	}

	err := errors.Join(
		reg.Register(m.chunks),
		reg.Register(m.chunkSize),
		reg.Register(m.chunkBlocks),
		reg.Register(m.logsFetched),
		reg.Register(m.blocksSkipped),
		reg.Register(m.rpcCalls),
		reg.Register(m.rpcDuration),
		reg.Register(m.scans),
		reg.Register(m.scanDuration),
		reg.Register(m.transfersFound),
		reg.Register(m.scansInFlight),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveChunk records the outcome of one chunk attempt
func (m *Metrics) ObserveChunk(outcome string, blocks uint64, logs int) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeSuccess:
		m.chunkBlocks.Observe(float64(blocks))
		m.logsFetched.Add(float64(logs))
	case OutcomeSkipped:
		m.blocksSkipped.Add(float64(blocks))
	}
}

// SetChunkSize records the current adaptive chunk size
func (m *Metrics) SetChunkSize(size uint64) {
	if m == nil {
		return
	}
	m.chunkSize.Set(float64(size))
}

// ObserveRPC records one eth_getLogs call
func (m *Metrics) ObserveRPC(err error, seconds float64) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.rpcCalls.WithLabelValues(status).Inc()
	m.rpcDuration.Observe(seconds)
}

// ScanStarted marks a holder scan as running
func (m *Metrics) ScanStarted() {
	if m == nil {
		return
	}
	m.scansInFlight.Inc()
}

// ScanFinished records the result of a holder scan: "complete", "partial" or "error"
func (m *Metrics) ScanFinished(result string, seconds float64, transfers int) {
	if m == nil {
		return
	}
	m.scansInFlight.Dec()
	m.scans.WithLabelValues(result).Inc()
	m.scanDuration.Observe(seconds)
	m.transfersFound.Add(float64(transfers))
}
