package scanner

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
	"github.com/feral-file/ff-holder-indexer/internal/metrics"
	"github.com/feral-file/ff-holder-indexer/internal/providers/ethereum"
)

// LogQuery is one range request for the logs of a single contract
type LogQuery struct {
	Address   common.Address
	FromBlock uint64
	ToBlock   uint64
}

// FetchResult is the best-effort outcome of a range walk
type FetchResult struct {
	// Logs are the raw logs of every successful chunk, in chunk request order.
	// Within a chunk the node's order is kept; there is no global ordering.
	Logs []types.Log
	// Chunks are the ranges that were fetched successfully, in request order
	Chunks []domain.BlockRange
	// Skipped are the ranges given up on after an unrecoverable error
	// or a range error at the minimum chunk size
	Skipped []domain.BlockRange
	// Requests is the number of log queries issued, including failed ones
	Requests int
}

// Complete reports whether no range was skipped
func (r *FetchResult) Complete() bool {
	return len(r.Skipped) == 0
}

// Fetcher retrieves all logs of an address across a block range too large for one query
//
//go:generate mockgen -source=fetcher.go -destination=../mocks/fetcher.go -package=mocks -mock_names=Fetcher=MockFetcher
type Fetcher interface {
	// Fetch walks the query range in adaptive chunks. Failed chunks are skipped,
	// never fatal; the only error returned is the context's.
	Fetch(ctx context.Context, query LogQuery) (*FetchResult, error)
}

// RangeLogFetcher is the adaptive chunked eth_getLogs walker.
// Chunk size is local to each Fetch call, so one instance may serve concurrent scans.
type RangeLogFetcher struct {
	querier ethereum.LogQuerier
	config  Config
	metrics *metrics.Metrics
}

// NewRangeLogFetcher creates a fetcher over a log querier. m may be nil.
func NewRangeLogFetcher(querier ethereum.LogQuerier, cfg Config, m *metrics.Metrics) *RangeLogFetcher {
	return &RangeLogFetcher{
		querier: querier,
		config:  cfg.Normalize(),
		metrics: m,
	}
}

// Config returns the normalized configuration in use
func (f *RangeLogFetcher) Config() Config {
	return f.config
}

// Fetch implements Fetcher
func (f *RangeLogFetcher) Fetch(ctx context.Context, query LogQuery) (*FetchResult, error) {
	if query.FromBlock > query.ToBlock {
		query.FromBlock = query.ToBlock
	}

	log := logger.FromContext(ctx).With(
		zap.String("address", query.Address.Hex()),
		zap.Uint64("fromBlock", query.FromBlock),
		zap.Uint64("toBlock", query.ToBlock),
		zap.String("direction", string(f.config.Direction)))

	w := newWalker(query.FromBlock, query.ToBlock, f.config)
	result := &FetchResult{}

	for !w.done() {
		if err := ctx.Err(); err != nil {
			f.metrics.ObserveChunk(metrics.OutcomeCanceled, 0, 0)
			log.Info("Log scan canceled",
				zap.Int("chunks", len(result.Chunks)),
				zap.Int("requests", result.Requests))
			return result, err
		}

		chunk := w.next()
		f.metrics.SetChunkSize(w.size)
		result.Requests++

		logs, err := f.querier.QueryLogs(ctx, query.Address, chunk.Start, chunk.End)
		if err == nil {
			result.Logs = append(result.Logs, logs...)
			result.Chunks = append(result.Chunks, chunk)
			f.metrics.ObserveChunk(metrics.OutcomeSuccess, chunk.Size(), len(logs))
			w.succeeded(chunk)
			continue
		}

		// the querier surfaces cancellation as an error; do not record the chunk as skipped
		if ctx.Err() != nil {
			continue
		}

		kind := ethereum.ClassifyError(err)
		if kind == ethereum.ErrorKindRange && w.canShrink(chunk) {
			previous := w.size
			w.shrink(chunk)
			f.metrics.ObserveChunk(metrics.OutcomeShrunk, chunk.Size(), 0)
			log.Debug("Range rejected, shrinking chunk",
				zap.Error(err),
				zap.Stringer("chunk", chunk),
				zap.Uint64("fromSize", previous),
				zap.Uint64("toSize", w.size))
			continue
		}

		result.Skipped = append(result.Skipped, chunk)
		f.metrics.ObserveChunk(metrics.OutcomeSkipped, chunk.Size(), 0)
		log.Warn("Skipping log range",
			zap.Error(err),
			zap.Stringer("chunk", chunk),
			zap.Stringer("kind", kind),
			zap.Uint64("chunkSize", w.size))
		w.skipped(chunk)
	}

	log.Debug("Log scan finished",
		zap.Int("logs", len(result.Logs)),
		zap.Int("chunks", len(result.Chunks)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("requests", result.Requests))

	return result, nil
}
