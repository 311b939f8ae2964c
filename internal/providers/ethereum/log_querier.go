package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
	"github.com/feral-file/ff-holder-indexer/internal/metrics"
	"github.com/feral-file/ff-holder-indexer/internal/ratelimit"
	"github.com/feral-file/ff-holder-indexer/internal/transfer"
)

// ErrQueryTimeout is returned when a single log query exceeds QueryTimeout.
// It classifies as a range error: a smaller span is likely to finish in time.
var ErrQueryTimeout = errors.New("log query timeout exceeded")

// LogQuerier is the read-only chain-log query service used by the range fetcher
//
//go:generate mockgen -source=log_querier.go -destination=../../mocks/log_querier.go -package=mocks -mock_names=LogQuerier=MockLogQuerier
type LogQuerier interface {
	// QueryLogs returns the Transfer logs emitted by address within [fromBlock, toBlock]
	QueryLogs(ctx context.Context, address common.Address, fromBlock, toBlock uint64) ([]types.Log, error)
}

// QuerierConfig holds the per-request limits of the log querier
type QuerierConfig struct {
	// QueryTimeout bounds a single eth_getLogs call (0 = no timeout)
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	// RequestsPerSecond throttles eth_getLogs calls (0 = unlimited)
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// Burst is the local limiter burst size
	Burst int `mapstructure:"burst"`
	// RetryInitialInterval is the first backoff interval after a rate-limit response
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	// RetryMaxElapsed caps the total time spent retrying rate-limit responses
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
}

type logQuerier struct {
	client  adapter.EthClient
	config  QuerierConfig
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
}

// NewLogQuerier creates a LogQuerier over an Ethereum client.
// A nil limiter is replaced by a local one built from cfg; m may be nil.
func NewLogQuerier(client adapter.EthClient, limiter ratelimit.Limiter, cfg QuerierConfig, m *metrics.Metrics) LogQuerier {
	if limiter == nil {
		limiter = ratelimit.NewLocalLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}
	if cfg.RetryMaxElapsed <= 0 {
		cfg.RetryMaxElapsed = 30 * time.Second
	}

	return &logQuerier{
		client:  client,
		config:  cfg,
		limiter: limiter,
		metrics: m,
	}
}

// QueryLogs issues one eth_getLogs call for the range, retrying only on rate-limit responses.
// Range and other errors are returned unchanged so the caller can classify them.
func (q *logQuerier) QueryLogs(ctx context.Context, address common.Address, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{{transfer.TransferTopic}},
	}

	var logs []types.Log
	operation := func() error {
		if err := q.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		start := time.Now()
		result, err := q.filterLogs(ctx, query)
		q.metrics.ObserveRPC(err, time.Since(start).Seconds())
		if err == nil {
			logs = result
			return nil
		}

		if isRateLimited(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.config.RetryInitialInterval
	b.MaxInterval = 10 * q.config.RetryInitialInterval
	b.MaxElapsedTime = q.config.RetryMaxElapsed
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	var attempts int
	notify := func(err error, next time.Duration) {
		attempts++
		logger.WarnCtx(ctx, "Rate limited by provider, retrying log query",
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Duration("nextRetryIn", next),
			zap.Uint64("fromBlock", fromBlock),
			zap.Uint64("toBlock", toBlock))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}

	return logs, nil
}

func (q *logQuerier) filterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if q.config.QueryTimeout <= 0 {
		return q.client.FilterLogs(ctx, query)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, q.config.QueryTimeout)
	defer cancel()

	logs, err := q.client.FilterLogs(timeoutCtx, query)
	if err != nil && ctx.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %v", ErrQueryTimeout, q.config.QueryTimeout, err)
	}
	return logs, err
}
