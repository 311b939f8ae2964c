package holders

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/balance"
	"github.com/feral-file/ff-holder-indexer/internal/block"
	"github.com/feral-file/ff-holder-indexer/internal/cache"
	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
	"github.com/feral-file/ff-holder-indexer/internal/messaging"
	"github.com/feral-file/ff-holder-indexer/internal/metrics"
	"github.com/feral-file/ff-holder-indexer/internal/scanner"
	"github.com/feral-file/ff-holder-indexer/internal/store"
	"github.com/feral-file/ff-holder-indexer/internal/transfer"
)

// Request describes one top-holder scan
type Request struct {
	// Contract is the token contract address (hex, any case)
	Contract string
	// FromBlock overrides the registered start block when set
	FromBlock *uint64
	// ToBlock overrides the chain head when set
	ToBlock *uint64
	// TopN limits the returned holders; 0 uses the configured default
	TopN int
}

// BatchResult is the outcome of one request of a batch
type BatchResult struct {
	Request  Request
	Snapshot *domain.HolderSnapshot
	Err      error
}

// Config holds the holder service configuration
type Config struct {
	// Chain is the chain every scan runs against
	Chain domain.Chain
	// DefaultFromBlock is the lower bound when neither the request nor the store has one
	DefaultFromBlock uint64
	// DefaultTopN is used when a request leaves TopN at 0
	DefaultTopN int
	// BatchConcurrency bounds concurrent scans of FetchTopHoldersBatch
	BatchConcurrency int
}

// Deps are the collaborators of the service. Store, Cache, Publisher and Metrics may be nil.
type Deps struct {
	Fetcher   scanner.Fetcher
	Head      block.BlockHeadProvider
	Clock     adapter.Clock
	Store     store.Store
	Cache     cache.SnapshotCache
	Publisher messaging.Publisher
	Metrics   *metrics.Metrics
}

// Service reconstructs top token holders from Transfer events
//
//go:generate mockgen -source=service.go -destination=../mocks/holders_service.go -package=mocks -mock_names=Service=MockHoldersService
type Service interface {
	// FetchTopHolders scans a contract's transfers and returns its top holders.
	// It fails only on invalid input or when the chain head cannot be resolved;
	// skipped ranges yield a partial snapshot instead of an error.
	FetchTopHolders(ctx context.Context, req Request) (*domain.HolderSnapshot, error)
	// FetchTopHoldersBatch runs independent scans concurrently, results in request order
	FetchTopHoldersBatch(ctx context.Context, reqs []Request) []BatchResult
	// GetLatestSnapshot returns the last stored snapshot of a contract
	GetLatestSnapshot(ctx context.Context, contract string) (*domain.HolderSnapshot, error)
	// SetStartBlock registers the default lower bound of a contract
	SetStartBlock(ctx context.Context, contract string, blockNumber uint64) error
	// Close stops the batch worker pool
	Close()
}

type service struct {
	config Config
	deps   Deps
	pool   pond.ResultPool[*domain.HolderSnapshot]
}

// NewService creates a holder service
func NewService(cfg Config, deps Deps) Service {
	if cfg.Chain == "" {
		cfg.Chain = domain.ChainEthereumMainnet
	}
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = domain.DEFAULT_TOP_N
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}

	return &service{
		config: cfg,
		deps:   deps,
		pool:   pond.NewResultPool[*domain.HolderSnapshot](cfg.BatchConcurrency),
	}
}

// FetchTopHolders implements Service
func (s *service) FetchTopHolders(ctx context.Context, req Request) (*domain.HolderSnapshot, error) {
	address, err := domain.NormalizeAddress(req.Contract)
	if err != nil {
		return nil, err
	}
	contract := address.Hex()

	topN, err := s.resolveTopN(req.TopN)
	if err != nil {
		return nil, err
	}

	log := logger.ForScan(ctx, string(s.config.Chain), contract)

	fromBlock := s.resolveFromBlock(ctx, log, contract, req.FromBlock)
	var toBlock uint64
	if req.ToBlock != nil {
		toBlock = *req.ToBlock
	} else {
		toBlock, err = s.deps.Head.GetSafeBlock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chain head: %w", err)
		}
	}
	if fromBlock > toBlock {
		log.Debug("Clamping start block to end block",
			zap.Uint64("fromBlock", fromBlock),
			zap.Uint64("toBlock", toBlock))
		fromBlock = toBlock
	}

	key := cache.Key{
		Chain:     s.config.Chain,
		Contract:  contract,
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		TopN:      topN,
	}
	if cached := s.lookupCache(ctx, log, key); cached != nil {
		return cached, nil
	}

	s.deps.Metrics.ScanStarted()
	startedAt := s.deps.Clock.Now()

	result, err := s.deps.Fetcher.Fetch(ctx, scanner.LogQuery{
		Address:   address,
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	})
	if err != nil {
		s.deps.Metrics.ScanFinished("error", s.deps.Clock.Since(startedAt).Seconds(), 0)
		return nil, fmt.Errorf("holder scan interrupted: %w", err)
	}

	events, dropped := transfer.DecodeAll(result.Logs)
	acc := balance.NewAccumulator()
	for _, event := range events {
		acc.Apply(event)
	}

	scannedAt := s.deps.Clock.Now()
	snapshot := &domain.HolderSnapshot{
		ID:              ulid.MustNewDefault(scannedAt).String(),
		Chain:           s.config.Chain,
		ContractAddress: contract,
		FromBlock:       fromBlock,
		ToBlock:         toBlock,
		TopN:            topN,
		Holders:         acc.Snapshot(topN),
		HolderCount:     acc.Len(),
		TransferCount:   acc.Applied(),
		ClampedDebits:   acc.Clamped(),
		SkippedRanges:   result.Skipped,
		Complete:        result.Complete(),
		ScannedAt:       scannedAt,
	}
	if snapshot.SkippedRanges == nil {
		snapshot.SkippedRanges = []domain.BlockRange{}
	}

	outcome := "complete"
	if !snapshot.Complete {
		outcome = "partial"
	}
	s.deps.Metrics.ScanFinished(outcome, s.deps.Clock.Since(startedAt).Seconds(), acc.Applied())

	log.Info("Holder scan finished",
		zap.String("snapshotID", snapshot.ID),
		zap.Uint64("fromBlock", fromBlock),
		zap.Uint64("toBlock", toBlock),
		zap.Int("logs", len(result.Logs)),
		zap.Int("droppedLogs", dropped),
		zap.Int("transfers", snapshot.TransferCount),
		zap.Int("holders", snapshot.HolderCount),
		zap.Int("clamped", snapshot.ClampedDebits),
		zap.Int("skippedRanges", len(snapshot.SkippedRanges)),
		zap.Int("requests", result.Requests))

	s.record(ctx, log, key, snapshot)

	return snapshot, nil
}

// FetchTopHoldersBatch implements Service
func (s *service) FetchTopHoldersBatch(ctx context.Context, reqs []Request) []BatchResult {
	tasks := make([]pond.Result[*domain.HolderSnapshot], len(reqs))
	for i, req := range reqs {
		tasks[i] = s.pool.SubmitErr(func() (*domain.HolderSnapshot, error) {
			return s.FetchTopHolders(ctx, req)
		})
	}

	results := make([]BatchResult, len(reqs))
	for i, task := range tasks {
		snapshot, err := task.Wait()
		results[i] = BatchResult{Request: reqs[i], Snapshot: snapshot, Err: err}
	}

	return results
}

// GetLatestSnapshot implements Service
func (s *service) GetLatestSnapshot(ctx context.Context, contract string) (*domain.HolderSnapshot, error) {
	address, err := domain.NormalizeAddress(contract)
	if err != nil {
		return nil, err
	}
	if s.deps.Store == nil {
		return nil, domain.ErrStoreNotConfigured
	}

	return s.deps.Store.GetLatestSnapshot(ctx, s.config.Chain, address.Hex())
}

// SetStartBlock implements Service
func (s *service) SetStartBlock(ctx context.Context, contract string, blockNumber uint64) error {
	address, err := domain.NormalizeAddress(contract)
	if err != nil {
		return err
	}
	if s.deps.Store == nil {
		return domain.ErrStoreNotConfigured
	}

	if err := s.deps.Store.SetStartBlock(ctx, s.config.Chain, address.Hex(), blockNumber); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Registered contract start block",
		zap.String("contract", address.Hex()),
		zap.Uint64("blockNumber", blockNumber))
	return nil
}

// Close implements Service
func (s *service) Close() {
	s.pool.StopAndWait()
}

func (s *service) resolveTopN(topN int) (int, error) {
	switch {
	case topN == 0:
		return s.config.DefaultTopN, nil
	case topN < 0 || topN > domain.MAX_TOP_N:
		return 0, fmt.Errorf("%w: %d (allowed 1..%d)", domain.ErrInvalidTopN, topN, domain.MAX_TOP_N)
	default:
		return topN, nil
	}
}

// resolveFromBlock picks the request bound, then the registered start block, then the config default
func (s *service) resolveFromBlock(ctx context.Context, log *zap.Logger, contract string, requested *uint64) uint64 {
	if requested != nil {
		return *requested
	}
	if s.deps.Store == nil {
		return s.config.DefaultFromBlock
	}

	startBlock, ok, err := s.deps.Store.GetStartBlock(ctx, s.config.Chain, contract)
	if err != nil {
		log.Warn("Failed to read registered start block, using default", zap.Error(err))
		return s.config.DefaultFromBlock
	}
	if !ok {
		return s.config.DefaultFromBlock
	}
	return startBlock
}

func (s *service) lookupCache(ctx context.Context, log *zap.Logger, key cache.Key) *domain.HolderSnapshot {
	if s.deps.Cache == nil {
		return nil
	}

	snapshot, err := s.deps.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			log.Warn("Snapshot cache lookup failed", zap.Error(err))
		}
		return nil
	}

	log.Debug("Serving cached holder snapshot", zap.String("snapshotID", snapshot.ID))
	return snapshot
}

// record persists, caches and announces a snapshot. Failures are logged, never returned:
// the caller already has its result.
func (s *service) record(ctx context.Context, log *zap.Logger, key cache.Key, snapshot *domain.HolderSnapshot) {
	if s.deps.Store != nil {
		if err := s.deps.Store.SaveSnapshot(ctx, snapshot); err != nil {
			log.Error("Failed to save holder snapshot", zap.Error(err), zap.String("snapshotID", snapshot.ID))
		}
	}

	// partial snapshots are not cached so the next request retries the skipped ranges
	if s.deps.Cache != nil && snapshot.Complete {
		if err := s.deps.Cache.Set(ctx, key, snapshot); err != nil {
			log.Warn("Failed to cache holder snapshot", zap.Error(err), zap.String("snapshotID", snapshot.ID))
		}
	}

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishSnapshot(ctx, snapshot); err != nil {
			log.Error("Failed to publish holder snapshot", zap.Error(err), zap.String("snapshotID", snapshot.ID))
		}
	}
}
