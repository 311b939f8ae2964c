package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
)

// cachedHead is the last observed chain head and when it was fetched
type cachedHead struct {
	number    uint64
	fetchedAt time.Time
}

// BlockHeadProvider resolves the chain head used as the default scan end.
// Head lookups are cached for a TTL so batch scans share one RPC call.
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head_provider.go -package=mocks -mock_names=BlockHeadProvider=MockBlockHeadProvider
type BlockHeadProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// GetSafeBlock returns the latest block minus the configured confirmations
	GetSafeBlock(ctx context.Context) (uint64, error)
}

// BlockFetcher is the interface for fetching the latest block from the blockchain
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head_provider.go -package=mocks -mock_names=BlockFetcher=MockBlockFetcher
type BlockFetcher interface {
	// FetchLatestBlock fetches the latest block from the blockchain
	FetchLatestBlock(ctx context.Context) (uint64, error)
}

// Config holds configuration for the BlockHeadProvider
type Config struct {
	// TTL is how long a fetched head is reused
	TTL time.Duration

	// StaleWindow is how long a cached head may be served when a refresh fails
	StaleWindow time.Duration

	// Confirmations is subtracted from the head by GetSafeBlock
	Confirmations uint64
}

type blockHeadProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu   sync.RWMutex
	head *cachedHead
}

// NewBlockHeadProvider creates a new BlockHeadProvider with caching
func NewBlockHeadProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) BlockHeadProvider {
	return &blockHeadProvider{
		fetcher: fetcher,
		config:  config,
		clock:   clock,
	}
}

// GetLatestBlock returns the latest block number, using cache if valid
func (p *blockHeadProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()
	if cached != nil && now.Sub(cached.fetchedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Using cached chain head", zap.Uint64("blockNumber", cached.number))
		return cached.number, nil
	}

	number, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.fetchedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Chain head refresh failed, serving stale head",
				zap.Error(err),
				zap.Uint64("blockNumber", cached.number))
			return cached.number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	// a concurrent refresh may have observed a higher head
	if p.head == nil || number >= p.head.number {
		p.head = &cachedHead{number: number, fetchedAt: now}
	}
	p.mu.Unlock()

	return number, nil
}

// GetSafeBlock returns the latest block minus Confirmations, floored at zero
func (p *blockHeadProvider) GetSafeBlock(ctx context.Context) (uint64, error) {
	latest, err := p.GetLatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	if latest < p.config.Confirmations {
		return 0, nil
	}
	return latest - p.config.Confirmations, nil
}
