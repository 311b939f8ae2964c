package store

import (
	"context"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
)

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// SaveSnapshot persists a finished holder snapshot
	SaveSnapshot(ctx context.Context, snapshot *domain.HolderSnapshot) error
	// GetLatestSnapshot returns the most recent snapshot of a contract, domain.ErrSnapshotNotFound if none
	GetLatestSnapshot(ctx context.Context, chain domain.Chain, contract string) (*domain.HolderSnapshot, error)
	// GetStartBlock returns the registered start block of a contract and whether one is set
	GetStartBlock(ctx context.Context, chain domain.Chain, contract string) (uint64, bool, error)
	// SetStartBlock registers the block a contract scan starts from (usually its creation block)
	SetStartBlock(ctx context.Context, chain domain.Chain, contract string, blockNumber uint64) error
}
