package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the tables used by the store
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schema.KeyValueStore{}, &schema.HolderSnapshot{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 10
//   - MaxIdleConns: 2
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// MaxIdleConns never exceeds MaxOpenConns.
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 2
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

func startBlockKey(chain domain.Chain, contract string) string {
	return fmt.Sprintf("start_block:%s:%s", chain, contract)
}

// SaveSnapshot persists a finished holder snapshot
func (s *pgStore) SaveSnapshot(ctx context.Context, snapshot *domain.HolderSnapshot) error {
	row, err := toSchemaSnapshot(snapshot)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to save holder snapshot: %w", err)
	}

	return nil
}

// GetLatestSnapshot returns the most recent snapshot of a contract
func (s *pgStore) GetLatestSnapshot(ctx context.Context, chain domain.Chain, contract string) (*domain.HolderSnapshot, error) {
	var row schema.HolderSnapshot
	err := s.db.WithContext(ctx).
		Where("chain = ? AND contract_address = ?", string(chain), contract).
		Order("scanned_at DESC").
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get latest holder snapshot: %w", err)
	}

	return fromSchemaSnapshot(&row)
}

// GetStartBlock returns the registered start block of a contract
func (s *pgStore) GetStartBlock(ctx context.Context, chain domain.Chain, contract string) (uint64, bool, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", startBlockKey(chain, contract)).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get start block: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse start block: %w", err)
	}

	return blockNumber, true, nil
}

// SetStartBlock registers the block a contract scan starts from
func (s *pgStore) SetStartBlock(ctx context.Context, chain domain.Chain, contract string, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:   startBlockKey(chain, contract),
		Value: strconv.FormatUint(blockNumber, 10),
	}

	if err := s.db.WithContext(ctx).Save(&kv).Error; err != nil {
		return fmt.Errorf("failed to set start block: %w", err)
	}

	return nil
}

func toSchemaSnapshot(snapshot *domain.HolderSnapshot) (*schema.HolderSnapshot, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("nil snapshot")
	}

	holders := snapshot.Holders
	if holders == nil {
		holders = []domain.HolderBalance{}
	}
	holdersJSON, err := json.Marshal(holders)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal holders: %w", err)
	}

	skipped := snapshot.SkippedRanges
	if skipped == nil {
		skipped = []domain.BlockRange{}
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal skipped ranges: %w", err)
	}

	return &schema.HolderSnapshot{
		ID:              snapshot.ID,
		Chain:           string(snapshot.Chain),
		ContractAddress: snapshot.ContractAddress,
		FromBlock:       snapshot.FromBlock,
		ToBlock:         snapshot.ToBlock,
		TopN:            snapshot.TopN,
		Holders:         holdersJSON,
		HolderCount:     snapshot.HolderCount,
		TransferCount:   snapshot.TransferCount,
		ClampedDebits:   snapshot.ClampedDebits,
		SkippedRanges:   skippedJSON,
		Complete:        snapshot.Complete,
		ScannedAt:       snapshot.ScannedAt,
	}, nil
}

func fromSchemaSnapshot(row *schema.HolderSnapshot) (*domain.HolderSnapshot, error) {
	var holders []domain.HolderBalance
	if err := json.Unmarshal(row.Holders, &holders); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holders: %w", err)
	}

	var skipped []domain.BlockRange
	if err := json.Unmarshal(row.SkippedRanges, &skipped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skipped ranges: %w", err)
	}

	return &domain.HolderSnapshot{
		ID:              row.ID,
		Chain:           domain.Chain(row.Chain),
		ContractAddress: row.ContractAddress,
		FromBlock:       row.FromBlock,
		ToBlock:         row.ToBlock,
		TopN:            row.TopN,
		Holders:         holders,
		HolderCount:     row.HolderCount,
		TransferCount:   row.TransferCount,
		ClampedDebits:   row.ClampedDebits,
		SkippedRanges:   skipped,
		Complete:        row.Complete,
		ScannedAt:       row.ScannedAt,
	}, nil
}
