package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
)

const keyPrefix = "holders"

// Key identifies one cached holder snapshot.
// Only resolved block bounds are cached so a key never means "latest".
type Key struct {
	Chain     domain.Chain
	Contract  string
	FromBlock uint64
	ToBlock   uint64
	TopN      int
}

// String renders the redis key, e.g. holders:eip155:1:0xabc...:100-200:top10
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%d-%d:top%d",
		keyPrefix, k.Chain, strings.ToLower(k.Contract), k.FromBlock, k.ToBlock, k.TopN)
}

// SnapshotCache caches finished holder snapshots
//
//go:generate mockgen -source=cache.go -destination=../mocks/cache.go -package=mocks -mock_names=SnapshotCache=MockSnapshotCache
type SnapshotCache interface {
	// Get returns the cached snapshot, domain.ErrCacheMiss when absent
	Get(ctx context.Context, key Key) (*domain.HolderSnapshot, error)
	// Set stores a snapshot under key
	Set(ctx context.Context, key Key, snapshot *domain.HolderSnapshot) error
}

type redisCache struct {
	client adapter.RedisClient
	json   adapter.JSON
	ttl    time.Duration
}

// NewRedisCache creates a snapshot cache backed by redis. ttl 0 keeps entries forever.
func NewRedisCache(client adapter.RedisClient, jsonAdapter adapter.JSON, ttl time.Duration) SnapshotCache {
	return &redisCache{
		client: client,
		json:   jsonAdapter,
		ttl:    ttl,
	}
}

// Get returns the cached snapshot
func (c *redisCache) Get(ctx context.Context, key Key) (*domain.HolderSnapshot, error) {
	data, err := c.client.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, adapter.ErrKeyNotFound) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	var snapshot domain.HolderSnapshot
	if err := c.json.Unmarshal(data, &snapshot); err != nil {
		// a corrupt entry behaves like a miss and is overwritten by the next scan
		logger.WarnCtx(ctx, "Discarding undecodable cached snapshot",
			zap.String("key", key.String()),
			zap.Error(err))
		return nil, domain.ErrCacheMiss
	}

	return &snapshot, nil
}

// Set stores a snapshot under key
func (c *redisCache) Set(ctx context.Context, key Key, snapshot *domain.HolderSnapshot) error {
	data, err := c.json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, key.String(), data, c.ttl); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}

	return nil
}
