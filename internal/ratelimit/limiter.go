package ratelimit

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
)

// Limiter paces outgoing provider requests
//
//go:generate mockgen -source=limiter.go -destination=../mocks/limiter.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	// Wait blocks until one request may be sent or ctx is done
	Wait(ctx context.Context) error
}

// Config holds the distributed limiter configuration
type Config struct {
	// Key identifies the shared quota in Redis, one per RPC provider
	Key string
	// RequestsPerSecond is the quota shared by every process using Key
	RequestsPerSecond int
	// Burst defaults to RequestsPerSecond
	Burst int
	// LocalFallbackMultiplier scales the per-process limit used while Redis is unavailable
	LocalFallbackMultiplier float64
	// RecheckAfter is how long Redis is bypassed after an error
	RecheckAfter time.Duration
}

type localLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter creates an in-process token bucket. requestsPerSecond <= 0 disables limiting.
func NewLocalLimiter(requestsPerSecond float64, burst int) Limiter {
	if requestsPerSecond <= 0 {
		return &localLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	if burst <= 0 {
		burst = 1
	}
	return &localLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

func (l *localLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

type distributedLimiter struct {
	config    Config
	limit     redis_rate.Limit
	redis     adapter.RedisRateLimiter
	clock     adapter.Clock
	local     *rate.Limiter
	preFilter *rate.Limiter

	mu            sync.Mutex
	unavailableAt time.Time
}

// NewDistributedLimiter creates a limiter whose quota is shared through Redis.
// While Redis errors it falls back to a local limiter and retries Redis after RecheckAfter.
func NewDistributedLimiter(cfg Config, rl adapter.RedisRateLimiter, clock adapter.Clock) (Limiter, error) {
	if cfg.Key == "" {
		return nil, errors.New("rate limit key is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, errors.New("requests_per_second must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}
	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = 0.5
	}
	if cfg.RecheckAfter <= 0 {
		cfg.RecheckAfter = 10 * time.Second
	}

	localRate := max(float64(cfg.RequestsPerSecond)*cfg.LocalFallbackMultiplier, 1.0)

	return &distributedLimiter{
		config: cfg,
		limit: redis_rate.Limit{
			Rate:   cfg.RequestsPerSecond,
			Burst:  cfg.Burst,
			Period: time.Second,
		},
		redis: rl,
		clock: clock,
		local: rate.NewLimiter(rate.Limit(localRate), cfg.Burst),
		// the pre-filter keeps this process from hammering Redis beyond the shared quota
		preFilter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

func (d *distributedLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.redisAvailable() {
			return d.local.Wait(ctx)
		}

		if err := d.preFilter.Wait(ctx); err != nil {
			return err
		}

		res, err := d.redis.Allow(ctx, d.config.Key, d.limit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.markUnavailable()
			logger.WarnCtx(ctx, "Redis rate limiter error, falling back to local",
				zap.String("key", d.config.Key),
				zap.Error(err))
			continue
		}

		if res.Allowed > 0 {
			return nil
		}

		retryAfter := res.RetryAfter
		if retryAfter <= 0 {
			retryAfter = 10 * time.Millisecond
		}
		// 50-150% of retryAfter spreads out competing processes
		jitter := time.Duration(float64(retryAfter) * (0.5 + rand.Float64())) //nolint:gosec,G404
		logger.DebugCtx(ctx, "Rate limit token unavailable, waiting",
			zap.String("key", d.config.Key),
			zap.Duration("retryAfter", jitter))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(jitter):
		}
	}
}

func (d *distributedLimiter) redisAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.unavailableAt.IsZero() {
		return true
	}
	if d.clock.Since(d.unavailableAt) < d.config.RecheckAfter {
		return false
	}

	d.unavailableAt = time.Time{}
	logger.Info("Retrying Redis rate limiter", zap.String("key", d.config.Key))
	return true
}

func (d *distributedLimiter) markUnavailable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unavailableAt = d.clock.Now()
}
