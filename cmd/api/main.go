package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/api/middleware"
	"github.com/feral-file/ff-holder-indexer/internal/api/server"
	"github.com/feral-file/ff-holder-indexer/internal/block"
	"github.com/feral-file/ff-holder-indexer/internal/cache"
	"github.com/feral-file/ff-holder-indexer/internal/config"
	"github.com/feral-file/ff-holder-indexer/internal/holders"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
	"github.com/feral-file/ff-holder-indexer/internal/metrics"
	"github.com/feral-file/ff-holder-indexer/internal/providers/ethereum"
	"github.com/feral-file/ff-holder-indexer/internal/providers/jetstream"
	"github.com/feral-file/ff-holder-indexer/internal/ratelimit"
	"github.com/feral-file/ff-holder-indexer/internal/scanner"
	"github.com/feral-file/ff-holder-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "holders-api",
			"chain":   string(cfg.Ethereum.ChainID),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting holder indexer API")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to register metrics", zap.Error(err))
	}

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()

	// Connect to Ethereum
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum", zap.Error(err))
	}
	defer ethClient.Close()
	logger.InfoCtx(ctx, "Connected to Ethereum", zap.String("chainID", string(cfg.Ethereum.ChainID)))

	headProvider := block.NewBlockHeadProvider(
		ethereum.NewEthereumBlockFetcher(ethClient),
		block.Config{
			TTL:           cfg.Ethereum.BlockHeadTTL,
			StaleWindow:   cfg.Ethereum.BlockHeadStaleWindow,
			Confirmations: cfg.Ethereum.Confirmations,
		},
		clockAdapter,
	)

	// Optional Redis for the snapshot cache and the shared getLogs quota
	var redisClient adapter.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient = adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx); err != nil {
			logger.WarnCtx(ctx, "Redis unreachable at startup", zap.Error(err))
		} else {
			logger.InfoCtx(ctx, "Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Distributed {
		limiter, err = ratelimit.NewDistributedLimiter(ratelimit.Config{
			Key:                     cfg.RateLimit.Key(cfg.Ethereum.ChainID),
			RequestsPerSecond:       int(cfg.Ethereum.Logs.RequestsPerSecond),
			Burst:                   cfg.Ethereum.Logs.Burst,
			LocalFallbackMultiplier: cfg.RateLimit.LocalFallbackMultiplier,
			RecheckAfter:            cfg.RateLimit.RecheckAfter,
		}, redisClient.NewRateLimiter(), clockAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create distributed rate limiter", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Sharing getLogs quota through Redis", zap.String("key", cfg.RateLimit.Key(cfg.Ethereum.ChainID)))
	}

	querier := ethereum.NewLogQuerier(ethClient, limiter, cfg.Ethereum.Logs, m)
	fetcher := scanner.NewRangeLogFetcher(querier, cfg.Scan, m)

	deps := holders.Deps{
		Fetcher: fetcher,
		Head:    headProvider,
		Clock:   clockAdapter,
		Metrics: m,
	}

	// Optional snapshot store
	if cfg.Database.Enabled() {
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
		}
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
		}
		if err := store.Migrate(db); err != nil {
			logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
		}
		deps.Store = store.NewPGStore(db)
		logger.InfoCtx(ctx, "Connected to database", zap.String("host", cfg.Database.Host))
	} else {
		logger.WarnCtx(ctx, "Database not configured, snapshots will not be persisted")
	}

	// Optional snapshot cache; lookup errors degrade to cache misses
	if redisClient != nil {
		deps.Cache = cache.NewRedisCache(redisClient, jsonAdapter, cfg.Redis.TTL)
	}

	// Optional snapshot publisher
	if cfg.NATS.URL != "" {
		publisher, err := jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err))
		}
		defer publisher.Close()
		deps.Publisher = publisher
	}

	service := holders.NewService(holders.Config{
		Chain:            cfg.Ethereum.ChainID,
		DefaultFromBlock: cfg.Ethereum.StartBlock,
		DefaultTopN:      cfg.Holders.DefaultTopN,
		BatchConcurrency: cfg.Holders.BatchConcurrency,
	}, deps)
	defer service.Close()

	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			APIKeys:      cfg.Auth.APIKeys,
			JWTPublicKey: cfg.Auth.JWTPublicKey,
		},
	}, service, registry)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}

	// in-flight scans finish on their request contexts
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}
	cancel()

	logger.Info("API server stopped")
}
