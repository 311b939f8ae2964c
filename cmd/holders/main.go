package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/block"
	"github.com/feral-file/ff-holder-indexer/internal/config"
	"github.com/feral-file/ff-holder-indexer/internal/holders"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
	"github.com/feral-file/ff-holder-indexer/internal/providers/ethereum"
	"github.com/feral-file/ff-holder-indexer/internal/scanner"
	"github.com/feral-file/ff-holder-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	contract   = flag.String("contract", "", "Token contract address")
	fromBlock  = flag.Int64("from", -1, "First block to scan (default: registered start block)")
	toBlock    = flag.Int64("to", -1, "Last block to scan (default: safe chain head)")
	topN       = flag.Int("top", 0, "Number of holders to return (default from config)")
)

func main() {
	flag.Parse()
	if *contract == "" {
		fmt.Fprintln(os.Stderr, "usage: holders -contract <address> [-from n] [-to n] [-top n]")
		os.Exit(2)
	}

	config.ChdirRepoRoot()
	cfg, err := config.LoadCLIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "holders-cli",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	if err := run(ctx, cfg); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("contract", *contract))
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.CLIConfig) error {
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Ethereum: %w", err)
	}
	defer ethClient.Close()

	clockAdapter := adapter.NewClock()
	deps := holders.Deps{
		Fetcher: scanner.NewRangeLogFetcher(ethereum.NewLogQuerier(ethClient, nil, cfg.Ethereum.Logs, nil), cfg.Scan, nil),
		Head: block.NewBlockHeadProvider(
			ethereum.NewEthereumBlockFetcher(ethClient),
			block.Config{
				TTL:           cfg.Ethereum.BlockHeadTTL,
				StaleWindow:   cfg.Ethereum.BlockHeadStaleWindow,
				Confirmations: cfg.Ethereum.Confirmations,
			},
			clockAdapter,
		),
		Clock: clockAdapter,
	}

	if cfg.Database.Enabled() {
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		deps.Store = store.NewPGStore(db)
	}

	service := holders.NewService(holders.Config{
		Chain:            cfg.Ethereum.ChainID,
		DefaultFromBlock: cfg.Ethereum.StartBlock,
		DefaultTopN:      cfg.Holders.DefaultTopN,
		BatchConcurrency: 1,
	}, deps)
	defer service.Close()

	req := holders.Request{Contract: *contract, TopN: *topN}
	if *fromBlock >= 0 {
		v := uint64(*fromBlock)
		req.FromBlock = &v
	}
	if *toBlock >= 0 {
		v := uint64(*toBlock)
		req.ToBlock = &v
	}

	snapshot, err := service.FetchTopHolders(ctx, req)
	if err != nil {
		return err
	}

	out, err := adapter.NewJSON().MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
