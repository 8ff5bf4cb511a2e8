package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/chain"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/config"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/feed"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/replay"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/riskfee"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/storage"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/storage/postgres"
)

func runShadow(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadShadow(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	pools, err := replay.ParsePools(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	sinks := []storage.Sink{storage.NewJsonlSink(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if cfg.RedisAddr != "" {
		publisher := feed.NewPublisher(feed.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	engine := riskfee.NewEngine(logger)
	runner, err := replay.NewShadowRunner(replay.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Pools:             pools,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, engine, sinks, logger)
	if err != nil {
		return err
	}

	logger.Info("shadow start",
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("pools", len(pools)),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	return runner.Run(ctx)
}
