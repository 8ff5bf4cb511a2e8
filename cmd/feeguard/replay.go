package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/config"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/replay"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/riskfee"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/storage"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []storage.Sink{storage.NewJsonlSink(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	engine := riskfee.NewEngine(logger)
	replayer := replay.NewReplayer(engine, sinks, cfg.BatchSize, logger)

	logger.Info("replay start",
		zap.String("input", cfg.Input),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
	)

	return replayer.Run(ctx, cfg.Input)
}
