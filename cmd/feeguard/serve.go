package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/config"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/feed"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/riskfee"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/server"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher *feed.Publisher
	if cfg.RedisAddr != "" {
		publisher = feed.NewPublisher(feed.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUser,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		defer publisher.Close()
	}

	engine := riskfee.NewEngine(logger)
	srv := server.New(engine, cfg.AdminToken, publisher, logger)

	logger.Info("serve start",
		zap.String("addr", cfg.Addr),
		zap.Bool("config_writes_enabled", cfg.AdminToken != ""),
		zap.Bool("feed_enabled", publisher != nil),
	)

	return srv.Serve(ctx, cfg.Addr)
}
