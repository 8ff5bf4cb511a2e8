package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "feeguard",
		Short:        "Sandwich-risk dynamic fee engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the host-facing fee API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("addr", ":8547", "listen address")
	serveCmd.Flags().String("admin-token", "", "bearer token for config writes (empty disables writes)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the decision feed (empty disables)")
	serveCmd.Flags().Int("redis-db", 0, "Redis database")
	serveCmd.Flags().String("redis-user", "", "Redis username")
	serveCmd.Flags().String("redis-pass", "", "Redis password")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	shadowCmd := &cobra.Command{
		Use:   "shadow",
		Short: "Score historical swaps pulled from an RPC node",
		RunE:  runShadow,
	}

	shadowCmd.Flags().String("rpc", "", "RPC URL")
	shadowCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	shadowCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	shadowCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	shadowCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	shadowCmd.Flags().String("out", "./data/decisions.jsonl", "output decisions JSONL path")
	shadowCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for decisions and snapshots")
	shadowCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	shadowCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	shadowCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	shadowCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	shadowCmd.Flags().String("redis-addr", "", "Redis address for the decision feed (empty disables)")
	shadowCmd.Flags().Int("redis-db", 0, "Redis database")
	shadowCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(shadowCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Score a captured swap JSONL file",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input swap observations JSONL")
	replayCmd.Flags().String("out", "./data/decisions.jsonl", "output decisions JSONL path")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for decisions and snapshots")
	replayCmd.Flags().Int("batch-size", 1000, "decisions per sink batch")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
