package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ShadowConfig holds configuration for a chain-backed shadow run.
type ShadowConfig struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Pools             []string
	BatchSize         uint64
	Out               string
	PGDSN             string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	RedisAddr         string
	RedisDB           int
	LogLevel          string
}

// LoadShadow merges config file, environment variables, and flags into
// ShadowConfig.
func LoadShadow(cfgFile string, flags *pflag.FlagSet) (ShadowConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":         uint64(2000),
		"out":                "./data/decisions.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"log-level":          "info",
	})
	if err != nil {
		return ShadowConfig{}, err
	}

	return ShadowConfig{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Pools:             getStringSlice(v, "pool"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		RedisAddr:         v.GetString("redis-addr"),
		RedisDB:           v.GetInt("redis-db"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

// ReplayConfig holds configuration for replaying a captured swap file.
type ReplayConfig struct {
	Input     string
	Out       string
	PGDSN     string
	BatchSize int
	LogLevel  string
}

// LoadReplay merges config file, environment variables, and flags into
// ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size": 1000,
		"out":        "./data/decisions.jsonl",
		"log-level":  "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Input:     v.GetString("in"),
		Out:       v.GetString("out"),
		PGDSN:     v.GetString("pg-dsn"),
		BatchSize: v.GetInt("batch-size"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
