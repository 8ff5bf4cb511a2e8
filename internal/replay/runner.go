package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/chain"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/dex"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/riskfee"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/storage"
)

// RunConfig holds runtime settings for a shadow run.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Pools             []common.Address
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// ShadowRunner pulls historical Swap logs from the chain and runs each one
// through the fee engine, recording the fee that would have been charged.
type ShadowRunner struct {
	cfg        RunConfig
	chain      *chain.Client
	decoder    *dex.SwapDecoder
	engine     *riskfee.Engine
	sinks      []storage.Sink
	logger     *zap.Logger
	seen       map[string]struct{}
	touched    map[common.Address]struct{}
	checkpoint *CheckpointStore
}

// NewShadowRunner builds a runner with its dependencies.
func NewShadowRunner(
	cfg RunConfig,
	chainClient *chain.Client,
	engine *riskfee.Engine,
	sinks []storage.Sink,
	logger *zap.Logger,
) (*ShadowRunner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := dex.NewSwapDecoder()
	if err != nil {
		return nil, err
	}
	return &ShadowRunner{
		cfg:        cfg,
		chain:      chainClient,
		decoder:    decoder,
		engine:     engine,
		sinks:      sinks,
		logger:     logger,
		seen:       make(map[string]struct{}),
		touched:    make(map[common.Address]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}, nil
}

// Run executes the shadow loop over the configured block range.
func (r *ShadowRunner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.engine == nil {
		return fmt.Errorf("engine is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Pools) == 0 {
		return fmt.Errorf("at least one pool address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to shadow", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	swapTopic := common.HexToHash(r.decoder.Topic0())
	tierCounts := make(map[string]int)
	var total, failed int

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch swaps", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, swapTopic)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		decisions := make([]model.FeeDecision, 0, len(logs))
		for _, log := range logs {
			if r.isDuplicate(log) {
				continue
			}

			ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}

			obs, err := r.decoder.Decode(chainIDValue, log, ts)
			if err != nil {
				failed++
				r.logger.Warn("decode swap", zap.String("tx", log.TxHash.Hex()), zap.Error(err))
				continue
			}

			decision, err := applyObservation(r.engine, obs)
			if err != nil {
				failed++
				r.logger.Warn("apply swap", zap.String("tx", obs.TxHash), zap.Error(err))
				continue
			}

			r.touched[log.Address] = struct{}{}
			tierCounts[decision.Tier]++
			total++
			decisions = append(decisions, decision)
		}

		for _, sink := range r.sinks {
			if err := sink.PutDecisions(ctx, decisions); err != nil {
				return fmt.Errorf("store decisions: %w", err)
			}
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(blockRange.To); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete", zap.Int("decisions", len(decisions)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	if err := r.flushSnapshots(ctx); err != nil {
		return err
	}

	r.logger.Info("shadow complete",
		zap.Int("decisions", total),
		zap.Int("failed", failed),
		zap.Int("low", tierCounts[string(riskfee.TierLow)]),
		zap.Int("medium", tierCounts[string(riskfee.TierMedium)]),
		zap.Int("high", tierCounts[string(riskfee.TierHigh)]),
	)
	return nil
}

func (r *ShadowRunner) flushSnapshots(ctx context.Context) error {
	snaps := snapshots(r.engine, r.touched)
	if len(snaps) == 0 {
		return nil
	}
	for _, sink := range r.sinks {
		snapSink, ok := sink.(storage.SnapshotSink)
		if !ok {
			continue
		}
		if err := snapSink.PutSnapshots(ctx, snaps); err != nil {
			return fmt.Errorf("store snapshots: %w", err)
		}
	}
	return nil
}

func (r *ShadowRunner) filterLogsWithRetry(ctx context.Context, from, to uint64, topic0 common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, from, to, r.cfg.Pools, []common.Hash{topic0})
		return err
	})
	return logs, err
}

func (r *ShadowRunner) blockTimestampWithRetry(ctx context.Context, number uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, number)
		return err
	})
	return ts, err
}

func (r *ShadowRunner) isDuplicate(log types.Log) bool {
	key := fmt.Sprintf("%s:%d", log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[key]; ok {
		return true
	}
	r.seen[key] = struct{}{}
	return false
}
