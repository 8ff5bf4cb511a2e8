package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/riskfee"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/storage"
)

// Replayer runs a captured swap JSONL file through the fee engine.
type Replayer struct {
	engine    *riskfee.Engine
	sinks     []storage.Sink
	logger    *zap.Logger
	batchSize int
}

func NewReplayer(engine *riskfee.Engine, sinks []storage.Sink, batchSize int, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Replayer{engine: engine, sinks: sinks, logger: logger, batchSize: batchSize}
}

// Run replays every observation in the input file, in file order.
func (r *Replayer) Run(ctx context.Context, inputPath string) error {
	if r.engine == nil {
		return fmt.Errorf("engine is nil")
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	touched := make(map[common.Address]struct{})
	tierCounts := make(map[string]int)
	batch := make([]model.FeeDecision, 0, r.batchSize)
	var total, applied, failed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var obs model.SwapObservation
		if err := json.Unmarshal(line, &obs); err != nil {
			failed++
			r.logger.Warn("decode observation", zap.Error(err))
			continue
		}

		decision, err := applyObservation(r.engine, obs)
		if err != nil {
			failed++
			r.logger.Warn("apply observation", zap.String("tx", obs.TxHash), zap.Error(err))
			continue
		}

		touched[common.HexToAddress(obs.Pool)] = struct{}{}
		tierCounts[decision.Tier]++
		applied++
		batch = append(batch, decision)

		if len(batch) >= r.batchSize {
			if err := r.flush(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := r.flush(ctx, batch); err != nil {
		return err
	}

	snaps := snapshots(r.engine, touched)
	for _, sink := range r.sinks {
		if snapSink, ok := sink.(storage.SnapshotSink); ok {
			if err := snapSink.PutSnapshots(ctx, snaps); err != nil {
				return fmt.Errorf("store snapshots: %w", err)
			}
		}
	}

	r.logger.Info("replay complete",
		zap.Int("lines", total),
		zap.Int("applied", applied),
		zap.Int("failed", failed),
		zap.Int("low", tierCounts[string(riskfee.TierLow)]),
		zap.Int("medium", tierCounts[string(riskfee.TierMedium)]),
		zap.Int("high", tierCounts[string(riskfee.TierHigh)]),
	)
	return nil
}

func (r *Replayer) flush(ctx context.Context, batch []model.FeeDecision) error {
	if len(batch) == 0 {
		return nil
	}
	for _, sink := range r.sinks {
		if err := sink.PutDecisions(ctx, batch); err != nil {
			return fmt.Errorf("store decisions: %w", err)
		}
	}
	return nil
}
