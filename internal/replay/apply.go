package replay

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/riskfee"
)

// applyObservation runs one historical swap through the engine: evaluate,
// then settle. The Swap event carries the post-swap sqrt price, so the
// delta the evaluation sees is the movement since the pool's previous
// settle; that is the best pre-trade price available from logs alone.
func applyObservation(engine *riskfee.Engine, obs model.SwapObservation) (model.FeeDecision, error) {
	if !common.IsHexAddress(obs.Pool) {
		return model.FeeDecision{}, fmt.Errorf("invalid pool address: %s", obs.Pool)
	}
	id := riskfee.PoolIDFromAddress(common.HexToAddress(obs.Pool))

	price, err := parseUnsigned(obs.SqrtPriceX96, "sqrt_price_x96")
	if err != nil {
		return model.FeeDecision{}, err
	}
	size, err := parseUnsigned(obs.AmountIn, "amount_in")
	if err != nil {
		return model.FeeDecision{}, err
	}

	decision := engine.Evaluate(id, price, size)
	engine.Settle(id, price, size)

	return model.FeeDecision{
		ChainID:     obs.ChainID,
		Pool:        obs.Pool,
		BlockNumber: obs.BlockNumber,
		TxHash:      obs.TxHash,
		LogIndex:    obs.LogIndex,
		Price:       price.String(),
		TradeSize:   size.String(),
		RiskScore:   decision.Score,
		Tier:        string(decision.Tier),
		FeeBps:      decision.FeeBps,
		DecidedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func parseUnsigned(value, field string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %s", field, value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative %s: %s", field, value)
	}
	return parsed, nil
}

// snapshots captures the current engine state for every touched pool.
func snapshots(engine *riskfee.Engine, touched map[common.Address]struct{}) []model.PoolRiskSnapshot {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	out := make([]model.PoolRiskSnapshot, 0, len(touched))
	for pool := range touched {
		m, ok := engine.MetricsFor(riskfee.PoolIDFromAddress(pool))
		if !ok {
			continue
		}
		out = append(out, model.PoolRiskSnapshot{
			Pool:            pool.Hex(),
			LastPrice:       m.LastPrice.String(),
			TrailingAvgSize: m.TrailingAvgSize.String(),
			SpikeStreak:     m.SpikeStreak,
			UpdatedAt:       now,
		})
	}
	return out
}
