package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
)

// SwapDecoder turns V3 pool Swap logs into observations for the fee
// engine: the pool, the post-swap sqrt price, and the input amount.
type SwapDecoder struct {
	event abi.Event
}

// NewSwapDecoder builds a decoder from the Swap ABI.
func NewSwapDecoder() (*SwapDecoder, error) {
	parsed, err := SwapABI()
	if err != nil {
		return nil, err
	}
	return &SwapDecoder{event: parsed.Events["Swap"]}, nil
}

// Topic0 returns the Swap event signature hash for log filtering.
func (d *SwapDecoder) Topic0() string {
	return strings.ToLower(d.event.ID.Hex())
}

// CanDecode checks whether topic0 matches the Swap signature.
func (d *SwapDecoder) CanDecode(topic0 string) bool {
	return strings.EqualFold(topic0, d.event.ID.Hex())
}

// Decode converts a raw log into a SwapObservation.
func (d *SwapDecoder) Decode(chainID uint64, log types.Log, timestamp uint64) (model.SwapObservation, error) {
	if len(log.Topics) == 0 || log.Topics[0] != d.event.ID {
		return model.SwapObservation{}, fmt.Errorf("not a swap log")
	}

	values, err := d.event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.SwapObservation{}, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 5 {
		return model.SwapObservation{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.SwapObservation{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.SwapObservation{}, err
	}
	sqrtPrice, err := asBigInt(values[2])
	if err != nil {
		return model.SwapObservation{}, err
	}

	return model.SwapObservation{
		ChainID:      chainID,
		BlockNumber:  log.BlockNumber,
		TxHash:       log.TxHash.Hex(),
		LogIndex:     uint64(log.Index),
		Pool:         log.Address.Hex(),
		SqrtPriceX96: sqrtPrice.String(),
		AmountIn:     amountIn(amount0, amount1).String(),
		Timestamp:    timestamp,
	}, nil
}

// amountIn picks the side paid into the pool. In the V3 convention a
// positive amount flows into the pool; a swap has exactly one positive
// side, but a malformed log degrades to size zero rather than failing.
func amountIn(amount0, amount1 *big.Int) *big.Int {
	if amount0.Sign() > 0 {
		return amount0
	}
	if amount1.Sign() > 0 {
		return amount1
	}
	return big.NewInt(0)
}

func asBigInt(value interface{}) (*big.Int, error) {
	parsed, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected *big.Int, got %T", value)
	}
	return parsed, nil
}
