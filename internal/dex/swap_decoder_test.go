package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func buildSwapLog(t *testing.T, amount0, amount1, sqrtPrice int64) types.Log {
	t.Helper()

	parsed, err := SwapABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	data, err := parsed.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(amount0),
		big.NewInt(amount1),
		big.NewInt(sqrtPrice),
		big.NewInt(987654321),
		big.NewInt(-15),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")

	return types.Log{
		Address: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics: []common.Hash{
			parsed.Events["Swap"].ID,
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(recipient.Bytes()),
		},
		Data:        data,
		BlockNumber: 12345,
		TxHash:      common.HexToHash("0xdef"),
		Index:       1,
	}
}

func TestDecodeSwapToken0In(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	log := buildSwapLog(t, 2000, -1000, 123456789)
	obs, err := decoder.Decode(56, log, 1700000000)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}

	if obs.AmountIn != "2000" {
		t.Fatalf("amount in mismatch: %s", obs.AmountIn)
	}
	if obs.SqrtPriceX96 != "123456789" {
		t.Fatalf("sqrt price mismatch: %s", obs.SqrtPriceX96)
	}
	if obs.Pool != common.HexToAddress("0x1111111111111111111111111111111111111111").Hex() {
		t.Fatalf("pool mismatch: %s", obs.Pool)
	}
	if obs.ChainID != 56 || obs.BlockNumber != 12345 || obs.LogIndex != 1 {
		t.Fatalf("provenance mismatch: %+v", obs)
	}
}

func TestDecodeSwapToken1In(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	log := buildSwapLog(t, -500, 900, 42)
	obs, err := decoder.Decode(1, log, 0)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if obs.AmountIn != "900" {
		t.Fatalf("amount in mismatch: %s", obs.AmountIn)
	}
}

func TestDecodeRejectsForeignTopic(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	log := buildSwapLog(t, 1, -1, 1)
	log.Topics[0] = common.HexToHash("0xbeef")
	if _, err := decoder.Decode(1, log, 0); err == nil {
		t.Fatalf("expected rejection for foreign topic0")
	}
	if decoder.CanDecode("0xbeef") {
		t.Fatalf("CanDecode accepted a foreign topic0")
	}
}
