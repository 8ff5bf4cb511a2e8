package feed

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
)

func newTestPublisher(t *testing.T) (*Publisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	p := NewPublisher(Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = p.Close() })
	return p, mr
}

func TestPutDecisionsAppendsToStream(t *testing.T) {
	p, mr := newTestPublisher(t)

	decisions := []model.FeeDecision{
		{ChainID: 56, Pool: "0xaa", TxHash: "0x01", FeeBps: 5, Tier: "low"},
		{ChainID: 56, Pool: "0xaa", TxHash: "0x02", FeeBps: 60, Tier: "high", RiskScore: 255},
	}
	require.NoError(t, p.PutDecisions(context.Background(), decisions))

	entries, err := mr.Stream("feeguard:decisions")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestPublishSnapshotWritesHash(t *testing.T) {
	p, mr := newTestPublisher(t)

	snap := model.PoolRiskSnapshot{
		Pool:            "0xbb",
		LastPrice:       "79228162514264337593543950336",
		TrailingAvgSize: "1700",
		SpikeStreak:     2,
		UpdatedAt:       "2025-01-01T00:00:00Z",
	}
	require.NoError(t, p.PublishSnapshot(context.Background(), snap))

	require.Equal(t, "1700", mr.HGet("feeguard:pool:0xbb", "trailing_avg_size"))
	require.Equal(t, "2", mr.HGet("feeguard:pool:0xbb", "spike_streak"))
}
