package riskfee

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var testPool = PoolID(common.HexToHash("0x01"))

// seedPool runs one trade through the engine so the pool has lastPrice and
// a trailing average to evaluate against.
func seedPool(e *Engine, id PoolID, price, size int64) {
	e.Evaluate(id, big.NewInt(price), big.NewInt(size))
	e.Settle(id, big.NewInt(price), big.NewInt(size))
}

func TestNormalTradeLowTier(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 1_000_000, 1000)

	d := e.Evaluate(testPool, big.NewInt(1_000_000), big.NewInt(100))
	if d.Score != 0 {
		t.Fatalf("expected score 0, got %d", d.Score)
	}
	if d.FeeBps != 5 || d.Tier != TierLow {
		t.Fatalf("expected low tier 5 bps, got %s %d bps", d.Tier, d.FeeBps)
	}
}

func TestOutlierHighTierAndUpdate(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 1_000_000, 1000)

	// 8x the average at a price 50 units away: 50*8 + 30*50 clamps to 255.
	d := e.Evaluate(testPool, big.NewInt(1_000_050), big.NewInt(8000))
	if d.Score != MaxScore {
		t.Fatalf("expected clamped score %d, got %d", MaxScore, d.Score)
	}
	if d.FeeBps != 60 || d.Tier != TierHigh {
		t.Fatalf("expected high tier 60 bps, got %s %d bps", d.Tier, d.FeeBps)
	}

	e.Settle(testPool, big.NewInt(1_000_050), big.NewInt(8000))
	m, ok := e.MetricsFor(testPool)
	if !ok {
		t.Fatalf("expected metrics after settle")
	}
	if m.SpikeStreak != 1 {
		t.Fatalf("expected spike streak 1, got %d", m.SpikeStreak)
	}
	if m.TrailingAvgSize.Cmp(big.NewInt(1700)) != 0 {
		t.Fatalf("expected trailing avg 1700, got %s", m.TrailingAvgSize)
	}
	if m.LastPrice.Cmp(big.NewInt(1_000_050)) != 0 {
		t.Fatalf("expected last price 1000050, got %s", m.LastPrice)
	}
}

func TestTierBoundariesTakeHigherTier(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 500, 1000)

	// relativeSize 1 -> score exactly thresholdLow (50).
	d := e.Evaluate(testPool, big.NewInt(500), big.NewInt(1000))
	if d.Score != 50 {
		t.Fatalf("expected score 50, got %d", d.Score)
	}
	if d.Tier != TierMedium {
		t.Fatalf("score at thresholdLow must take medium tier, got %s", d.Tier)
	}

	// relativeSize 3 -> score exactly thresholdHigh (150).
	d = e.Evaluate(testPool, big.NewInt(500), big.NewInt(3000))
	if d.Score != 150 {
		t.Fatalf("expected score 150, got %d", d.Score)
	}
	if d.Tier != TierHigh {
		t.Fatalf("score at thresholdHigh must take high tier, got %s", d.Tier)
	}
}

func TestEvaluateIdempotentWithoutSettle(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 900, 1000)

	first := e.Evaluate(testPool, big.NewInt(950), big.NewInt(4000))
	for i := 0; i < 5; i++ {
		again := e.Evaluate(testPool, big.NewInt(950), big.NewInt(4000))
		if again != first {
			t.Fatalf("evaluate not idempotent: %+v != %+v", again, first)
		}
	}
}

func TestFeeMonotoneInTradeSize(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 700, 1000)

	prev := uint32(0)
	for _, size := range []int64{0, 100, 1000, 2500, 3000, 8000, 1_000_000} {
		d := e.Evaluate(testPool, big.NewInt(700), big.NewInt(size))
		if d.FeeBps < prev {
			t.Fatalf("fee decreased from %d to %d at size %d", prev, d.FeeBps, size)
		}
		prev = d.FeeBps
	}
}

func TestFeeMonotoneInPriceDelta(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 10_000, 1000)

	prev := uint32(0)
	for _, price := range []int64{10_000, 10_001, 10_002, 10_005, 10_100} {
		d := e.Evaluate(testPool, big.NewInt(price), big.NewInt(0))
		if d.FeeBps < prev {
			t.Fatalf("fee decreased from %d to %d at price %d", prev, d.FeeBps, price)
		}
		prev = d.FeeBps
	}
}

func TestRepeatedSpikesKeepMemory(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 100, 1000)

	// Three consecutive trades above the spike multiple.
	for i := 0; i < 3; i++ {
		m, _ := e.MetricsFor(testPool)
		size := new(big.Int).Mul(m.TrailingAvgSize, big.NewInt(6))
		e.Evaluate(testPool, big.NewInt(100), size)
		e.Settle(testPool, big.NewInt(100), size)
	}

	m, _ := e.MetricsFor(testPool)
	if m.SpikeStreak != 3 {
		t.Fatalf("expected spike streak 3, got %d", m.SpikeStreak)
	}

	// Even a size-0 trade at an unchanged price now scores w3*3 = 60.
	d := e.Evaluate(testPool, m.LastPrice, big.NewInt(0))
	if d.Score != 60 {
		t.Fatalf("expected score 60 from streak alone, got %d", d.Score)
	}
	if d.Tier != TierMedium {
		t.Fatalf("expected medium tier from streak memory, got %s", d.Tier)
	}

	// A normal trade resets the streak.
	e.Settle(testPool, m.LastPrice, big.NewInt(10))
	m, _ = e.MetricsFor(testPool)
	if m.SpikeStreak != 0 {
		t.Fatalf("expected streak reset, got %d", m.SpikeStreak)
	}
}

func TestFirstObservationIgnoresAbsolutePrice(t *testing.T) {
	e := NewEngine(nil)

	huge := new(big.Int).Lsh(big.NewInt(1), 150) // far beyond any uint64 price
	first := e.Evaluate(testPool, huge, big.NewInt(100))

	other := PoolID(common.HexToHash("0x02"))
	second := e.Evaluate(other, big.NewInt(1), big.NewInt(100))

	if first != second {
		t.Fatalf("first observation must define deltaPrice=0: %+v != %+v", first, second)
	}
}

func TestScoreClampsInsteadOfWrapping(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 1000, 1000)

	// A trade size engineered to overflow any fixed-width accumulator must
	// clamp to the maximum score, not wrap into a cheap fee.
	size, _ := new(big.Int).SetString("10000000000000000000000000000000000000000", 10)
	d := e.Evaluate(testPool, big.NewInt(1000), size)
	if d.Score != MaxScore {
		t.Fatalf("expected score clamped to %d, got %d", MaxScore, d.Score)
	}
	if d.Tier != TierHigh || d.FeeBps != 60 {
		t.Fatalf("expected high tier, got %s %d bps", d.Tier, d.FeeBps)
	}
}

func TestTrailingAvgDecaysToFloorNeverZero(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 42, 1000)

	prev := big.NewInt(1000)
	for i := 0; i < 100; i++ {
		e.Settle(testPool, big.NewInt(42), big.NewInt(0))
		m, _ := e.MetricsFor(testPool)
		if m.TrailingAvgSize.Sign() <= 0 {
			t.Fatalf("trailing avg reached zero after %d settles", i+1)
		}
		if m.TrailingAvgSize.Cmp(prev) > 0 {
			t.Fatalf("trailing avg grew during decay: %s > %s", m.TrailingAvgSize, prev)
		}
		prev = m.TrailingAvgSize
	}

	m, _ := e.MetricsFor(testPool)
	if m.TrailingAvgSize.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected decay to floor 1, got %s", m.TrailingAvgSize)
	}
}

func TestSettleWithoutEvaluateStaysTotal(t *testing.T) {
	e := NewEngine(nil)

	e.Settle(testPool, big.NewInt(777), big.NewInt(500))
	m, ok := e.MetricsFor(testPool)
	if !ok {
		t.Fatalf("expected metrics after bare settle")
	}
	if m.LastPrice.Cmp(big.NewInt(777)) != 0 || m.TrailingAvgSize.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected seeded state: %+v", m)
	}
}

func TestSpikeStreakSaturates(t *testing.T) {
	e := NewEngine(nil)
	seedPool(e, testPool, 5, 1)

	for i := 0; i < 300; i++ {
		m, _ := e.MetricsFor(testPool)
		size := new(big.Int).Mul(m.TrailingAvgSize, big.NewInt(10))
		e.Settle(testPool, big.NewInt(5), size)
	}

	m, _ := e.MetricsFor(testPool)
	if m.SpikeStreak != 255 {
		t.Fatalf("expected streak saturated at 255, got %d", m.SpikeStreak)
	}
}

func TestTrackedPools(t *testing.T) {
	e := NewEngine(nil)
	if got := e.TrackedPools(); len(got) != 0 {
		t.Fatalf("expected no tracked pools, got %d", len(got))
	}

	seedPool(e, testPool, 1, 1)
	got := e.TrackedPools()
	if len(got) != 1 || got[0] != testPool {
		t.Fatalf("tracked pools mismatch: %v", got)
	}
}
