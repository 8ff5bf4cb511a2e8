package riskfee

import (
	"math"
	"math/big"
)

// poolState is the running risk memory for a single pool. Prices and sizes
// are opaque unsigned integers from the host; the engine only subtracts,
// compares, and divides them.
type poolState struct {
	cfg PoolConfig

	// lastPrice and trailingAvgSize stay nil until the pool's first
	// observation, so a config write may precede any trade.
	lastPrice       *big.Int
	trailingAvgSize *big.Int
	spikeStreak     uint8
}

func newPoolState(cfg PoolConfig) *poolState {
	return &poolState{cfg: cfg}
}

func (s *poolState) seen() bool {
	return s.lastPrice != nil
}

// observe seeds the state from the first trade on the pool. The trailing
// average starts at the trade size, floored so the relative-size division
// is always defined.
func (s *poolState) observe(price, size *big.Int) {
	avg := new(big.Int).Set(size)
	floor := new(big.Int).SetUint64(s.cfg.AvgFloor)
	if avg.Cmp(floor) < 0 {
		avg.Set(floor)
	}
	s.lastPrice = new(big.Int).Set(price)
	s.trailingAvgSize = avg
	s.spikeStreak = 0
}

// relativeSize is tradeSize / trailingAvgSize, truncated.
func (s *poolState) relativeSize(size *big.Int) *big.Int {
	return new(big.Int).Div(size, s.trailingAvgSize)
}

// advance applies the post-trade update: the trailing average moves 9:1
// toward history, the spike streak increments (saturating) or resets, and
// the last price becomes the realized price. It runs for every settled
// trade; the statistics characterize typical behavior, they do not punish.
func (s *poolState) advance(realizedPrice, size *big.Int) {
	rel := s.relativeSize(size)

	next := new(big.Int).Mul(s.trailingAvgSize, big.NewInt(9))
	next.Add(next, size)
	next.Div(next, big.NewInt(10))
	floor := new(big.Int).SetUint64(s.cfg.AvgFloor)
	if next.Cmp(floor) < 0 {
		next.Set(floor)
	}
	s.trailingAvgSize = next

	if rel.Cmp(new(big.Int).SetUint64(s.cfg.SpikeMultiple)) > 0 {
		if s.spikeStreak < math.MaxUint8 {
			s.spikeStreak++
		}
	} else {
		s.spikeStreak = 0
	}

	s.lastPrice = new(big.Int).Set(realizedPrice)
}
