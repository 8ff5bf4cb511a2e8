package riskfee

import "math/big"

// MaxScore is the upper bound of the clamped risk score range.
const MaxScore = 255

// Tier labels a fee tier.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// score computes the weighted risk score for a proposed trade against the
// current state. Accumulation happens in big.Int and the result is clamped,
// never wrapped: wrapping would let an attacker engineer an overflow into a
// falsely low score.
func (s *poolState) score(currentPrice, size *big.Int) uint32 {
	rel := s.relativeSize(size)

	delta := new(big.Int).Sub(currentPrice, s.lastPrice)
	delta.Abs(delta)
	delta.Div(delta, new(big.Int).SetUint64(s.cfg.PriceScale))

	total := new(big.Int).Mul(rel, new(big.Int).SetUint64(uint64(s.cfg.WeightSize)))
	total.Add(total, new(big.Int).Mul(delta, new(big.Int).SetUint64(uint64(s.cfg.WeightPrice))))
	total.Add(total, new(big.Int).SetUint64(uint64(s.cfg.WeightSpikes)*uint64(s.spikeStreak)))

	if total.Cmp(big.NewInt(MaxScore)) > 0 {
		return MaxScore
	}
	return uint32(total.Uint64())
}

// tierFor maps a score onto a tier. Boundaries are half-open on the low
// side: a score exactly equal to a threshold takes the higher tier.
func (c PoolConfig) tierFor(score uint32) Tier {
	switch {
	case score >= c.ThresholdHigh:
		return TierHigh
	case score >= c.ThresholdLow:
		return TierMedium
	default:
		return TierLow
	}
}

// feeFor returns the fee in basis points for a tier.
func (c PoolConfig) feeFor(tier Tier) uint32 {
	switch tier {
	case TierHigh:
		return c.HighFeeBps
	case TierMedium:
		return c.MediumFeeBps
	default:
		return c.LowFeeBps
	}
}
