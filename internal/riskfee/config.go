package riskfee

import "fmt"

// MaxFeeBps is the upper bound for any fee tier (100%).
const MaxFeeBps = 10000

// PoolConfig holds the per-pool fee tiers, risk thresholds, and scoring
// weights. A zero value is not usable; start from DefaultConfig.
type PoolConfig struct {
	LowFeeBps    uint32 `json:"low_fee_bps"`
	MediumFeeBps uint32 `json:"medium_fee_bps"`
	HighFeeBps   uint32 `json:"high_fee_bps"`

	ThresholdLow  uint32 `json:"threshold_low"`
	ThresholdHigh uint32 `json:"threshold_high"`

	WeightSize   uint32 `json:"weight_size"`
	WeightPrice  uint32 `json:"weight_price"`
	WeightSpikes uint32 `json:"weight_spikes"`

	// SpikeMultiple is the relative-size multiple above which a trade
	// counts as a spike.
	SpikeMultiple uint64 `json:"spike_multiple"`
	// AvgFloor is the minimum trailing average size. It keeps the
	// relative-size division well-defined.
	AvgFloor uint64 `json:"avg_floor"`
	// PriceScale divides the raw price delta before weighting, so the
	// score's sensitivity to price movement is a tunable rather than an
	// artifact of the host's price representation.
	PriceScale uint64 `json:"price_scale"`
}

// DefaultConfig returns the configuration applied to a pool on first
// observation.
func DefaultConfig() PoolConfig {
	return PoolConfig{
		LowFeeBps:     5,
		MediumFeeBps:  20,
		HighFeeBps:    60,
		ThresholdLow:  50,
		ThresholdHigh: 150,
		WeightSize:    50,
		WeightPrice:   30,
		WeightSpikes:  20,
		SpikeMultiple: 5,
		AvgFloor:      1,
		PriceScale:    1,
	}
}

// Validate checks the configuration invariants. Fee tiers must be strictly
// increasing and within [0, MaxFeeBps]; thresholds strictly increasing;
// divisors non-zero.
func (c PoolConfig) Validate() error {
	if c.HighFeeBps > MaxFeeBps {
		return fmt.Errorf("high fee must be <= %d bps, got %d", MaxFeeBps, c.HighFeeBps)
	}
	if c.LowFeeBps >= c.MediumFeeBps {
		return fmt.Errorf("low fee must be < medium fee, got %d >= %d", c.LowFeeBps, c.MediumFeeBps)
	}
	if c.MediumFeeBps >= c.HighFeeBps {
		return fmt.Errorf("medium fee must be < high fee, got %d >= %d", c.MediumFeeBps, c.HighFeeBps)
	}
	if c.ThresholdLow >= c.ThresholdHigh {
		return fmt.Errorf("threshold low must be < threshold high, got %d >= %d", c.ThresholdLow, c.ThresholdHigh)
	}
	if c.SpikeMultiple == 0 {
		return fmt.Errorf("spike multiple must be > 0")
	}
	if c.AvgFloor == 0 {
		return fmt.Errorf("avg floor must be > 0")
	}
	if c.PriceScale == 0 {
		return fmt.Errorf("price scale must be > 0")
	}
	return nil
}
