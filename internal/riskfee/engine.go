package riskfee

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// PoolID identifies a tracked pool. V4 pool ids are 32 bytes; a V3 pool
// address left-pads into the same space via PoolIDFromAddress.
type PoolID = common.Hash

// PoolIDFromAddress converts a pool contract address into a PoolID.
func PoolIDFromAddress(addr common.Address) PoolID {
	return common.BytesToHash(addr.Bytes())
}

// Decision is the outcome of a pre-trade evaluation. The host applies
// FeeBps to the trade; Score and Tier are for observability.
type Decision struct {
	Score  uint32
	Tier   Tier
	FeeBps uint32
}

// Metrics is a read-only snapshot of a pool's running statistics.
type Metrics struct {
	LastPrice       *big.Int
	TrailingAvgSize *big.Int
	SpikeStreak     uint8
}

// Engine holds one risk record per tracked pool and turns trade anomaly
// into a fee surcharge. Records are created lazily on first observation and
// never deleted.
//
// The host must call Evaluate and then Settle back-to-back for each trade
// on a pool, with no other trade on that pool interleaved. The engine does
// not enforce that pairing and cannot detect a missing Settle. Distinct
// pools are independent; the mutex only guards the record map and keeps a
// config replacement atomic from a reader's point of view.
type Engine struct {
	mu     sync.RWMutex
	pools  map[PoolID]*poolState
	logger *zap.Logger
}

// NewEngine builds an empty engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		pools:  make(map[PoolID]*poolState),
		logger: logger,
	}
}

// Evaluate scores the proposed trade and returns the fee to charge. It does
// not advance any trade statistics, so repeated calls with the same inputs
// return the same decision. An unseen pool is seeded from this first call:
// its last price becomes currentPrice, which makes the price delta zero for
// the first evaluation.
func (e *Engine) Evaluate(id PoolID, currentPrice, tradeSize *big.Int) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.ensureLocked(id)
	if !st.seen() {
		st.observe(currentPrice, tradeSize)
	}

	score := st.score(currentPrice, tradeSize)
	tier := st.cfg.tierFor(score)
	return Decision{Score: score, Tier: tier, FeeBps: st.cfg.feeFor(tier)}
}

// Settle records a settled trade: the trailing average moves toward the
// trade size, the spike streak advances or resets, and the realized price
// becomes the pool's last price. It runs unconditionally for every settled
// trade.
func (e *Engine) Settle(id PoolID, realizedPrice, tradeSize *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.ensureLocked(id)
	if !st.seen() {
		// Settle without a prior Evaluate is a host contract violation,
		// but the update must stay total: treat it as the first
		// observation.
		st.observe(realizedPrice, tradeSize)
		return
	}
	st.advance(realizedPrice, tradeSize)
}

// SetConfig validates and atomically replaces the pool's configuration.
// On rejection the prior configuration is fully intact. The new values take
// effect on the next Evaluate, never retroactively. Caller authorization is
// the host's concern.
func (e *Engine) SetConfig(id PoolID, cfg PoolConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config rejected for pool %s: %w", id.Hex(), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.ensureLocked(id)
	st.cfg = cfg
	e.logger.Info("pool config replaced",
		zap.String("pool", id.Hex()),
		zap.Uint32("low_fee_bps", cfg.LowFeeBps),
		zap.Uint32("medium_fee_bps", cfg.MediumFeeBps),
		zap.Uint32("high_fee_bps", cfg.HighFeeBps),
		zap.Uint32("threshold_low", cfg.ThresholdLow),
		zap.Uint32("threshold_high", cfg.ThresholdHigh),
	)
	return nil
}

// Config returns the pool's current configuration. Unseen pools report the
// defaults with ok=false.
func (e *Engine) Config(id PoolID) (PoolConfig, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st, ok := e.pools[id]
	if !ok {
		return DefaultConfig(), false
	}
	return st.cfg, true
}

// MetricsFor returns a snapshot of the pool's running statistics. ok is
// false until the pool has its first observation.
func (e *Engine) MetricsFor(id PoolID) (Metrics, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st, ok := e.pools[id]
	if !ok || !st.seen() {
		return Metrics{}, false
	}
	return Metrics{
		LastPrice:       new(big.Int).Set(st.lastPrice),
		TrailingAvgSize: new(big.Int).Set(st.trailingAvgSize),
		SpikeStreak:     st.spikeStreak,
	}, true
}

// TrackedPools returns the ids of all pools with at least one observation.
func (e *Engine) TrackedPools() []PoolID {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]PoolID, 0, len(e.pools))
	for id, st := range e.pools {
		if st.seen() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *Engine) ensureLocked(id PoolID) *poolState {
	st, ok := e.pools[id]
	if !ok {
		st = newPoolState(DefaultConfig())
		e.pools[id] = st
		e.logger.Debug("pool tracked", zap.String("pool", id.Hex()))
	}
	return st
}
