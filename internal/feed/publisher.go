package feed

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
)

// Options configures the Redis connection and key layout.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
	// Stream receives one entry per fee decision.
	Stream string
	// SnapshotPrefix namespaces the per-pool latest-state hashes.
	SnapshotPrefix string
}

// Publisher pushes fee decisions and pool snapshots into Redis for
// off-host consumers (dashboards, alerting).
type Publisher struct {
	rdb    *redis.Client
	stream string
	snapNS string
}

func NewPublisher(opts Options) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	stream := opts.Stream
	if stream == "" {
		stream = "feeguard:decisions"
	}
	snapNS := opts.SnapshotPrefix
	if snapNS == "" {
		snapNS = "feeguard:pool:"
	}
	return &Publisher{rdb: rdb, stream: stream, snapNS: snapNS}
}

func (p *Publisher) Close() error {
	return p.rdb.Close()
}

// PutDecisions appends each decision to the decision stream. It satisfies
// the replay sink interface so shadow runs can feed dashboards directly.
func (p *Publisher) PutDecisions(ctx context.Context, decisions []model.FeeDecision) error {
	for _, d := range decisions {
		err := p.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]interface{}{
				"chain_id":   d.ChainID,
				"pool":       d.Pool,
				"block":      d.BlockNumber,
				"tx_hash":    d.TxHash,
				"log_index":  d.LogIndex,
				"price":      d.Price,
				"trade_size": d.TradeSize,
				"risk_score": d.RiskScore,
				"tier":       d.Tier,
				"fee_bps":    d.FeeBps,
				"decided_at": d.DecidedAt,
			},
		}).Err()
		if err != nil {
			return err
		}
	}
	return nil
}

// PublishSnapshot overwrites the pool's latest-state hash.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap model.PoolRiskSnapshot) error {
	key := p.snapNS + snap.Pool
	return p.rdb.HSet(ctx, key, map[string]interface{}{
		"last_price":        snap.LastPrice,
		"trailing_avg_size": snap.TrailingAvgSize,
		"spike_streak":      snap.SpikeStreak,
		"updated_at":        snap.UpdatedAt,
	}).Err()
}
