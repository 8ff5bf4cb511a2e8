package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
)

// Store provides Postgres persistence for fee decisions and pool risk
// snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutDecisions inserts a batch of fee decisions. Re-running a shadow range
// is a no-op per decision thanks to the conflict target.
func (s *Store) PutDecisions(ctx context.Context, decisions []model.FeeDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range decisions {
		batch.Queue(`
			INSERT INTO fee_decisions (
				chain_id, pool, block_number, tx_hash, log_index,
				price, trade_size, risk_score, tier, fee_bps, decided_at, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			int64(d.ChainID),
			d.Pool,
			int64(d.BlockNumber),
			d.TxHash,
			int64(d.LogIndex),
			d.Price,
			d.TradeSize,
			int64(d.RiskScore),
			d.Tier,
			int64(d.FeeBps),
			d.DecidedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range decisions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutSnapshots upserts the latest risk state per pool.
func (s *Store) PutSnapshots(ctx context.Context, snapshots []model.PoolRiskSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO pool_risk_state (
				pool, last_price, trailing_avg_size, spike_streak, updated_at, created_at
			) VALUES ($1,$2,$3,$4,$5,now())
			ON CONFLICT (pool)
			DO UPDATE SET
				last_price = EXCLUDED.last_price,
				trailing_avg_size = EXCLUDED.trailing_avg_size,
				spike_streak = EXCLUDED.spike_streak,
				updated_at = EXCLUDED.updated_at
		`,
			snap.Pool,
			snap.LastPrice,
			snap.TrailingAvgSize,
			int16(snap.SpikeStreak),
			snap.UpdatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
