package storage

import (
	"context"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
)

// Sink receives batches of fee decisions.
type Sink interface {
	PutDecisions(ctx context.Context, decisions []model.FeeDecision) error
}

// SnapshotSink additionally receives pool risk snapshots. Sinks that can
// persist state (Postgres) implement it; append-only sinks need not.
type SnapshotSink interface {
	PutSnapshots(ctx context.Context, snapshots []model.PoolRiskSnapshot) error
}
