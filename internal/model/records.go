package model

// SwapObservation is a decoded swap reduced to what the fee engine
// consumes: an opaque price, an opaque trade size, and provenance. Big
// numbers are string-encoded so JSONL files survive any integer width.
type SwapObservation struct {
	ChainID      uint64 `json:"chain_id"`
	BlockNumber  uint64 `json:"block_number"`
	TxHash       string `json:"tx_hash"`
	LogIndex     uint64 `json:"log_index"`
	Pool         string `json:"pool"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	AmountIn     string `json:"amount_in"`
	Timestamp    uint64 `json:"timestamp"`
}

// FeeDecision records one evaluate/settle round for a trade.
type FeeDecision struct {
	ChainID     uint64 `json:"chain_id"`
	Pool        string `json:"pool"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Price       string `json:"price"`
	TradeSize   string `json:"trade_size"`
	RiskScore   uint32 `json:"risk_score"`
	Tier        string `json:"tier"`
	FeeBps      uint32 `json:"fee_bps"`
	DecidedAt   string `json:"decided_at"`
}

// PoolRiskSnapshot is a pool's running statistics at a point in time, for
// persistence and read APIs.
type PoolRiskSnapshot struct {
	Pool            string `json:"pool"`
	LastPrice       string `json:"last_price"`
	TrailingAvgSize string `json:"trailing_avg_size"`
	SpikeStreak     uint8  `json:"spike_streak"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}
