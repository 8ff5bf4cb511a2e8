package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/feed"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/metrics"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/model"
	"github.com/kaream-badillo/ethglobal-uniswap-2025/internal/riskfee"
)

// Server exposes the fee engine to the host trade-execution system over
// HTTP: evaluate before a trade, settle after it, and config/metrics
// accessors. Config writes require the admin bearer token; everything else
// is open.
type Server struct {
	engine     *riskfee.Engine
	publisher  *feed.Publisher
	adminToken string
	logger     *zap.Logger
	registry   *prometheus.Registry
}

// New builds a server around the engine. publisher may be nil; adminToken
// empty disables config writes entirely.
func New(engine *riskfee.Engine, adminToken string, publisher *feed.Publisher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)
	return &Server{
		engine:     engine,
		publisher:  publisher,
		adminToken: adminToken,
		logger:     logger,
		registry:   registry,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))

	mux.HandleFunc("/v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("/v1/settle", s.handleSettle)
	mux.HandleFunc("/v1/config", s.handleConfig)
	mux.HandleFunc("/v1/pool", s.handlePool)

	return mux
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("server starting", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

type tradeRequest struct {
	Pool  string `json:"pool"`
	Price string `json:"price"`
	Size  string `json:"size"`
}

type evaluateResponse struct {
	FeeBps    uint32 `json:"fee_bps"`
	RiskScore uint32 `json:"risk_score"`
	Tier      string `json:"tier"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	id, price, size, err := parseTrade(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision := s.engine.Evaluate(id, price, size)
	metrics.Evaluations.WithLabelValues(string(decision.Tier)).Inc()
	metrics.RiskScores.Observe(float64(decision.Score))

	writeJSON(w, http.StatusOK, evaluateResponse{
		FeeBps:    decision.FeeBps,
		RiskScore: decision.Score,
		Tier:      string(decision.Tier),
	})
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	id, price, size, err := parseTrade(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.engine.Settle(id, price, size)
	metrics.Settles.Inc()

	if s.publisher != nil {
		if m, ok := s.engine.MetricsFor(id); ok {
			snap := model.PoolRiskSnapshot{
				Pool:            id.Hex(),
				LastPrice:       m.LastPrice.String(),
				TrailingAvgSize: m.TrailingAvgSize.String(),
				SpikeStreak:     m.SpikeStreak,
				UpdatedAt:       time.Now().UTC().Format(time.RFC3339Nano),
			}
			if err := s.publisher.PublishSnapshot(r.Context(), snap); err != nil {
				s.logger.Warn("publish snapshot", zap.String("pool", id.Hex()), zap.Error(err))
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	id, err := parsePoolID(r.URL.Query().Get("pool"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		cfg, _ := s.engine.Config(id)
		writeJSON(w, http.StatusOK, cfg)
	case http.MethodPut:
		if !s.authorized(r) {
			metrics.ConfigUpdates.WithLabelValues("unauthorized").Inc()
			httpError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		var cfg riskfee.PoolConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			httpError(w, http.StatusBadRequest, fmt.Sprintf("decode config: %v", err))
			return
		}
		if err := s.engine.SetConfig(id, cfg); err != nil {
			metrics.ConfigUpdates.WithLabelValues("rejected").Inc()
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		metrics.ConfigUpdates.WithLabelValues("accepted").Inc()
		w.WriteHeader(http.StatusNoContent)
	default:
		httpError(w, http.StatusMethodNotAllowed, "GET or PUT required")
	}
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	id, err := parsePoolID(r.URL.Query().Get("pool"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, ok := s.engine.MetricsFor(id)
	if !ok {
		httpError(w, http.StatusNotFound, "pool not observed yet")
		return
	}

	writeJSON(w, http.StatusOK, model.PoolRiskSnapshot{
		Pool:            id.Hex(),
		LastPrice:       m.LastPrice.String(),
		TrailingAvgSize: m.TrailingAvgSize.String(),
		SpikeStreak:     m.SpikeStreak,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	return header == "Bearer "+s.adminToken
}

func parseTrade(r *http.Request) (riskfee.PoolID, *big.Int, *big.Int, error) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return riskfee.PoolID{}, nil, nil, fmt.Errorf("decode request: %w", err)
	}

	id, err := parsePoolID(req.Pool)
	if err != nil {
		return riskfee.PoolID{}, nil, nil, err
	}
	price, err := parseAmount(req.Price, "price")
	if err != nil {
		return riskfee.PoolID{}, nil, nil, err
	}
	size, err := parseAmount(req.Size, "size")
	if err != nil {
		return riskfee.PoolID{}, nil, nil, err
	}
	return id, price, size, nil
}

// parsePoolID accepts a 32-byte pool id or a 20-byte pool address.
func parsePoolID(input string) (riskfee.PoolID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return riskfee.PoolID{}, fmt.Errorf("pool is required")
	}
	if common.IsHexAddress(input) {
		return riskfee.PoolIDFromAddress(common.HexToAddress(input)), nil
	}
	data, err := hexutil.Decode(input)
	if err != nil || len(data) != 32 {
		return riskfee.PoolID{}, fmt.Errorf("invalid pool id: %s", input)
	}
	return common.BytesToHash(data), nil
}

func parseAmount(value, field string) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %s", field, value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("%s must be non-negative: %s", field, value)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
