package feedsim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"stocktail/config"
	"stocktail/internal/metrics"
	"stocktail/internal/model"
)

// Server ties the universe, the WebSocket hub and the REST surface together.
type Server struct {
	cfg *config.Sim
	log *slog.Logger
	met *metrics.Sim

	uni *Universe
	hub *hub

	httpSrv *http.Server
}

// NewServer builds the simulator from config. The universe is seeded
// immediately so the first broadcast is complete.
func NewServer(cfg *config.Sim, log *slog.Logger, met *metrics.Sim) *Server {
	s := &Server{
		cfg: cfg,
		log: log,
		met: met,
		uni: NewUniverse(cfg.Stocks, cfg.HistoryDays, time.Now().UnixNano()),
		hub: newHub(log, met),
	}

	if cfg.DBPath != "" {
		meta, err := LoadInstrumentMeta(cfg.DBPath)
		if err != nil {
			log.Warn("instrument seed unavailable, using generated names", "path", cfg.DBPath, "err", err)
		} else {
			s.uni.Rename(meta)
			log.Info("instrument seed loaded", "path", cfg.DBPath, "rows", len(meta))
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.handleWS)
	mux.HandleFunc("/api/stocks", s.handleStocks)
	mux.HandleFunc("/api/backtest", s.handleBacktest)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpSrv = &http.Server{Addr: cfg.Addr, Handler: mux}

	return s
}

// Run serves HTTP and drives the broadcast and bar-roll loops until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.broadcastLoop(ctx)
	if s.cfg.BarRollSec > 0 {
		go s.rollLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("feedsim listening", "addr", s.cfg.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// broadcastLoop ticks the universe and pushes the full array to all clients.
func (s *Server) broadcastLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.BroadcastMs) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.uni.Tick()
			payload, err := json.Marshal(s.uni.Snapshot(model.StockFilter{}))
			if err != nil {
				s.log.Error("broadcast marshal failed", "err", err)
				continue
			}
			s.hub.broadcast(payload)
			s.met.BroadcastsTotal.Inc()
		}
	}
}

// rollLoop settles forming bars on the configured interval. Wall-clock days
// are too slow for a demo feed, so the cadence is compressed.
func (s *Server) rollLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.BarRollSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.uni.RollBars()
			s.log.Info("bars rolled", "stocks", s.uni.Len())
		}
	}
}

// handleStocks answers GET /api/stocks with the filtered universe.
// min_market_cap / max_market_cap of 0 mean unbounded.
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := model.StockFilter{
		MinMarketCap: queryFloat(r, "min_market_cap"),
		MaxMarketCap: queryFloat(r, "max_market_cap"),
	}

	stocks := s.uni.Snapshot(filter)
	s.met.StockQueries.Inc()
	s.log.Info("stocks query", "min", filter.MinMarketCap, "max", filter.MaxMarketCap, "matched", len(stocks))

	writeJSON(w, stocks)
}

// handleBacktest answers POST /api/backtest with a simulated run.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params model.BacktestParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := RunBacktest(s.uni, params, time.Now().UnixNano())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.met.BacktestRuns.Inc()
	s.log.Info("backtest run", "strategy", params.StrategyType,
		"start", params.StartDate, "end", params.EndDate, "trades", len(result.Trades))

	writeJSON(w, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintln(w, `{"status":"ok","service":"feedsim"}`)
}

func queryFloat(r *http.Request, key string) float64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone at this point; nothing to do but note it.
		slog.Warn("response encode failed", "err", err)
	}
}
