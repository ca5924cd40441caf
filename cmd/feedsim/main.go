// cmd/feedsim — Demo market-data origin.
// Serves a simulated stock universe over WebSocket broadcast plus the
// /api/stocks and /api/backtest REST endpoints the dashboard uses.
//
// Config (env vars):
//
//	SIM_ADDR          — HTTP + WebSocket listen address (default: ":8080")
//	SIM_METRICS_ADDR  — Prometheus listener, empty disables (default: ":9090")
//	SIM_STOCKS        — universe size                (default: "100")
//	SIM_HISTORY_DAYS  — seeded bars per instrument   (default: "30")
//	SIM_BROADCAST_MS  — broadcast interval           (default: "2000")
//	SIM_BAR_ROLL_SEC  — session roll interval, 0 = never
//	SIM_DB_PATH       — optional SQLite instrument seed
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"stocktail/config"
	"stocktail/internal/feedsim"
	"stocktail/internal/logger"
	"stocktail/internal/metrics"
)

func main() {
	cfg := config.LoadSim()
	log := logger.Init("feedsim", slog.LevelInfo)
	log.Info("starting feed simulator", "addr", cfg.Addr,
		"stocks", cfg.Stocks, "history_days", cfg.HistoryDays)

	met := metrics.NewSim()
	met.MustRegister(prometheus.DefaultRegisterer)

	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, nil)
		metricsSrv.Start()
		log.Info("metrics listening", "addr", cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := feedsim.NewServer(cfg, log, met)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}

	if metricsSrv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		metricsSrv.Stop(shutCtx)
		cancel()
	}
	log.Info("feed simulator exited")
}
