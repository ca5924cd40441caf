// cmd/watch — Terminal stock dashboard.
// Holds a filtered snapshot of the simulated market, keeps it current over
// an auto-reconnecting push channel, and renders per-stock candlestick
// charts plus a one-shot backtest view.
//
// Config (env vars):
//
//	WATCH_FEED_URL      — push channel endpoint   (default: "ws://localhost:8080/ws")
//	WATCH_API_BASE      — REST base URL           (default: "http://localhost:8080")
//	WATCH_LOG_PATH      — log file, TUI owns stdout (default: "watch.log")
//	WATCH_METRICS_ADDR  — /metrics + /healthz listener, empty disables
//	WATCH_CHART_HEIGHT  — chart rows per card     (default: "10")
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"stocktail/config"
	"stocktail/internal/apiclient"
	"stocktail/internal/logger"
	"stocktail/internal/metrics"
	"stocktail/internal/stream"
	"stocktail/internal/watch"
)

func main() {
	cfg := config.LoadWatch()
	log := logger.InitFile(cfg.LogPath, "watch", slog.LevelInfo)
	log.Info("starting watch dashboard", "feed", cfg.FeedURL, "api", cfg.APIBase)

	met := metrics.NewWatch()
	met.MustRegister(prometheus.DefaultRegisterer)
	health := metrics.NewHealthStatus()

	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, health)
		metricsSrv.Start()
		log.Info("metrics listening", "addr", cfg.MetricsAddr)
	}

	mgr := stream.New(cfg.FeedURL, log)
	mgr.OnReconnect = func() {
		met.Reconnects.Inc()
		health.SetWSConnected(false)
	}
	mgr.OnBatch = func(records, malformed int) {
		met.MalformedRecords.Add(float64(malformed))
		health.SetWSConnected(true)
		health.SetLastMsgTime(time.Now())
	}
	mgr.OnDroppedBatch = met.DroppedBatches.Inc

	app := watch.New(cfg, log, met, mgr, apiclient.New(cfg.APIBase))

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		os.Exit(1)
	}

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		metricsSrv.Stop(ctx)
		cancel()
	}
	log.Info("watch dashboard exited")
}
