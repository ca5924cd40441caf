// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Watch holds configuration for the watch dashboard (the client).
type Watch struct {
	// Push channel and one-shot query endpoints.
	FeedURL string // WATCH_FEED_URL, e.g. "ws://localhost:8080/ws"
	APIBase string // WATCH_API_BASE, e.g. "http://localhost:8080"

	// The TUI owns stdout, so logs go to a file.
	LogPath string // WATCH_LOG_PATH

	// Prometheus /metrics + /healthz listener. Empty disables.
	MetricsAddr string // WATCH_METRICS_ADDR

	// Chart card height in terminal rows (plot area, excluding the header).
	ChartHeight int // WATCH_CHART_HEIGHT
}

// Sim holds configuration for the feed simulator (the origin server stand-in).
type Sim struct {
	Addr        string // SIM_ADDR, HTTP + WebSocket listen address
	MetricsAddr string // SIM_METRICS_ADDR, empty disables

	Stocks      int    // SIM_STOCKS, universe size
	HistoryDays int    // SIM_HISTORY_DAYS, seeded bars per instrument
	BroadcastMs int    // SIM_BROADCAST_MS, full-universe broadcast interval
	BarRollSec  int    // SIM_BAR_ROLL_SEC, 0 = never append new bars
	DBPath      string // SIM_DB_PATH, optional SQLite instrument seed
}

// LoadWatch reads watch configuration with sensible defaults.
func LoadWatch() *Watch {
	return &Watch{
		FeedURL:     getEnv("WATCH_FEED_URL", "ws://localhost:8080/ws"),
		APIBase:     getEnv("WATCH_API_BASE", "http://localhost:8080"),
		LogPath:     getEnv("WATCH_LOG_PATH", "watch.log"),
		MetricsAddr: getEnv("WATCH_METRICS_ADDR", ""),
		ChartHeight: getEnvInt("WATCH_CHART_HEIGHT", 10),
	}
}

// LoadSim reads simulator configuration with sensible defaults.
func LoadSim() *Sim {
	return &Sim{
		Addr:        getEnv("SIM_ADDR", ":8080"),
		MetricsAddr: getEnv("SIM_METRICS_ADDR", ":9090"),
		Stocks:      getEnvInt("SIM_STOCKS", 100),
		HistoryDays: getEnvInt("SIM_HISTORY_DAYS", 30),
		BroadcastMs: getEnvInt("SIM_BROADCAST_MS", 2000),
		BarRollSec:  getEnvInt("SIM_BAR_ROLL_SEC", 0),
		DBPath:      getEnv("SIM_DB_PATH", ""),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
