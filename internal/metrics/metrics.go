// Package metrics exposes Prometheus instrumentation and a combined
// metrics/health HTTP server for both the watch client and the feed
// simulator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Watch holds the watch client's metrics: the push-channel path and the
// reconcile/series pipeline.
type Watch struct {
	Reconnects       prometheus.Counter
	BatchesTotal     prometheus.Counter
	RecordsTotal     prometheus.Counter
	MalformedRecords prometheus.Counter
	DroppedBatches   prometheus.Counter
	BarsUpserted     prometheus.Counter
	RejectedBars     prometheus.Counter
	ReconcileDur     prometheus.Histogram
	VisibleStocks    prometheus.Gauge
}

// NewWatch returns unregistered watch client metrics. Call MustRegister
// once in the binary; tests construct freely.
func NewWatch() *Watch {
	m := &Watch{
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watch_ws_reconnects_total",
			Help: "Total push-channel reconnection attempts",
		}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watch_batches_total",
			Help: "Total update batches received from the push channel",
		}),
		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watch_records_total",
			Help: "Total partial-instrument records decoded",
		}),
		MalformedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watch_malformed_records_total",
			Help: "Broadcast records dropped at the decode boundary",
		}),
		DroppedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watch_dropped_batches_total",
			Help: "Batches dropped because the consumer fell behind",
		}),
		BarsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watch_bars_upserted_total",
			Help: "Bars inserted or replaced in the series store",
		}),
		RejectedBars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watch_rejected_bars_total",
			Help: "Bars rejected at the series store boundary",
		}),
		ReconcileDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "watch_reconcile_duration_seconds",
			Help:    "FilteredSet reconcile latency per batch",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		}),
		VisibleStocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watch_visible_stocks",
			Help: "Instruments in the current filtered set",
		}),
	}

	return m
}

// MustRegister registers all watch collectors with reg.
func (m *Watch) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.Reconnects, m.BatchesTotal, m.RecordsTotal, m.MalformedRecords,
		m.DroppedBatches, m.BarsUpserted, m.RejectedBars, m.ReconcileDur,
		m.VisibleStocks,
	)
}

// Sim holds the feed simulator's metrics.
type Sim struct {
	BroadcastsTotal prometheus.Counter
	ClientsGauge    prometheus.Gauge
	DroppedSends    prometheus.Counter
	StockQueries    prometheus.Counter
	BacktestRuns    prometheus.Counter
}

// NewSim returns unregistered simulator metrics.
func NewSim() *Sim {
	m := &Sim{
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedsim_broadcasts_total",
			Help: "Full-universe broadcasts sent",
		}),
		ClientsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedsim_clients",
			Help: "Connected WebSocket clients",
		}),
		DroppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedsim_dropped_sends_total",
			Help: "Broadcasts dropped for slow clients",
		}),
		StockQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedsim_stock_queries_total",
			Help: "Filter query requests served",
		}),
		BacktestRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedsim_backtest_runs_total",
			Help: "Backtest requests served",
		}),
	}

	return m
}

// MustRegister registers all simulator collectors with reg.
func (m *Sim) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.BroadcastsTotal, m.ClientsGauge, m.DroppedSends,
		m.StockQueries, m.BacktestRuns,
	)
}
