package trademanager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_trademanager_trades_opened_total",
		Help: "Trades opened via enter_trade.",
	})

	TradesClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clob_engine_trademanager_trades_closed_total",
		Help: "Trades closed, labeled by close reason.",
	}, []string{"reason"})

	OpenTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_trademanager_open_trades",
		Help: "Currently ACTIVE trades.",
	})

	ExitLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clob_engine_trademanager_exit_latency_seconds",
		Help:    "Time from price event receipt to exit-condition close, event-driven path only.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5},
	})

	RealizedPnLCumulative = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_trademanager_realized_pnl_cumulative",
		Help: "Cumulative realized PnL across all closed trades (USD); can decrease.",
	})

	PersistenceQueueDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_trademanager_persistence_queue_dropped_total",
		Help: "Trade-close persistence writes dropped because the writer queue was full.",
	})
)
