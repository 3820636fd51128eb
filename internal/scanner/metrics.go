package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MarketsDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_scanner_markets_discovered_total",
		Help: "Total number of markets discovered by the scanner",
	})

	MarketsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_scanner_markets_evicted_total",
		Help: "Total number of markets removed from the cache after the exchange reported them inactive",
	})

	DiscoveryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_scanner_discovery_errors_total",
		Help: "Total number of discovery cycle errors",
	})

	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clob_engine_scanner_cycle_duration_seconds",
		Help:    "Duration of one refresh cycle",
		Buckets: prometheus.DefBuckets,
	})

	CycleDurationEMASeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_scanner_cycle_duration_ema_seconds",
		Help: "Exponential moving average (alpha=0.1) of cycle duration",
	})

	CycleErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_scanner_cycle_errors_total",
		Help: "Total number of refresh cycle errors",
	})

	ConsecutiveCycleErrors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_scanner_consecutive_cycle_errors",
		Help: "Current count of consecutive refresh cycle errors",
	})

	OrderbookFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clob_engine_scanner_orderbook_fetches_total",
			Help: "Total number of orderbook fetches issued by the scanner",
		},
		[]string{"outcome"},
	)

	WSReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_scanner_ws_reconnect_attempts_total",
		Help: "Total number of WebSocket reconnect attempts by the scanner",
	})

	WSRESTOnlyMode = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_scanner_ws_rest_only_mode",
		Help: "REST-only mode flag; no code path sets it, so it reads 0",
	})
)
