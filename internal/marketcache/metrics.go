package marketcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsTracked tracks the number of markets currently cached.
	MarketsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_market_cache_markets_tracked",
		Help: "Number of markets currently held in the market cache",
	})

	// ValidMarketsTracked tracks the number of markets with is_valid MarketData.
	ValidMarketsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_market_cache_valid_markets_tracked",
		Help: "Number of markets whose MarketData currently satisfies is_valid",
	})

	// UpdatesTotal counts mutation entry-point calls by source.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clob_engine_market_cache_updates_total",
			Help: "Total number of MarketData updates applied",
		},
		[]string{"source"},
	)

	// PublishDroppedTotal counts subscriber notifications dropped because the
	// subscriber channel was full.
	PublishDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_market_cache_publish_dropped_total",
		Help: "Total number of on_market_update notifications dropped due to a full subscriber channel",
	})

	// OrderbookCacheHitsTotal / OrderbookCacheMissesTotal track the 500ms TTL
	// orderbook cache sitting between scanner and gateway.
	OrderbookCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_orderbook_cache_hits_total",
		Help: "Total number of orderbook TTL cache hits",
	})

	OrderbookCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_orderbook_cache_misses_total",
		Help: "Total number of orderbook TTL cache misses",
	})
)
