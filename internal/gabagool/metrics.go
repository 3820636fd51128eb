package gabagool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clob_engine_gabagool_orders_placed_total",
		Help: "Gabagool legs placed, labeled by side.",
	}, []string{"side"})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clob_engine_gabagool_orders_rejected_total",
		Help: "Gabagool candidate buys rejected before placement, labeled by reason.",
	}, []string{"reason"})

	LockedProfitEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_gabagool_locked_profit_events_total",
		Help: "Number of times a position transitioned into a locked (guaranteed-profit) state.",
	})

	ActivePositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_gabagool_active_positions",
		Help: "Markets with an open, not-yet-locked pair position.",
	})

	LockedPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_gabagool_locked_positions",
		Help: "Markets whose pair position is locked-in-profit.",
	})

	PairCostHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clob_engine_gabagool_pair_cost",
		Help:    "Distribution of pair_cost at the moment a leg is placed.",
		Buckets: []float64{0.80, 0.85, 0.90, 0.92, 0.94, 0.96, 0.97, 0.98, 0.99, 1.0},
	})

	FillMismatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clob_engine_gabagool_fill_mismatch_total",
		Help: "Orders whose post-trade fill verification found a short fill or timeout, labeled by side.",
	}, []string{"side"})
)
