package optimizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OptimizationEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clob_engine_optimizer_events_total",
		Help: "Optimizer config field changes applied, labeled by field.",
	}, []string{"param"})

	OptimizerApplicationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clob_engine_optimizer_applications_total",
		Help: "Number of ticks in FULL_AUTO that applied at least one config change.",
	})

	VolatilityScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clob_engine_optimizer_volatility_score",
		Help: "Most recently observed (or cached/default) volatility score.",
	})
)
