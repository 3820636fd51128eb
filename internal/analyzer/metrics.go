package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpportunitiesEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clob_engine_analyzer_opportunities_emitted_total",
			Help: "Total number of opportunities emitted by the analyzer, by action",
		},
		[]string{"action"},
	)

	MarketsFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clob_engine_analyzer_markets_filtered_total",
			Help: "Total number of markets filtered out before scoring, by reason",
		},
		[]string{"reason"},
	)

	ScoreDistribution = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clob_engine_analyzer_score_distribution",
		Help:    "Distribution of final 1-5 opportunity scores",
		Buckets: []float64{1, 2, 3, 4, 5},
	})
)
