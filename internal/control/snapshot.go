package control

import (
	"time"

	"github.com/polyhft/clob-engine/internal/analyzer"
	"github.com/polyhft/clob-engine/internal/gabagool"
	"github.com/polyhft/clob-engine/internal/optimizer"
	"github.com/polyhft/clob-engine/internal/scanner"
	"github.com/polyhft/clob-engine/internal/trademanager"
)

// recentEventsCap bounds how much optimizer history rides along on every
// snapshot push; the optimizer itself keeps the full 100-event history.
const recentEventsCap = 20

// ScannerStats is the scanner_stats field of the spec §4.8 snapshot.
type ScannerStats struct {
	State            scanner.State
	CycleDurationEMA float64
	KnownMarkets     int
}

// TradeStats is the trade_stats field of the spec §4.8 snapshot.
type TradeStats struct {
	OpenCount int
	Trades    []trademanager.Snapshot
}

// OptimizerStatus is the optimizer_status field of the spec §4.8 snapshot.
type OptimizerStatus struct {
	Mode         optimizer.Mode
	Conditions   optimizer.MarketConditions
	Suggestion   gabagool.Config
	RecentEvents []optimizer.OptimizationEvent
}

// Snapshot is the aggregated status pushed to UI subscribers at ~2Hz, per
// spec §4.8: {scanner_stats, analyzer_top_N, gabagool_stats, trade_stats,
// optimizer_status}.
type Snapshot struct {
	Timestamp time.Time

	ScannerStats    ScannerStats
	AnalyzerTopN    []*analyzer.Opportunity
	GabagoolState   gabagool.State
	GabagoolStats   gabagool.Stats
	TradeStats      TradeStats
	OptimizerStatus OptimizerStatus
}

// Snapshot assembles the current status snapshot. It is cheap enough to
// call at the ~2Hz push rate: every field it reads is already maintained
// incrementally by its owning component.
func (c *Controller) Snapshot() Snapshot {
	trades := c.trades.ListOpen()

	events := c.optimizer.Events()
	if len(events) > recentEventsCap {
		events = events[len(events)-recentEventsCap:]
	}
	conditions, suggestion := c.optimizer.Suggestion()

	return Snapshot{
		Timestamp: time.Now(),
		ScannerStats: ScannerStats{
			State:            c.scanner.State(),
			CycleDurationEMA: c.scanner.CycleDurationEMA(),
			KnownMarkets:     c.cache.Len(),
		},
		AnalyzerTopN:  c.ListOpportunities(defaultTopN),
		GabagoolState: c.gabagool.State(),
		GabagoolStats: c.gabagool.Snapshot(),
		TradeStats: TradeStats{
			OpenCount: len(trades),
			Trades:    trades,
		},
		OptimizerStatus: OptimizerStatus{
			Mode:         c.optimizer.Mode(),
			Conditions:   conditions,
			Suggestion:   suggestion,
			RecentEvents: events,
		},
	}
}
