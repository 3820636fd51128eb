// Package analyzer scores MarketData against TradingParams and emits
// ranked Opportunity values. The analyzer is stateless except for a
// monotonically increasing opportunity counter.
package analyzer

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/polyhft/clob-engine/pkg/types"
)

// Analyzer is a pure MarketData x TradingParams -> Opportunity scorer.
type Analyzer struct {
	counter uint64
}

// New creates an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Count returns the number of opportunities emitted so far.
func (a *Analyzer) Count() uint64 {
	return atomic.LoadUint64(&a.counter)
}

// Analyze scores one MarketData record. It returns (nil, false) when the
// market is filtered out (not valid, spread out of band, or under the
// volume floor) rather than emitting a SKIP — SKIP is reserved for markets
// that pass the filters but score poorly.
func (a *Analyzer) Analyze(data *types.MarketData, params types.TradingParams) (*Opportunity, bool) {
	if !data.IsValid {
		MarketsFilteredTotal.WithLabelValues("not_valid").Inc()
		return nil, false
	}

	effectiveSpread := *data.EffectiveSpread
	if effectiveSpread < params.MinSpread || effectiveSpread > params.MaxSpread {
		MarketsFilteredTotal.WithLabelValues("spread_out_of_band").Inc()
		return nil, false
	}

	volume := 0.0
	if data.Market != nil {
		volume = data.Market.Volume
	}
	if volume < params.MinVolumeUSD {
		MarketsFilteredTotal.WithLabelValues("below_min_volume").Inc()
		return nil, false
	}

	breakdown := scoreBreakdown(data, volume)
	score := finalScore(breakdown.total())
	action := actionForScore(score)

	opp := &Opportunity{
		ID:         newOpportunityID(),
		MarketID:   data.Market.ID,
		Question:   data.Market.Question,
		DetectedAt: time.Now(),

		BestBidYes: deref(data.BestBidYes),
		BestAskYes: deref(data.BestAskYes),
		BestBidNo:  deref(data.BestBidNo),
		BestAskNo:  deref(data.BestAskNo),

		SpreadYes:       deref(data.SpreadYes),
		SpreadNo:        deref(data.SpreadNo),
		EffectiveSpread: effectiveSpread,

		RecommendedYesPrice: types.ClipPrice(deref(data.BestBidYes) + params.OrderOffset),
		RecommendedNoPrice:  types.ClipPrice(deref(data.BestBidNo) + params.OrderOffset),

		Breakdown: breakdown,
		Score:     score,
		Action:    action,
	}

	atomic.AddUint64(&a.counter, 1)
	OpportunitiesEmittedTotal.WithLabelValues(string(action)).Inc()
	ScoreDistribution.Observe(float64(score))

	return opp, true
}

// AnalyzeAll scores every record and returns the opportunities in ranked
// order: (score desc, effective_spread desc).
func (a *Analyzer) AnalyzeAll(records []*types.MarketData, params types.TradingParams) []*Opportunity {
	opportunities := make([]*Opportunity, 0, len(records))
	for _, data := range records {
		if opp, ok := a.Analyze(data, params); ok {
			opportunities = append(opportunities, opp)
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		if opportunities[i].Score != opportunities[j].Score {
			return opportunities[i].Score > opportunities[j].Score
		}
		return opportunities[i].EffectiveSpread > opportunities[j].EffectiveSpread
	})

	return opportunities
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
