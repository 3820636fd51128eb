package optimizer

import (
	"context"

	"github.com/polyhft/clob-engine/internal/gabagool"
	"github.com/polyhft/clob-engine/internal/marketcache"
)

// MarketConditions is the snapshot the optimizer's rule table evaluates
// each tick, per spec §4.7 step 1.
type MarketConditions struct {
	AvgSpread     float64
	AvgLiquidity  float64
	Volatility    float64
	ActiveCount   int
	AvgPairCost   float64
	WSConnected   bool
}

// collect gathers MarketConditions from the Market Cache, the Gabagool
// engine's stats, and the volatility client, averaging only over
// IsValid markets per spec's "averages over markets with is_valid".
func collect(ctx context.Context, cache *marketcache.Cache, engine *gabagool.Engine, vol *VolatilityClient, wsConnected bool) MarketConditions {
	valid := cache.Valid()

	var spreadSum, liquiditySum float64
	for _, data := range valid {
		if data.EffectiveSpread != nil {
			spreadSum += *data.EffectiveSpread
		}
		if data.Market != nil {
			liquiditySum += data.Market.Liquidity
		}
	}

	cond := MarketConditions{
		Volatility:  vol.Get(ctx),
		WSConnected: wsConnected,
	}
	VolatilityScore.Set(cond.Volatility)
	if n := len(valid); n > 0 {
		cond.AvgSpread = spreadSum / float64(n)
		cond.AvgLiquidity = liquiditySum / float64(n)
	}

	stats := engine.Snapshot()
	cond.ActiveCount = stats.ActiveCount
	cond.AvgPairCost = stats.AvgActivePairCost

	return cond
}
