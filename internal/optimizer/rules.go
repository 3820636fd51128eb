package optimizer

import (
	"time"

	"github.com/polyhft/clob-engine/internal/gabagool"
)

// clampFloat bounds v to [lo, hi].
func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// computeTarget derives a target GabagoolConfig from MarketConditions, per
// the directional, bounded rule table in spec §4.7. Every field is
// computed independently; the caller decides whether to apply the result.
func computeTarget(cond MarketConditions) gabagool.Config {
	return gabagool.Config{
		MaxPairCost:       targetMaxPairCost(cond),
		MinImprovement:    targetMinImprovement(cond),
		OrderSizeUSD:      targetOrderSizeUSD(cond),
		MaxPositionUSD:    targetMaxPositionUSD(cond),
		FirstBuyThreshold: targetFirstBuyThreshold(cond),
		RefreshInterval:   time.Duration(targetRefreshInterval(cond) * float64(time.Second)),
	}
}

func targetMaxPairCost(cond MarketConditions) float64 {
	v := 0.95
	switch {
	case cond.AvgSpread > 0.15:
		v -= 0.03
	case cond.AvgSpread < 0.06:
		v += 0.03
	}
	switch {
	case cond.Volatility > 70:
		v -= 0.02
	case cond.Volatility < 30:
		v += 0.01
	}
	return clampFloat(v, 0.90, 0.99)
}

func targetMinImprovement(cond MarketConditions) float64 {
	if cond.ActiveCount == 0 {
		return 0
	}
	var v float64
	switch {
	case cond.AvgPairCost > 0.98:
		v = 0.001
	case cond.AvgPairCost <= 0.94:
		v = 0.008
	default:
		// Linear interpolation between the two named anchors (0.98 -> 0.001,
		// 0.94 -> 0.008) for the unspecified band in between.
		span := 0.98 - 0.94
		frac := (0.98 - cond.AvgPairCost) / span
		v = 0.001 + frac*(0.008-0.001)
	}
	return clampFloat(v, 0, 0.010)
}

func targetOrderSizeUSD(cond MarketConditions) float64 {
	v := liquidityBand(cond.AvgLiquidity, 15, 25, 35, 50, 75)
	if cond.AvgPairCost < 0.96 && cond.ActiveCount > 0 {
		v *= 1.5
	}
	return clampFloat(v, 10, 100)
}

func targetMaxPositionUSD(cond MarketConditions) float64 {
	v := liquidityBand(cond.AvgLiquidity, 300, 500, 750, 1000, 1000)
	if cond.ActiveCount > 5 {
		v *= 0.7
	}
	return clampFloat(v, 200, 1000)
}

// liquidityBand maps avg_liquidity into one of five bands, mirroring the
// volume/liquidity banding already used by the analyzer's scoring table.
func liquidityBand(liquidity float64, veryLow, low, mid, high, veryHigh float64) float64 {
	switch {
	case liquidity >= 50_000:
		return veryHigh
	case liquidity >= 20_000:
		return high
	case liquidity >= 10_000:
		return mid
	case liquidity >= 5_000:
		return low
	default:
		return veryLow
	}
}

func targetFirstBuyThreshold(cond MarketConditions) float64 {
	v := 0.55
	switch {
	case cond.AvgSpread > 0.12:
		v = 0.50
	case cond.AvgSpread < 0.06:
		v = 0.60
	}
	switch {
	case cond.Volatility > 70:
		v -= 0.05
	case cond.Volatility < 30:
		v += 0.05
	}
	return clampFloat(v, 0.45, 0.65)
}

func targetRefreshInterval(cond MarketConditions) float64 {
	v := 1.0
	if cond.WSConnected {
		v = 1.5
	}
	if cond.Volatility > 70 || cond.ActiveCount > 3 {
		v = 0.5
	}
	return clampFloat(v, 0.5, 2.0)
}
