package analyzer

import "github.com/polyhft/clob-engine/pkg/types"

// scoreBreakdown computes the four 0-25 axes from spec §4.4's table.
func scoreBreakdown(data *types.MarketData, volume float64) ScoreBreakdown {
	liquidity := 0.0
	if data.Market != nil {
		liquidity = data.Market.Liquidity
	}

	priceYes := (deref(data.BestBidYes) + deref(data.BestAskYes)) / 2

	return ScoreBreakdown{
		Spread:    spreadScore(deref(data.EffectiveSpread)),
		Volume:    volumeScore(volume),
		Liquidity: liquidityScore(liquidity),
		Balance:   balanceScore(priceYes),
	}
}

func spreadScore(spread float64) int {
	switch {
	case spread >= 0.10:
		return 25
	case spread >= 0.08:
		return 20
	case spread >= 0.06:
		return 15
	case spread >= 0.04:
		return 10
	default:
		return 5
	}
}

func volumeScore(volume float64) int {
	switch {
	case volume >= 100_000:
		return 25
	case volume >= 50_000:
		return 20
	case volume >= 20_000:
		return 15
	case volume >= 5_000:
		return 10
	default:
		return 5
	}
}

func liquidityScore(liquidity float64) int {
	switch {
	case liquidity >= 50_000:
		return 25
	case liquidity >= 20_000:
		return 20
	case liquidity >= 10_000:
		return 15
	case liquidity >= 5_000:
		return 10
	default:
		return 5
	}
}

func balanceScore(priceYes float64) int {
	delta := priceYes - 0.5
	if delta < 0 {
		delta = -delta
	}

	switch {
	case delta <= 0.10:
		return 25
	case delta <= 0.20:
		return 20
	case delta <= 0.30:
		return 15
	case delta <= 0.40:
		return 10
	default:
		return 5
	}
}

// finalScore collapses the 0-100 total into the 1-5 band from spec §4.4.
func finalScore(total int) int {
	switch {
	case total >= 80:
		return 5
	case total >= 60:
		return 4
	case total >= 40:
		return 3
	case total >= 20:
		return 2
	default:
		return 1
	}
}

// actionForScore maps the final 1-5 score to a TRADE/WATCH/SKIP action.
func actionForScore(score int) Action {
	switch {
	case score >= 4:
		return ActionTrade
	case score == 3:
		return ActionWatch
	default:
		return ActionSkip
	}
}
