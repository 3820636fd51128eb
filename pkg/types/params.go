package types

import "fmt"

// TradingParams is the spec §6 enumerated configuration record shared by
// the analyzer, trade manager, and control plane.
type TradingParams struct {
	MinSpread              float64  `json:"min_spread"`
	MaxSpread              float64  `json:"max_spread"`
	MinVolumeUSD           float64  `json:"min_volume_usd"`
	MinDepthUSD            float64  `json:"min_depth_usd"`
	MaxDurationHours       float64  `json:"max_duration_hours"`
	CapitalPerTrade        float64  `json:"capital_per_trade"`
	MaxOpenPositions       int      `json:"max_open_positions"`
	MaxTotalExposure       float64  `json:"max_total_exposure"`
	OrderOffset            float64  `json:"order_offset"`
	PositionTimeoutSeconds int      `json:"position_timeout_seconds"` // 0 = none
	MinTimeBetweenTrades   float64  `json:"min_time_between_trades"`
	TargetAssets           []string `json:"target_assets,omitempty"`
	AutoTradingEnabled     bool     `json:"auto_trading_enabled"`
	RequireConfirmation    bool     `json:"require_confirmation"`
}

// DefaultTradingParams mirrors the bands used throughout spec §4.4/§4.7.
func DefaultTradingParams() TradingParams {
	return TradingParams{
		MinSpread:              0.04,
		MaxSpread:              0.25,
		MinVolumeUSD:           5000,
		MinDepthUSD:            100,
		MaxDurationHours:       24 * 7,
		CapitalPerTrade:        25,
		MaxOpenPositions:       10,
		MaxTotalExposure:       500,
		OrderOffset:            0.01,
		PositionTimeoutSeconds: 0,
		MinTimeBetweenTrades:   1,
		AutoTradingEnabled:     false,
		RequireConfirmation:    true,
	}
}

// Validate checks the hard invariants from spec §6. An invalid config is
// rejected at update time; the caller must keep the previous config.
func (p TradingParams) Validate() error {
	if p.MinSpread < 0.01 {
		return fmt.Errorf("min_spread must be >= 0.01, got %v", p.MinSpread)
	}
	if p.MinSpread > p.MaxSpread {
		return fmt.Errorf("min_spread (%v) must be <= max_spread (%v)", p.MinSpread, p.MaxSpread)
	}
	if p.MaxOpenPositions < 0 {
		return fmt.Errorf("max_open_positions must be >= 0, got %v", p.MaxOpenPositions)
	}
	return nil
}

// Warnings reports soft violations that do not reject the update, per
// spec §6's "capital_per_trade * max_open_positions <= max_total_exposure
// else warning".
func (p TradingParams) Warnings() []string {
	var warnings []string
	if p.CapitalPerTrade*float64(p.MaxOpenPositions) > p.MaxTotalExposure {
		warnings = append(warnings, fmt.Sprintf(
			"capital_per_trade (%v) * max_open_positions (%v) exceeds max_total_exposure (%v)",
			p.CapitalPerTrade, p.MaxOpenPositions, p.MaxTotalExposure))
	}
	return warnings
}

// ClipPrice clips a price into the exchange's valid range [0.01, 0.99].
func ClipPrice(price float64) float64 {
	if price < 0.01 {
		return 0.01
	}
	if price > 0.99 {
		return 0.99
	}
	return price
}
