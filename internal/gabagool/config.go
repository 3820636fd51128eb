package gabagool

import (
	"fmt"
	"time"
)

// Config is the GabagoolConfig enumerated in spec §4.5.
type Config struct {
	MaxPairCost        float64       `json:"max_pair_cost"`
	MinImprovement     float64       `json:"min_improvement"`
	OrderSizeUSD       float64       `json:"order_size_usd"`
	MaxPositionUSD     float64       `json:"max_position_usd"`
	FirstBuyThreshold  float64       `json:"first_buy_threshold"`
	RefreshInterval    time.Duration `json:"refresh_interval"`
}

// DefaultConfig returns the spec's defaults.
func DefaultConfig() Config {
	return Config{
		MaxPairCost:       0.98,
		MinImprovement:    0.005,
		OrderSizeUSD:      25,
		MaxPositionUSD:    500,
		FirstBuyThreshold: 0.60,
		RefreshInterval:   time.Second,
	}
}

// Validate rejects an out-of-range config; the caller must preserve the
// previous config on error (spec §7).
func (c Config) Validate() error {
	if c.MaxPairCost <= 0 || c.MaxPairCost > 1 {
		return fmt.Errorf("max_pair_cost must be in (0, 1], got %v", c.MaxPairCost)
	}
	if c.MinImprovement < 0 {
		return fmt.Errorf("min_improvement must be >= 0, got %v", c.MinImprovement)
	}
	if c.OrderSizeUSD <= 0 {
		return fmt.Errorf("order_size_usd must be > 0, got %v", c.OrderSizeUSD)
	}
	if c.MaxPositionUSD <= 0 {
		return fmt.Errorf("max_position_usd must be > 0, got %v", c.MaxPositionUSD)
	}
	if c.FirstBuyThreshold <= 0 || c.FirstBuyThreshold >= 1 {
		return fmt.Errorf("first_buy_threshold must be in (0, 1), got %v", c.FirstBuyThreshold)
	}
	return nil
}
