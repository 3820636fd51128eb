package control

import (
	"context"
	"fmt"

	"github.com/polyhft/clob-engine/internal/gateway"
	"github.com/polyhft/clob-engine/internal/trademanager"
	"github.com/polyhft/clob-engine/pkg/types"
)

// EnterTradeRequest is the enter_trade(market, side, price, size, [sl, tp,
// trailing, timeout]) command from spec §6.
type EnterTradeRequest struct {
	MarketID string
	Side     types.Side
	Price    float64
	Size     float64

	StopLoss        *float64
	TakeProfit      *float64
	TrailingStopPct *float64
	TimeoutSeconds  int64
}

// EnterTrade places the entry order through the gateway and, on success,
// hands the fill off to the trade manager for exit monitoring. A disabled
// circuit breaker refuses the request outright, since EnterTrade only ever
// adds exposure, never reduces it.
func (c *Controller) EnterTrade(ctx context.Context, req EnterTradeRequest) (*trademanager.Trade, error) {
	if c.breaker != nil && !c.breaker.IsEnabled() {
		return nil, fmt.Errorf("control: circuit breaker disabled, refusing new trade")
	}

	data, ok := c.cache.Get(req.MarketID)
	if !ok || data.Market == nil {
		return nil, fmt.Errorf("control: unknown market %q", req.MarketID)
	}

	outcome := "YES"
	if req.Side == types.SideNo {
		outcome = "NO"
	}
	token := data.Market.GetTokenByOutcome(outcome)
	if token == nil {
		return nil, fmt.Errorf("control: market %q has no %s token", req.MarketID, outcome)
	}

	if _, err := c.gw.PlaceLimitOrder(ctx, token.TokenID, gateway.OrderBuy, req.Price, req.Size); err != nil {
		return nil, fmt.Errorf("control: place entry order: %w", err)
	}

	trade := c.trades.EnterTrade(trademanager.OpenParams{
		MarketID:        req.MarketID,
		TokenID:         token.TokenID,
		Side:            req.Side,
		EntryPrice:      req.Price,
		Size:            req.Size,
		StopLoss:        req.StopLoss,
		TakeProfit:      req.TakeProfit,
		TrailingStopPct: req.TrailingStopPct,
		MaxDurationSecs: req.TimeoutSeconds,
		AutoSLTP:        req.StopLoss == nil && req.TakeProfit == nil,
	})

	return trade, nil
}

// ExitTrade is the exit_trade(trade_id, price) command from spec §6.
func (c *Controller) ExitTrade(ctx context.Context, tradeID string, price float64) error {
	return c.trades.ExitTrade(ctx, tradeID, price)
}

// ListPositions is the list_positions command from spec §6.
func (c *Controller) ListPositions() []trademanager.Snapshot {
	return c.trades.ListOpen()
}
