// Package gateway abstracts REST+WS exchange calls behind a narrow
// capability interface, so the decision core (scanner, gabagool,
// trademanager) never talks to the exchange directly.
package gateway

import (
	"context"
	"time"

	"github.com/polyhft/clob-engine/pkg/types"
)

// OrderSide is the side of a limit order.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// PlacedOrder is the result of a successful order placement.
type PlacedOrder struct {
	OrderID string
	Status  string
	Price   float64
	Size    float64

	// SizeFilled tracks how much of the order has matched so far.
	// FakeGateway mutates it to simulate partial-then-full fills.
	SizeFilled float64
}

// OrderStatus is a point-in-time snapshot of an order's fill state, returned
// by GetOrder. Mirrors the CLOB's GET /order response fields the fill
// tracker cares about.
type OrderStatus struct {
	OrderID    string
	Status     string
	Price      float64
	Size       float64
	SizeFilled float64
}

// Gateway is the capability interface the core depends on. Implementations
// hold no per-market state and perform no business logic.
type Gateway interface {
	// ListMarkets searches for markets matching a keyword query.
	ListMarkets(ctx context.Context, query string, limit int) ([]*types.Market, error)

	// GetMarket fetches full market details by condition ID. Returns
	// (nil, nil) on a 404 — absent is not an error.
	GetMarket(ctx context.Context, conditionID string) (*types.Market, error)

	// GetOrderBook fetches the top of book for a token.
	GetOrderBook(ctx context.Context, tokenID string) (*types.BookTop, *types.BookTop, error)

	// Subscribe opens (or reuses) a WebSocket stream for the given tokens.
	// onPrice/onBook are invoked from the gateway's own goroutine(s); callers
	// must not block inside them for long.
	Subscribe(ctx context.Context, tokenIDs []string, onPrice PriceHandler, onBook BookHandler) error

	// PlaceLimitOrder places a GTC/FOK limit order for size shares at price.
	PlaceLimitOrder(ctx context.Context, tokenID string, side OrderSide, price, size float64) (*PlacedOrder, error)

	// CancelOrder cancels a single open order.
	CancelOrder(ctx context.Context, orderID string) error

	// CancelAll cancels every open order. Only invoked explicitly — stopping
	// a component never triggers this implicitly.
	CancelAll(ctx context.Context) error

	// GetOrder fetches the current fill state of a previously placed order.
	GetOrder(ctx context.Context, orderID string) (*OrderStatus, error)
}

// PriceHandler receives a single-token price update from the WS stream.
type PriceHandler func(tokenID string, price float64)

// BookHandler receives a full top-of-book update for a token.
type BookHandler func(tokenID string, bids, asks []types.BookTop)

// Timeouts bundles the connect/read/write/pool-wait budgets spec.md §5
// requires of every gateway implementation.
type Timeouts struct {
	Connect  time.Duration
	Read     time.Duration
	Write    time.Duration
	PoolWait time.Duration
}

// DefaultTimeouts matches spec.md §5.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:  2 * time.Second,
		Read:     3 * time.Second,
		Write:    2 * time.Second,
		PoolWait: 2 * time.Second,
	}
}
