package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/polyhft/clob-engine/pkg/types"
)

// FakeGateway is a deterministic, in-memory Gateway test double. Tests seed
// markets and book levels directly, then drive price/book updates by calling
// Push*; no network or goroutines are involved.
type FakeGateway struct {
	mu sync.Mutex

	markets map[string]*types.Market // by conditionID
	books   map[string]*bookEntry    // by tokenID

	priceHandlers []PriceHandler
	bookHandlers  []BookHandler

	orders map[string]*PlacedOrder

	// ListMarketsErr, when set, is returned verbatim from ListMarkets.
	ListMarketsErr error

	nextOrderID int
}

type bookEntry struct {
	bid *types.BookTop
	ask *types.BookTop
}

// NewFakeGateway returns an empty FakeGateway ready for seeding.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		markets: make(map[string]*types.Market),
		books:   make(map[string]*bookEntry),
		orders:  make(map[string]*PlacedOrder),
	}
}

// SeedMarket registers a market so ListMarkets/GetMarket can return it.
func (f *FakeGateway) SeedMarket(m *types.Market) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets[m.ConditionID] = m
}

// RemoveMarket drops a seeded market, so a subsequent GetMarket reports it
// gone (nil, nil), standing in for an exchange 404.
func (f *FakeGateway) RemoveMarket(conditionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.markets, conditionID)
}

// Markets exposes the seeded market map by conditionID, for tests that need
// to flip a market's Active flag in place.
func (f *FakeGateway) Markets() map[string]*types.Market {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*types.Market, len(f.markets))
	for k, v := range f.markets {
		out[k] = v
	}
	return out
}

// SeedBook sets the initial top of book for a token.
func (f *FakeGateway) SeedBook(tokenID string, bid, ask *types.BookTop) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books[tokenID] = &bookEntry{bid: bid, ask: ask}
}

// PushBook updates a token's top of book and notifies every subscriber,
// standing in for a "book" WS event.
func (f *FakeGateway) PushBook(tokenID string, bid, ask *types.BookTop) {
	f.mu.Lock()
	f.books[tokenID] = &bookEntry{bid: bid, ask: ask}
	bookHandlers := append([]BookHandler(nil), f.bookHandlers...)
	priceHandlers := append([]PriceHandler(nil), f.priceHandlers...)
	f.mu.Unlock()

	var bids, asks []types.BookTop
	if bid != nil {
		bids = []types.BookTop{*bid}
	}
	if ask != nil {
		asks = []types.BookTop{*ask}
	}
	for _, h := range bookHandlers {
		h(tokenID, bids, asks)
	}
	if ask != nil {
		for _, h := range priceHandlers {
			h(tokenID, ask.Price)
		}
	}
}

// PushPrice notifies subscribers of a single-sided price update, standing in
// for a "price_change" WS event.
func (f *FakeGateway) PushPrice(tokenID string, price float64) {
	f.mu.Lock()
	priceHandlers := append([]PriceHandler(nil), f.priceHandlers...)
	f.mu.Unlock()

	for _, h := range priceHandlers {
		h(tokenID, price)
	}
}

func (f *FakeGateway) ListMarkets(ctx context.Context, query string, limit int) ([]*types.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListMarketsErr != nil {
		return nil, f.ListMarketsErr
	}

	out := make([]*types.Market, 0, len(f.markets))
	for _, m := range f.markets {
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *FakeGateway) GetMarket(ctx context.Context, conditionID string) (*types.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.markets[conditionID]
	if !ok {
		return nil, nil
	}
	return m, nil
}

func (f *FakeGateway) GetOrderBook(ctx context.Context, tokenID string) (*types.BookTop, *types.BookTop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.books[tokenID]
	if !ok {
		return nil, nil, nil
	}
	return entry.bid, entry.ask, nil
}

func (f *FakeGateway) Subscribe(ctx context.Context, tokenIDs []string, onPrice PriceHandler, onBook BookHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if onPrice != nil {
		f.priceHandlers = append(f.priceHandlers, onPrice)
	}
	if onBook != nil {
		f.bookHandlers = append(f.bookHandlers, onBook)
	}
	return nil
}

func (f *FakeGateway) PlaceLimitOrder(ctx context.Context, tokenID string, side OrderSide, price, size float64) (*PlacedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextOrderID++
	order := &PlacedOrder{
		OrderID:    fmt.Sprintf("fake-order-%d", f.nextOrderID),
		Status:     "FILLED",
		Price:      price,
		Size:       size,
		SizeFilled: size,
	}
	f.orders[order.OrderID] = order
	return order, nil
}

// SetOrderFill overrides a placed order's fill state, letting tests simulate
// a partial fill that completes (or times out) across repeated GetOrder
// calls from a FillTracker.
func (f *FakeGateway) SetOrderFill(orderID string, status string, sizeFilled float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return
	}
	order.Status = status
	order.SizeFilled = sizeFilled
}

func (f *FakeGateway) GetOrder(ctx context.Context, orderID string) (*OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return nil, &Error{Kind: KindStatus4xx, StatusCode: 404, Err: fmt.Errorf("order %s not found", orderID)}
	}
	return &OrderStatus{
		OrderID:    order.OrderID,
		Status:     order.Status,
		Price:      order.Price,
		Size:       order.Size,
		SizeFilled: order.SizeFilled,
	}, nil
}

func (f *FakeGateway) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return &Error{Kind: KindStatus4xx, StatusCode: 404, Err: fmt.Errorf("order %s not found", orderID)}
	}
	order.Status = "CANCELLED"
	return nil
}

func (f *FakeGateway) CancelAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range f.orders {
		o.Status = "CANCELLED"
	}
	return nil
}

var _ Gateway = (*FakeGateway)(nil)
