// Package marketcache holds the in-memory mapping from market to MarketData
// that sits between the scanner/gateway and every downstream consumer
// (analyzer, Gabagool, trade manager).
package marketcache

import (
	"sync"
	"time"

	"github.com/polyhft/clob-engine/pkg/types"
	"go.uber.org/zap"
)

// Cache is the Market Cache described in spec §4.2: a map of market_id to
// MarketData plus a reverse token_id index, with a publish channel for
// downstream subscribers. All writes to a given MarketData happen while
// holding mu, and Recompute runs before the lock is released, so no
// subscriber ever observes a partially updated record.
type Cache struct {
	mu      sync.RWMutex
	markets map[string]*types.MarketData // market_id -> data
	tokens  map[string]types.TokenRef    // token_id -> market_id/side

	subscribers   []chan *types.MarketData
	subscriberCap int

	logger *zap.Logger
}

// Config configures a Cache.
type Config struct {
	Logger *zap.Logger

	// SubscriberBufferSize bounds each subscriber channel; publish is
	// non-blocking and drops on overflow rather than stalling the writer.
	SubscriberBufferSize int
}

// New creates an empty Market Cache.
func New(cfg Config) *Cache {
	bufSize := cfg.SubscriberBufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		markets:       make(map[string]*types.MarketData),
		tokens:        make(map[string]types.TokenRef),
		subscriberCap: bufSize,
		logger:        logger,
	}
}

// Subscribe returns a channel receiving every MarketData publish. Callers
// must keep draining it; a slow subscriber only ever drops its own updates.
func (c *Cache) Subscribe() <-chan *types.MarketData {
	ch := make(chan *types.MarketData, c.subscriberCap)
	c.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.mu.Unlock()
	return ch
}

// Upsert registers or updates a market's identity/metadata fields, created
// by the scanner on discovery and mutated on every refresh. Price/book
// fields are left untouched if the market already exists; only Market
// itself is replaced.
func (c *Cache) Upsert(market *types.Market) *types.MarketData {
	c.mu.Lock()

	data, exists := c.markets[market.ID]
	if !exists {
		data = &types.MarketData{Market: market}
		c.markets[market.ID] = data
	} else {
		data.Market = market
	}
	data.Recompute()

	c.reindexLocked(market)
	MarketsTracked.Set(float64(len(c.markets)))
	c.recountValidLocked()

	snapshot := data.Clone()
	c.mu.Unlock()

	UpdatesTotal.WithLabelValues("discovery").Inc()
	c.publish(snapshot)
	return snapshot
}

// reindexLocked rebuilds the token->market/side entries for one market.
// Must be called with mu held.
func (c *Cache) reindexLocked(market *types.Market) {
	for _, tok := range market.Tokens {
		side := types.SideYes
		if tok.Outcome == "No" || tok.Outcome == "NO" {
			side = types.SideNo
		}
		c.tokens[tok.TokenID] = types.TokenRef{MarketID: market.ID, Side: side}
	}
}

// Remove deletes a market and its token index entries, when the exchange
// reports it inactive.
func (c *Cache) Remove(marketID string) {
	c.mu.Lock()
	data, ok := c.markets[marketID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.markets, marketID)
	if data.Market != nil {
		for _, tok := range data.Market.Tokens {
			delete(c.tokens, tok.TokenID)
		}
	}
	MarketsTracked.Set(float64(len(c.markets)))
	c.recountValidLocked()
	c.mu.Unlock()
}

// UpdateTop applies a best-bid/ask update for one side of one token,
// recomputes derived fields, and publishes the result. source labels the
// metric ("rest" or "ws") per the last-writer-wins merge rule in spec §4.3.
func (c *Cache) UpdateTop(tokenID string, bid, ask *float64, source string) {
	c.mu.Lock()

	ref, ok := c.tokens[tokenID]
	if !ok {
		c.mu.Unlock()
		return
	}
	data, ok := c.markets[ref.MarketID]
	if !ok {
		c.mu.Unlock()
		return
	}

	// Only the sides actually reported are overwritten; a single-sided
	// price update must not clobber the other side's last known value.
	switch ref.Side {
	case types.SideYes:
		if bid != nil {
			data.BestBidYes = bid
		}
		if ask != nil {
			data.BestAskYes = ask
		}
	case types.SideNo:
		if bid != nil {
			data.BestBidNo = bid
		}
		if ask != nil {
			data.BestAskNo = ask
		}
	}
	data.LastUpdate = time.Now()
	data.Recompute()

	c.recountValidLocked()
	snapshot := data.Clone()
	c.mu.Unlock()

	UpdatesTotal.WithLabelValues(source).Inc()
	c.publish(snapshot)
}

// Get returns a cloned snapshot of one market's data.
func (c *Cache) Get(marketID string) (*types.MarketData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.markets[marketID]
	if !ok {
		return nil, false
	}
	return data.Clone(), true
}

// TokenRef resolves a token id to its owning market and side.
func (c *Cache) TokenRef(tokenID string) (types.TokenRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.tokens[tokenID]
	return ref, ok
}

// All returns cloned snapshots of every cached market.
func (c *Cache) All() []*types.MarketData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*types.MarketData, 0, len(c.markets))
	for _, data := range c.markets {
		out = append(out, data.Clone())
	}
	return out
}

// Valid returns cloned snapshots of every market currently satisfying
// is_valid; this is the feed the analyzer consumes.
func (c *Cache) Valid() []*types.MarketData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*types.MarketData, 0, len(c.markets))
	for _, data := range c.markets {
		if data.IsValid {
			out = append(out, data.Clone())
		}
	}
	return out
}

// Len returns the number of tracked markets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markets)
}

// recountValidLocked refreshes the ValidMarketsTracked gauge. Must be
// called with mu held.
func (c *Cache) recountValidLocked() {
	valid := 0
	for _, data := range c.markets {
		if data.IsValid {
			valid++
		}
	}
	ValidMarketsTracked.Set(float64(valid))
}

// publish fans a snapshot out to every subscriber, non-blocking.
func (c *Cache) publish(snapshot *types.MarketData) {
	c.mu.RLock()
	subs := c.subscribers
	c.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
			PublishDroppedTotal.Inc()
			c.logger.Warn("market-cache-publish-dropped",
				zap.String("market-id", snapshot.Market.ID))
		}
	}
}
