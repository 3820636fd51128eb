package marketcache

import (
	"fmt"
	"time"

	"github.com/polyhft/clob-engine/pkg/cache"
	"github.com/polyhft/clob-engine/pkg/types"
)

// DefaultOrderbookTTL is the ~500ms window spec §4.2 allows between a
// scanner read and a redundant gateway fetch of the same token's top of book.
const DefaultOrderbookTTL = 500 * time.Millisecond

// OrderbookTTLCache sits between the scanner and the gateway, keyed by
// token_id, serving the last-fetched top of book within DefaultOrderbookTTL
// so a 1Hz scan cycle does not refetch a book that hasn't had time to move.
type OrderbookTTLCache struct {
	backing cache.Cache
	ttl     time.Duration
}

type orderbookTop struct {
	Bid *types.BookTop
	Ask *types.BookTop
}

// NewOrderbookTTLCache wraps a cache.Cache (normally ristretto-backed) with
// the orderbook-top TTL semantics.
func NewOrderbookTTLCache(backing cache.Cache, ttl time.Duration) *OrderbookTTLCache {
	if ttl <= 0 {
		ttl = DefaultOrderbookTTL
	}
	return &OrderbookTTLCache{backing: backing, ttl: ttl}
}

func orderbookCacheKey(tokenID string) string {
	return fmt.Sprintf("book:%s", tokenID)
}

// Get returns a cached top of book if present and unexpired.
func (o *OrderbookTTLCache) Get(tokenID string) (bid, ask *types.BookTop, ok bool) {
	val, found := o.backing.Get(orderbookCacheKey(tokenID))
	if !found {
		OrderbookCacheMissesTotal.Inc()
		return nil, nil, false
	}
	top, ok := val.(*orderbookTop)
	if !ok {
		OrderbookCacheMissesTotal.Inc()
		return nil, nil, false
	}
	OrderbookCacheHitsTotal.Inc()
	return top.Bid, top.Ask, true
}

// Set stores a freshly fetched top of book under the cache's TTL.
func (o *OrderbookTTLCache) Set(tokenID string, bid, ask *types.BookTop) {
	o.backing.Set(orderbookCacheKey(tokenID), &orderbookTop{Bid: bid, Ask: ask}, o.ttl)
}
