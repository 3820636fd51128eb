package scanner

import (
	"context"
	"time"

	"github.com/polyhft/clob-engine/pkg/types"
	"go.uber.org/zap"
)

// discoveryLoop runs discoverOnce every DiscoveryInterval until ctx is done.
func (s *Scanner) discoveryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.DiscoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.discoverOnce(ctx); err != nil {
				s.logger.Warn("discovery-cycle-failed", zap.Error(err))
			}
		}
	}
}

// discoverOnce queries the gateway for each configured keyword, de-duplicates
// against known markets, upserts new ones into the Market Cache, and opens a
// WebSocket subscription for their tokens.
func (s *Scanner) discoverOnce(ctx context.Context) error {
	queries := s.cfg.Keywords
	if len(queries) == 0 {
		queries = []string{""}
	}

	var lastErr error
	newCount := 0

	for _, query := range queries {
		markets, err := s.gw.ListMarkets(ctx, query, s.cfg.MarketLimit)
		if err != nil {
			lastErr = err
			continue
		}

		for _, m := range markets {
			if s.isKnown(m.ID) {
				continue
			}
			if len(m.Tokens) < 2 {
				continue
			}

			s.markKnown(m.ID)
			s.cache.Upsert(m)
			MarketsDiscoveredTotal.Inc()
			newCount++

			s.subscribeTokens(ctx, m)
		}
	}

	if newCount > 0 {
		s.logger.Info("discovery-cycle-complete", zap.Int("new-markets", newCount))
	}

	s.revalidateKnownMarkets(ctx)

	if lastErr != nil {
		DiscoveryErrorsTotal.Inc()
		return lastErr
	}
	return nil
}

// revalidateKnownMarkets re-resolves a bounded batch of already-known
// markets via GetMarket and evicts any the exchange now reports inactive.
// ListMarkets's active=true filter only ever shows markets still active; a
// market that drops out of that result set is never surfaced again, so this
// is the only place a market is ever removed.
func (s *Scanner) revalidateKnownMarkets(ctx context.Context) {
	ids := s.knownMarketIDsSnapshot()
	if len(ids) == 0 {
		return
	}
	if len(ids) > s.cfg.EvictionBatchSize {
		ids = ids[:s.cfg.EvictionBatchSize]
	}

	for _, id := range ids {
		s.revalidateMarket(ctx, id)
	}
}

func (s *Scanner) revalidateMarket(ctx context.Context, marketID string) {
	data, ok := s.cache.Get(marketID)
	if !ok || data.Market == nil {
		return
	}

	conditionID := data.Market.ConditionID
	if conditionID == "" {
		conditionID = marketID
	}

	m, err := s.gw.GetMarket(ctx, conditionID)
	if err != nil {
		s.logger.Warn("market-revalidation-failed",
			zap.String("market-id", marketID),
			zap.Error(err))
		return
	}

	// A nil market (404) or an explicit active=false both mean the
	// exchange no longer considers this market live.
	if m == nil || !m.Active {
		s.evictMarket(marketID)
	}
}

// evictMarket removes a market the exchange reports inactive, per the
// data-model invariant that a market is removed once it goes inactive.
func (s *Scanner) evictMarket(marketID string) {
	s.mu.Lock()
	delete(s.knownMarketIDs, marketID)
	delete(s.priorityMarketID, marketID)
	s.mu.Unlock()

	s.cache.Remove(marketID)
	MarketsEvictedTotal.Inc()
	s.logger.Info("market-evicted", zap.String("market-id", marketID))
}

func (s *Scanner) knownMarketIDsSnapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.knownMarketIDs))
	for id := range s.knownMarketIDs {
		ids = append(ids, id)
	}
	return ids
}

func (s *Scanner) isKnown(marketID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.knownMarketIDs[marketID]
	return ok
}

func (s *Scanner) markKnown(marketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knownMarketIDs[marketID] = struct{}{}
}

// subscribeTokens opens the WS subscription for a newly discovered market's
// tokens, wiring price/book updates into the Market Cache with source "ws".
func (s *Scanner) subscribeTokens(ctx context.Context, m *types.Market) {
	tokenIDs := make([]string, 0, len(m.Tokens))
	s.mu.Lock()
	for _, tok := range m.Tokens {
		if _, already := s.subscribedTokens[tok.TokenID]; already {
			continue
		}
		s.subscribedTokens[tok.TokenID] = struct{}{}
		tokenIDs = append(tokenIDs, tok.TokenID)
	}
	s.mu.Unlock()

	if len(tokenIDs) == 0 {
		return
	}

	err := s.gw.Subscribe(ctx, tokenIDs, s.onPriceUpdate, s.onBookUpdate)
	if err != nil {
		s.logger.Warn("ws-subscribe-failed",
			zap.String("market-id", m.ID),
			zap.Error(err))
	}
}

// onPriceUpdate merges a single-sided price_update WS event into the Market
// Cache, updating only the ask side (the side a price_change event reports).
func (s *Scanner) onPriceUpdate(tokenID string, price float64) {
	p := price
	s.cache.UpdateTop(tokenID, nil, &p, "ws")
}

// onBookUpdate merges a full book_update WS event into the Market Cache.
func (s *Scanner) onBookUpdate(tokenID string, bids, asks []types.BookTop) {
	var bid, ask *float64
	if len(bids) > 0 {
		b := bids[0].Price
		bid = &b
	}
	if len(asks) > 0 {
		a := asks[0].Price
		ask = &a
	}
	s.cache.UpdateTop(tokenID, bid, ask, "ws")
}
