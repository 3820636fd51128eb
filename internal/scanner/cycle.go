package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/polyhft/clob-engine/internal/gateway"
	"github.com/polyhft/clob-engine/pkg/types"
	"go.uber.org/zap"
)

const emaAlpha = 0.1

// refreshLoop drives the per-cycle orderbook refresh. One cycle must not
// overlap itself: the loop sleeps max(0.5s, scan_interval - cycle_duration)
// between iterations rather than using a fixed ticker.
func (s *Scanner) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		if s.isPaused() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ScanInterval):
				continue
			}
		}

		start := time.Now()
		err := s.runCycle(ctx)
		duration := time.Since(start)

		CycleDurationSeconds.Observe(duration.Seconds())
		s.updateCycleEMA(duration)

		sleepFor := s.handleCycleResult(err, duration)

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepFor):
		}
	}
}

// handleCycleResult applies the backoff policy from spec §4.3: on 5
// consecutive errors, pause 30s then reset; otherwise a linear backoff of
// 2*error_count seconds is added on top of the normal inter-cycle sleep.
func (s *Scanner) handleCycleResult(err error, cycleDuration time.Duration) time.Duration {
	base := s.cfg.ScanInterval - cycleDuration
	if base < 500*time.Millisecond {
		base = 500 * time.Millisecond
	}

	if err == nil {
		s.mu.Lock()
		s.consecutiveErrors = 0
		s.mu.Unlock()
		ConsecutiveCycleErrors.Set(0)
		return base
	}

	CycleErrorsTotal.Inc()

	s.mu.Lock()
	s.consecutiveErrors++
	errCount := s.consecutiveErrors
	s.mu.Unlock()
	ConsecutiveCycleErrors.Set(float64(errCount))

	if errCount >= 5 {
		s.logger.Warn("scanner-cycle-error-threshold-reached",
			zap.Int("consecutive-errors", errCount),
			zap.Error(err))
		s.mu.Lock()
		s.consecutiveErrors = 0
		s.mu.Unlock()
		ConsecutiveCycleErrors.Set(0)
		return 30 * time.Second
	}

	s.logger.Warn("scanner-cycle-error",
		zap.Int("consecutive-errors", errCount),
		zap.Error(err))
	return base + time.Duration(2*errCount)*time.Second
}

func (s *Scanner) updateCycleEMA(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seconds := duration.Seconds()
	if s.cycleEMA == 0 {
		s.cycleEMA = seconds
	} else {
		s.cycleEMA = emaAlpha*seconds + (1-emaAlpha)*s.cycleEMA
	}
	CycleDurationEMASeconds.Set(s.cycleEMA)
}

// CycleDurationEMA returns the current exponential moving average of cycle
// duration, in seconds.
func (s *Scanner) CycleDurationEMA() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycleEMA
}

// runCycle refreshes the orderbook top for every known market, priority
// markets first, bounded by MaxConcurrentFetches in-flight fetches at once.
func (s *Scanner) runCycle(ctx context.Context) error {
	ordered := s.orderedMarketIDs()
	if len(ordered) == 0 {
		return nil
	}

	sem := make(chan struct{}, s.cfg.MaxConcurrentFetches)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, marketID := range ordered {
		data, ok := s.cache.Get(marketID)
		if !ok || data.Market == nil {
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(data *types.MarketData) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.refreshMarket(ctx, data); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(data)
	}

	wg.Wait()
	return firstErr
}

// refreshMarket fetches both sides' orderbook top in parallel, preferring
// the TTL cache, and merges the result into the Market Cache.
func (s *Scanner) refreshMarket(ctx context.Context, data *types.MarketData) error {
	yesToken := data.Market.GetTokenByOutcome("YES")
	noToken := data.Market.GetTokenByOutcome("NO")

	var wg sync.WaitGroup
	var yesErr, noErr error

	if yesToken != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			yesErr = s.refreshToken(ctx, yesToken.TokenID)
		}()
	}
	if noToken != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			noErr = s.refreshToken(ctx, noToken.TokenID)
		}()
	}
	wg.Wait()

	if yesErr != nil {
		return yesErr
	}
	return noErr
}

func (s *Scanner) refreshToken(ctx context.Context, tokenID string) error {
	if bid, ask, ok := s.bookTTL.Get(tokenID); ok {
		OrderbookFetchesTotal.WithLabelValues("cache_hit").Inc()
		s.applyBook(tokenID, bid, ask)
		return nil
	}

	bid, ask, err := s.gw.GetOrderBook(ctx, tokenID)
	if err != nil {
		OrderbookFetchesTotal.WithLabelValues("error").Inc()
		if gwErr, ok := err.(*gateway.Error); ok && !gwErr.Retryable() {
			// Status4xx (other than 404, which GetOrderBook never returns as
			// an error) is not retried; it is counted in the "error" fetch
			// metric only and not returned, so it does not count toward the
			// cycle backoff.
			return nil
		}
		return err
	}

	OrderbookFetchesTotal.WithLabelValues("fetched").Inc()
	s.bookTTL.Set(tokenID, bid, ask)
	s.applyBook(tokenID, bid, ask)
	return nil
}

func (s *Scanner) applyBook(tokenID string, bid, ask *types.BookTop) {
	var bidPrice, askPrice *float64
	if bid != nil {
		p := bid.Price
		bidPrice = &p
	}
	if ask != nil {
		p := ask.Price
		askPrice = &p
	}
	s.cache.UpdateTop(tokenID, bidPrice, askPrice, "rest")
}

// orderedMarketIDs returns known market IDs with priority markets first.
func (s *Scanner) orderedMarketIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	priority := make([]string, 0, len(s.priorityMarketID))
	rest := make([]string, 0, len(s.knownMarketIDs))

	for id := range s.knownMarketIDs {
		if _, isPriority := s.priorityMarketID[id]; isPriority {
			priority = append(priority, id)
		} else {
			rest = append(rest, id)
		}
	}

	return append(priority, rest...)
}
