// Package gabagool implements the arbitrage accumulation engine from spec
// §4.5: it watches the Market Cache for YES/NO price pairs and greedily buys
// the cheaper leg whenever doing so improves pair_cost enough to matter,
// until the pair is locked in guaranteed profit.
package gabagool

import (
	"context"
	"fmt"
	"sync"

	"github.com/polyhft/clob-engine/internal/gateway"
	"github.com/polyhft/clob-engine/internal/marketcache"
	"github.com/polyhft/clob-engine/pkg/types"
	"go.uber.org/zap"
)

// Breaker gates order placement on wallet balance health, satisfied by
// *circuitbreaker.BalanceCircuitBreaker. A nil Breaker means no gating.
type Breaker interface {
	IsEnabled() bool
	RecordTrade(tradeSize float64)
}

// fillVerifier is the subset of *gateway.FillTracker executeBuy depends on.
// A nil fillVerifier disables the post-trade verification goroutine.
type fillVerifier interface {
	VerifyFills(ctx context.Context, orderIDs, outcomes []string, expectedSizes []float64) ([]gateway.FillStatus, error)
}

// State is the engine's lifecycle state.
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
)

// priceMoveThreshold is the minimum relative price change (spec §4.5) that
// re-opens evaluation of a market/side already evaluated at its last price.
const priceMoveThreshold = 0.005

// Engine is the Gabagool arbitrage accumulation state machine.
type Engine struct {
	gw           gateway.Gateway
	cache        *marketcache.Cache
	breaker      Breaker
	fillVerifier fillVerifier
	logger       *zap.Logger

	mu       sync.RWMutex
	cfg      Config
	state    State
	positions map[string]*PairPosition
	locked    map[string]struct{}

	lastEvalYes map[string]float64
	lastEvalNo  map[string]float64

	marketLocksMu sync.Mutex
	marketLocks   map[string]*sync.Mutex

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine constructs an engine over the given gateway and market cache.
func NewEngine(gw gateway.Gateway, cache *marketcache.Cache, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		gw:          gw,
		cache:       cache,
		logger:      logger,
		cfg:         cfg,
		state:       StateStopped,
		positions:   make(map[string]*PairPosition),
		locked:      make(map[string]struct{}),
		lastEvalYes: make(map[string]float64),
		lastEvalNo:  make(map[string]float64),
		marketLocks: make(map[string]*sync.Mutex),
	}
}

// SetBreaker wires a balance circuit breaker that gates order placement;
// pass nil to disable gating.
func (e *Engine) SetBreaker(b Breaker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.breaker = b
}

// SetFillVerifier wires a fill tracker that checks, off the hot path, that
// each placed order actually cleared at the size executeBuy recorded. Pass
// nil to disable verification.
func (e *Engine) SetFillVerifier(v *gateway.FillTracker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v == nil {
		e.fillVerifier = nil
		return
	}
	e.fillVerifier = v
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// UpdateConfig validates and swaps the live config. The previous config is
// preserved on validation failure, per spec §7.
func (e *Engine) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("gabagool: reject config update: %w", err)
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	return nil
}

// Start begins consuming Market Cache updates on a background goroutine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRunning || e.state == StatePaused {
		e.mu.Unlock()
		return fmt.Errorf("gabagool: already started")
	}
	e.state = StateRunning
	e.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.runCtx = runCtx

	updates := e.cache.Subscribe()
	e.wg.Add(1)
	go e.consumeLoop(runCtx, updates)

	e.logger.Info("gabagool-started")
	return nil
}

// Stop halts the engine and releases its subscription.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.logger.Info("gabagool-stopped")
}

// Pause stops acting on new updates without tearing down the subscription.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		e.state = StatePaused
	}
}

// Resume resumes acting on updates after Pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePaused {
		e.state = StateRunning
	}
}

func (e *Engine) isPaused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state == StatePaused
}

func (e *Engine) consumeLoop(ctx context.Context, updates <-chan *types.MarketData) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-updates:
			if !ok {
				return
			}
			if e.isPaused() {
				continue
			}
			e.handleUpdate(ctx, data)
		}
	}
}

func (e *Engine) handleUpdate(ctx context.Context, data *types.MarketData) {
	if data == nil || data.Market == nil || !data.IsValid {
		return
	}

	priceYes, priceNo, ok := e.candidatePrices(data)
	if !ok {
		return
	}

	side, price, ok := e.analyzeOpportunity(data.Market.ID, priceYes, priceNo)
	if !ok {
		return
	}

	cfg := e.configSnapshot()
	qty := cfg.OrderSizeUSD / price

	lock := e.marketLock(data.Market.ID)
	lock.Lock()
	defer lock.Unlock()

	e.executeBuy(ctx, data, side, price, qty)
}

// candidatePrices derives the YES/NO ask prices gabagool would pay to buy
// each side right now; a missing ask on either side means no buy is possible.
func (e *Engine) candidatePrices(data *types.MarketData) (priceYes, priceNo float64, ok bool) {
	if data.BestAskYes == nil || data.BestAskNo == nil {
		return 0, 0, false
	}
	return *data.BestAskYes, *data.BestAskNo, true
}

// analyzeOpportunity implements spec §4.5's evaluation: short-circuit if
// neither price moved enough since the last evaluation, then pick the
// cheaper eligible leg.
func (e *Engine) analyzeOpportunity(marketID string, priceYes, priceNo float64) (types.Side, float64, bool) {
	e.mu.Lock()
	lastYes, hasYes := e.lastEvalYes[marketID]
	lastNo, hasNo := e.lastEvalNo[marketID]
	movedYes := !hasYes || relMove(lastYes, priceYes) >= priceMoveThreshold
	movedNo := !hasNo || relMove(lastNo, priceNo) >= priceMoveThreshold
	e.lastEvalYes[marketID] = priceYes
	e.lastEvalNo[marketID] = priceNo
	e.mu.Unlock()

	if !movedYes && !movedNo {
		return "", 0, false
	}

	cfg := e.configSnapshot()
	pos := e.positionFor(marketID)

	yesOK := e.shouldBuySide(pos, cfg, types.SideYes, priceYes, cfg.OrderSizeUSD/priceYes)
	noOK := e.shouldBuySide(pos, cfg, types.SideNo, priceNo, cfg.OrderSizeUSD/priceNo)

	switch {
	case yesOK && noOK:
		if priceYes <= priceNo {
			return types.SideYes, priceYes, true
		}
		return types.SideNo, priceNo, true
	case yesOK:
		return types.SideYes, priceYes, true
	case noOK:
		return types.SideNo, priceNo, true
	default:
		return "", 0, false
	}
}

func relMove(prev, next float64) float64 {
	if prev == 0 {
		return 1
	}
	delta := next - prev
	if delta < 0 {
		delta = -delta
	}
	return delta / prev
}

// shouldBuySide implements the six-step decision rule from spec §4.5.
func (e *Engine) shouldBuySide(pos *PairPosition, cfg Config, side types.Side, price, qty float64) bool {
	// Step 1: a locked position never trades again.
	if pos.IsLocked {
		OrdersRejectedTotal.WithLabelValues("locked").Inc()
		return false
	}

	// Step 2: position-size cap.
	if pos.TotalCost()+price*qty > cfg.MaxPositionUSD {
		OrdersRejectedTotal.WithLabelValues("max_position").Inc()
		return false
	}

	_, haveOther := oppositeQty(pos, side)

	// Step 3: bootstrap — the very first leg bought for a market requires a
	// cheap enough entry price, since there is no opposite leg yet to
	// measure pair_cost improvement against.
	if !haveOther && isEmptySide(pos, side) {
		if price >= cfg.FirstBuyThreshold {
			OrdersRejectedTotal.WithLabelValues("first_buy_threshold").Inc()
			return false
		}
		return true
	}

	// Step 4: simulate the prospective pair_cost after this buy.
	newPairCost := pos.simulatePairCost(side, price, qty)
	if newPairCost >= cfg.MaxPairCost {
		OrdersRejectedTotal.WithLabelValues("max_pair_cost").Inc()
		return false
	}

	// Step 5/6: if the opposite side is already held, the buy must improve
	// pair_cost by at least min_improvement; otherwise the simulated
	// pair_cost check above is sufficient (no opposite leg to protect yet).
	if haveOther {
		improvement := pos.PairCost - newPairCost
		if improvement < cfg.MinImprovement {
			OrdersRejectedTotal.WithLabelValues("min_improvement").Inc()
			return false
		}
	}

	return true
}

func isEmptySide(pos *PairPosition, side types.Side) bool {
	switch side {
	case types.SideYes:
		return pos.QtyYes == 0
	case types.SideNo:
		return pos.QtyNo == 0
	default:
		return true
	}
}

func oppositeQty(pos *PairPosition, side types.Side) (float64, bool) {
	switch side {
	case types.SideYes:
		return pos.QtyNo, pos.QtyNo > 0
	case types.SideNo:
		return pos.QtyYes, pos.QtyYes > 0
	default:
		return 0, false
	}
}

// executeBuy places the leg and, on success, records it against the
// position and re-evaluates the locked/active partition.
func (e *Engine) executeBuy(ctx context.Context, data *types.MarketData, side types.Side, price, qty float64) {
	if breaker := e.breakerSnapshot(); breaker != nil && !breaker.IsEnabled() {
		OrdersRejectedTotal.WithLabelValues("circuit_breaker").Inc()
		e.logger.Warn("gabagool-circuit-breaker-blocked", zap.String("market_id", data.Market.ID))
		return
	}

	token := tokenForSide(data.Market, side)
	if token == "" {
		e.logger.Warn("gabagool-missing-token", zap.String("market_id", data.Market.ID), zap.String("side", string(side)))
		return
	}

	placed, err := e.gw.PlaceLimitOrder(ctx, token, gateway.OrderBuy, price, qty)
	if err != nil {
		e.logger.Warn("gabagool-order-failed",
			zap.String("market_id", data.Market.ID), zap.String("side", string(side)), zap.Error(err))
		OrdersRejectedTotal.WithLabelValues("gateway_error").Inc()
		return
	}

	pos := e.positionFor(data.Market.ID)
	wasLocked := pos.IsLocked
	switch side {
	case types.SideYes:
		pos.AddYes(price, qty)
	case types.SideNo:
		pos.AddNo(price, qty)
	}

	OrdersPlacedTotal.WithLabelValues(string(side)).Inc()
	PairCostHistogram.Observe(pos.PairCost)
	if breaker := e.breakerSnapshot(); breaker != nil {
		breaker.RecordTrade(price * qty)
	}
	e.logger.Info("gabagool-order-placed",
		zap.String("market_id", data.Market.ID), zap.String("side", string(side)),
		zap.Float64("price", price), zap.Float64("qty", qty), zap.String("order_id", placed.OrderID))

	e.verifyFillAsync(data.Market.ID, string(side), placed.OrderID, qty)

	if !wasLocked && pos.IsLocked {
		e.markLocked(data.Market.ID)
		LockedProfitEventsTotal.Inc()
		e.logger.Info("gabagool-locked-profit",
			zap.String("market_id", data.Market.ID),
			zap.Float64("pair_cost", pos.PairCost),
			zap.Float64("qty_yes", pos.QtyYes), zap.Float64("qty_no", pos.QtyNo))
	}
}

func tokenForSide(market *types.Market, side types.Side) string {
	outcome := "YES"
	if side == types.SideNo {
		outcome = "NO"
	}
	if t := market.GetTokenByOutcome(outcome); t != nil {
		return t.TokenID
	}
	return ""
}

func (e *Engine) positionFor(marketID string) *PairPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.positions[marketID]
	if !ok {
		pos = NewPairPosition(marketID)
		e.positions[marketID] = pos
		ActivePositions.Set(float64(len(e.positions) - len(e.locked)))
	}
	return pos
}

func (e *Engine) markLocked(marketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked[marketID] = struct{}{}
	ActivePositions.Set(float64(len(e.positions) - len(e.locked)))
	LockedPositions.Set(float64(len(e.locked)))
}

// verifyFillAsync checks, off the hot path, that a just-placed order cleared
// at the size executeBuy already recorded against the position. It never
// blocks the caller and never mutates position state: by the time it
// observes a short fill the position accounting has already happened, so a
// mismatch only gets logged and counted for operator attention.
func (e *Engine) verifyFillAsync(marketID, side, orderID string, qty float64) {
	e.mu.RLock()
	verifier := e.fillVerifier
	ctx := e.runCtx
	e.mu.RUnlock()

	if verifier == nil || ctx == nil {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		statuses, err := verifier.VerifyFills(ctx, []string{orderID}, []string{side}, []float64{qty})
		if err != nil {
			return
		}
		for _, s := range statuses {
			if !s.FullyFilled {
				FillMismatchTotal.WithLabelValues(side).Inc()
				e.logger.Warn("gabagool-fill-short",
					zap.String("market_id", marketID), zap.String("side", side), zap.String("order_id", orderID),
					zap.Float64("expected_qty", qty), zap.Float64("size_filled", s.SizeFilled), zap.String("status", s.Status))
			}
		}
	}()
}

func (e *Engine) breakerSnapshot() Breaker {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.breaker
}

func (e *Engine) configSnapshot() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Position returns the current accumulated position for a market, or nil.
func (e *Engine) Position(marketID string) *PairPosition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.positions[marketID]
}

// LockedMarkets returns the IDs of markets currently locked in profit.
func (e *Engine) LockedMarkets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.locked))
	for id := range e.locked {
		ids = append(ids, id)
	}
	return ids
}

// Stats summarizes the engine's active/locked partition for the optimizer
// and control plane.
type Stats struct {
	ActiveCount    int
	LockedCount    int
	AvgActivePairCost float64
	Config         Config
}

// Snapshot returns the engine's current stats, used by the auto-optimizer
// to compute MarketConditions and by the control plane's status snapshot.
func (e *Engine) Snapshot() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := Stats{
		LockedCount: len(e.locked),
		Config:      e.cfg,
	}

	var sum float64
	for id, pos := range e.positions {
		if _, locked := e.locked[id]; locked {
			continue
		}
		stats.ActiveCount++
		sum += pos.PairCost
	}
	if stats.ActiveCount > 0 {
		stats.AvgActivePairCost = sum / float64(stats.ActiveCount)
	}
	return stats
}

// ActiveMarkets returns the IDs of markets currently being accumulated and
// not yet locked; the app hands this set to Scanner.SetPriorityMarkets once a
// second.
func (e *Engine) ActiveMarkets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.positions)-len(e.locked))
	for id := range e.positions {
		if _, locked := e.locked[id]; !locked {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *Engine) marketLock(marketID string) *sync.Mutex {
	e.marketLocksMu.Lock()
	defer e.marketLocksMu.Unlock()
	lock, ok := e.marketLocks[marketID]
	if !ok {
		lock = &sync.Mutex{}
		e.marketLocks[marketID] = lock
	}
	return lock
}
