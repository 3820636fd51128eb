package trademanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polyhft/clob-engine/internal/gateway"
	"go.uber.org/zap"
)

// pollInterval is the polling-monitor backstop cadence from spec §4.6.
const pollInterval = time.Second

// persistenceQueueSize bounds the fire-and-forget write queue; a full queue
// drops the write rather than blocking the event loop.
const persistenceQueueSize = 256

// Persister durably records a closed trade. Implementations must not be
// called on the hot path directly; Manager dispatches writes off a single
// background goroutine.
type Persister interface {
	SaveTrade(ctx context.Context, snap Snapshot) error
}

// Breaker gates opening new trades on wallet balance health, satisfied by
// *circuitbreaker.BalanceCircuitBreaker. It never gates exits: closing a
// trade reduces risk and must always be allowed to proceed.
type Breaker interface {
	IsEnabled() bool
	RecordTrade(tradeSize float64)
}

// Manager maintains trade_id -> Trade plus a market_id -> []trade_id index
// for O(1) lookup on price events, and runs both the polling monitor and the
// event-driven exit evaluation required by spec §4.6.
type Manager struct {
	gw        gateway.Gateway
	persister Persister
	breaker   Breaker
	logger    *zap.Logger

	mu      sync.RWMutex
	trades  map[string]*Trade
	byMkt   map[string][]string

	persistCh chan Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config configures a Manager.
type Config struct {
	Gateway   gateway.Gateway
	Persister Persister // optional; nil disables persistence
	Breaker   Breaker   // optional; nil disables gating
	Logger    *zap.Logger
}

// New constructs a Manager. It does not start any goroutines until Start.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		gw:        cfg.Gateway,
		persister: cfg.Persister,
		breaker:   cfg.Breaker,
		logger:    logger,
		trades:    make(map[string]*Trade),
		byMkt:     make(map[string][]string),
		persistCh: make(chan Snapshot, persistenceQueueSize),
	}
}

// Start launches the polling monitor and the persistence writer goroutine.
func (m *Manager) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(2)
	go m.pollLoop(runCtx)
	go m.persistLoop(runCtx)

	m.logger.Info("trademanager-started")
}

// Stop halts both background goroutines and waits for them to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("trademanager-stopped")
}

// EnterTrade opens a new trade and indexes it for O(1) price-event lookup.
func (m *Manager) EnterTrade(p OpenParams) *Trade {
	trade := NewTrade(p)

	m.mu.Lock()
	m.trades[trade.ID] = trade
	m.byMkt[trade.MarketID] = append(m.byMkt[trade.MarketID], trade.ID)
	m.mu.Unlock()

	if m.breaker != nil {
		m.breaker.RecordTrade(trade.EntryPrice * trade.Size)
	}

	TradesOpenedTotal.Inc()
	OpenTrades.Inc()
	m.logger.Info("trade-opened",
		zap.String("trade_id", trade.ID), zap.String("market_id", trade.MarketID),
		zap.String("side", string(trade.Side)), zap.Float64("entry_price", trade.EntryPrice),
		zap.Float64("size", trade.Size))

	return trade
}

// ExitTrade manually closes an ACTIVE trade at the given price (the
// control-plane `exit_trade` command).
func (m *Manager) ExitTrade(ctx context.Context, tradeID string, exitPrice float64) error {
	m.mu.RLock()
	trade, ok := m.trades[tradeID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("trademanager: unknown trade %s", tradeID)
	}

	snap, closed := trade.closeManual(exitPrice, time.Now())
	if !closed {
		return fmt.Errorf("trademanager: trade %s is not active", tradeID)
	}

	m.finishClose(ctx, trade, snap)
	return nil
}

// Get returns a trade by ID.
func (m *Manager) Get(tradeID string) (*Trade, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trades[tradeID]
	return t, ok
}

// ListOpen returns snapshots of every currently ACTIVE trade.
func (m *Manager) ListOpen() []Snapshot {
	m.mu.RLock()
	trades := make([]*Trade, 0, len(m.trades))
	for _, t := range m.trades {
		trades = append(trades, t)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(trades))
	for _, t := range trades {
		if snap := t.Snapshot(); snap.Status == StatusActive {
			out = append(out, snap)
		}
	}
	return out
}

// OnPriceUpdate is the event-driven hook from spec §4.6: it updates every
// trade indexed under market_id and closes any that fire an exit condition.
// Callers (the app's Market Cache subscription loop) must not block here; this
// method itself never blocks on I/O, deferring persistence and order
// placement off-path via goroutines/channels.
func (m *Manager) OnPriceUpdate(marketID string, price float64) {
	start := time.Now()

	m.mu.RLock()
	ids := append([]string(nil), m.byMkt[marketID]...)
	m.mu.RUnlock()

	for _, id := range ids {
		m.mu.RLock()
		trade, ok := m.trades[id]
		m.mu.RUnlock()
		if !ok {
			continue
		}

		snap, closed := trade.applyPriceAndEvaluate(price, time.Now())
		if !closed {
			continue
		}

		ExitLatencySeconds.Observe(time.Since(start).Seconds())
		go m.finishClose(context.Background(), trade, snap)
	}
}

// pollLoop is the 1s polling backstop for markets whose WS events have
// degraded to REST-only, modeled on the teacher's balance-monitor
// ticker+select loop.
func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	m.mu.RLock()
	trades := make([]*Trade, 0, len(m.trades))
	for _, t := range m.trades {
		trades = append(trades, t)
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, trade := range trades {
		if !trade.IsActive() {
			continue
		}

		bid, _, err := m.gw.GetOrderBook(ctx, trade.TokenID)
		if err != nil || bid == nil {
			continue
		}

		snap, closed := trade.applyPriceAndEvaluate(bid.Price, now)
		if closed {
			m.finishClose(ctx, trade, snap)
		}
	}
}

// finishClose posts the opposite-side exit order, updates metrics, and
// enqueues the fire-and-forget persistence write.
func (m *Manager) finishClose(ctx context.Context, trade *Trade, snap Snapshot) {
	OpenTrades.Dec()
	TradesClosedTotal.WithLabelValues(string(snap.CloseReason)).Inc()
	RealizedPnLCumulative.Add(snap.RealizedPnL)

	m.logger.Info("trade-closed",
		zap.String("trade_id", snap.ID), zap.String("market_id", snap.MarketID),
		zap.String("reason", string(snap.CloseReason)), zap.Float64("exit_price", snap.ExitPrice),
		zap.Float64("realized_pnl", snap.RealizedPnL))

	if m.gw != nil && snap.CloseReason != StatusCancelled {
		exitSide := gateway.OrderSell
		if _, err := m.gw.PlaceLimitOrder(ctx, trade.TokenID, exitSide, snap.ExitPrice, trade.Size); err != nil {
			m.logger.Warn("trade-exit-order-failed", zap.String("trade_id", snap.ID), zap.Error(err))
		}
	}

	m.enqueuePersist(snap)
}

func (m *Manager) enqueuePersist(snap Snapshot) {
	if m.persister == nil {
		return
	}
	select {
	case m.persistCh <- snap:
	default:
		PersistenceQueueDroppedTotal.Inc()
		m.logger.Warn("trade-persistence-dropped", zap.String("trade_id", snap.ID))
	}
}

// persistLoop is the single writer goroutine draining persistCh, keeping
// storage I/O off the event/polling hot paths.
func (m *Manager) persistLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-m.persistCh:
			if err := m.persister.SaveTrade(ctx, snap); err != nil {
				m.logger.Warn("trade-persist-failed", zap.String("trade_id", snap.ID), zap.Error(err))
			}
		}
	}
}
