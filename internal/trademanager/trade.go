// Package trademanager tracks open positions and evaluates stop-loss,
// take-profit, trailing-stop, and timeout exits from spec §4.6, reacting to
// both a 1s polling backstop and real-time WS price events.
package trademanager

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/polyhft/clob-engine/pkg/types"
)

// Status is a Trade's lifecycle state. ACTIVE is the only non-terminal
// value; every other value is reached exactly once (one-shot transition).
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusClosed       Status = "CLOSED"
	StatusStoppedOut   Status = "STOPPED_OUT"
	StatusTakeProfit   Status = "TAKE_PROFIT"
	StatusTrailingStop Status = "TRAILING_STOP"
	StatusTimeout      Status = "TIMEOUT"
	StatusCancelled    Status = "CANCELLED"
)

const (
	defaultStopLossPct   = 0.15
	defaultTakeProfitPct = 0.20
)

// OpenParams are the caller-supplied fields for entering a trade.
type OpenParams struct {
	MarketID string
	TokenID  string
	Side     types.Side

	EntryPrice float64
	Size       float64

	StopLoss        *float64
	TakeProfit      *float64
	TrailingStopPct *float64
	MaxDurationSecs int64

	AutoSLTP bool
}

// Trade is an open or closed position managed by the Trade Manager. All
// price/status mutation happens under mu, so the polling monitor and the
// event-driven hook can both race to evaluate the same trade safely; only
// one of them ever wins the one-shot close.
type Trade struct {
	ID       string
	MarketID string
	TokenID  string
	Side     types.Side

	EntryPrice float64
	Size       float64

	StopLoss        *float64
	TakeProfit      *float64
	TrailingStopPct *float64
	MaxDurationSecs int64

	OpenedAt time.Time

	mu           sync.Mutex
	currentPrice float64
	highestPrice float64
	status       Status
	closedAt     time.Time
	closeReason  Status
	exitPrice    float64
}

// NewTrade opens a trade, deriving default stop_loss/take_profit from entry
// price when auto_sl_tp is set and the caller omitted them, per spec §4.6.
func NewTrade(p OpenParams) *Trade {
	sl := p.StopLoss
	tp := p.TakeProfit
	if p.AutoSLTP {
		if sl == nil {
			v := types.ClipPrice(p.EntryPrice * (1 - defaultStopLossPct))
			sl = &v
		}
		if tp == nil {
			v := types.ClipPrice(p.EntryPrice * (1 + defaultTakeProfitPct))
			tp = &v
		}
	}

	now := time.Now()
	return &Trade{
		ID:              uuid.New().String(),
		MarketID:        p.MarketID,
		TokenID:         p.TokenID,
		Side:            p.Side,
		EntryPrice:      p.EntryPrice,
		Size:            p.Size,
		StopLoss:        sl,
		TakeProfit:      tp,
		TrailingStopPct: p.TrailingStopPct,
		MaxDurationSecs: p.MaxDurationSecs,
		OpenedAt:        now,
		currentPrice:    p.EntryPrice,
		highestPrice:    p.EntryPrice,
		status:          StatusActive,
	}
}

// Status returns the trade's current lifecycle status.
func (t *Trade) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// IsActive reports whether the trade is still open.
func (t *Trade) IsActive() bool {
	return t.Status() == StatusActive
}

// Snapshot is an immutable view of a trade's current state, safe to hand to
// a reader without sharing the trade's internal lock.
type Snapshot struct {
	ID              string
	MarketID        string
	TokenID         string
	Side            types.Side
	EntryPrice      float64
	Size            float64
	CurrentPrice    float64
	HighestPrice    float64
	StopLoss        *float64
	TakeProfit      *float64
	TrailingStopPct *float64
	MaxDurationSecs int64
	OpenedAt        time.Time
	Status          Status
	ClosedAt        time.Time
	CloseReason      Status
	ExitPrice       float64
	RealizedPnL     float64
}

// Snapshot returns a point-in-time copy of the trade's state.
func (t *Trade) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// exitTrigger evaluates the SL/TP/trailing/timeout precedence from spec
// §4.6 against the trade's current state. Returns (status, exitPrice, true)
// if an exit condition fires.
func (t *Trade) exitTrigger(now time.Time) (Status, float64, bool) {
	if t.StopLoss != nil && t.currentPrice <= *t.StopLoss {
		return StatusStoppedOut, t.currentPrice, true
	}
	if t.TakeProfit != nil && t.currentPrice >= *t.TakeProfit {
		return StatusTakeProfit, t.currentPrice, true
	}
	if t.TrailingStopPct != nil {
		trailingPrice := t.highestPrice * (1 - *t.TrailingStopPct)
		if t.currentPrice <= trailingPrice {
			return StatusTrailingStop, t.currentPrice, true
		}
	}
	if t.MaxDurationSecs > 0 && now.Sub(t.OpenedAt) >= time.Duration(t.MaxDurationSecs)*time.Second {
		return StatusTimeout, t.currentPrice, true
	}
	return "", 0, false
}

// applyPriceAndEvaluate updates current/highest price and evaluates exit
// conditions, closing the trade under the same lock if one fires. Returns
// the close event if the trade closed as a result of this call.
func (t *Trade) applyPriceAndEvaluate(price float64, now time.Time) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusActive {
		return Snapshot{}, false
	}

	t.currentPrice = price
	if price > t.highestPrice {
		t.highestPrice = price
	}

	reason, exitPrice, fire := t.exitTrigger(now)
	if !fire {
		return Snapshot{}, false
	}

	t.status = reason
	t.closeReason = reason
	t.closedAt = now
	t.exitPrice = exitPrice

	return t.snapshotLocked(), true
}

// closeManual closes an ACTIVE trade at an explicit exit price (the
// `exit_trade` control-plane command), regardless of SL/TP/trailing state.
func (t *Trade) closeManual(exitPrice float64, now time.Time) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusActive {
		return Snapshot{}, false
	}

	t.status = StatusClosed
	t.closeReason = StatusClosed
	t.closedAt = now
	t.exitPrice = exitPrice

	return t.snapshotLocked(), true
}

// cancel closes an ACTIVE trade without an exit order, e.g. on shutdown or
// a bad entry that never filled.
func (t *Trade) cancel(now time.Time) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusActive {
		return Snapshot{}, false
	}

	t.status = StatusCancelled
	t.closeReason = StatusCancelled
	t.closedAt = now
	t.exitPrice = t.currentPrice

	return t.snapshotLocked(), true
}

// snapshotLocked is Snapshot's body without acquiring mu; callers must
// already hold it.
func (t *Trade) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:              t.ID,
		MarketID:        t.MarketID,
		TokenID:         t.TokenID,
		Side:            t.Side,
		EntryPrice:      t.EntryPrice,
		Size:            t.Size,
		CurrentPrice:    t.currentPrice,
		HighestPrice:    t.highestPrice,
		StopLoss:        t.StopLoss,
		TakeProfit:      t.TakeProfit,
		TrailingStopPct: t.TrailingStopPct,
		MaxDurationSecs: t.MaxDurationSecs,
		OpenedAt:        t.OpenedAt,
		Status:          t.status,
		ClosedAt:        t.closedAt,
		CloseReason:     t.closeReason,
		ExitPrice:       t.exitPrice,
	}
	if t.status != StatusActive {
		snap.RealizedPnL = (t.exitPrice - t.EntryPrice) * t.Size
	}
	return snap
}
