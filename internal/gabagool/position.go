package gabagool

import (
	"time"

	"github.com/polyhft/clob-engine/pkg/types"
)

// PairPosition is the per-market accumulated YES/NO position from spec §3.
// Raw fields are monotonically non-decreasing (buy-only); the cached
// derived fields (AvgYes, AvgNo, PairCost, IsLocked) are recomputed inside
// AddYes/AddNo so the cache is never observed stale.
type PairPosition struct {
	MarketID string

	QtyYes  float64
	QtyNo   float64
	CostYes float64
	CostNo  float64

	TradeCountYes int
	TradeCountNo  int

	FirstTradeAt time.Time
	LastTradeAt  time.Time

	AvgYes   float64
	AvgNo    float64
	PairCost float64
	IsLocked bool
}

// NewPairPosition creates an empty position for a market.
func NewPairPosition(marketID string) *PairPosition {
	p := &PairPosition{MarketID: marketID}
	p.recompute()
	return p
}

// AddYes records a YES buy and recomputes the derived cache atomically with
// the raw-field mutation (caller must hold any position-level lock for the
// duration of this call; Engine serializes per-market via its order lock).
func (p *PairPosition) AddYes(price, qty float64) {
	p.QtyYes += qty
	p.CostYes += price * qty
	p.TradeCountYes++
	p.touch()
	p.recompute()
}

// AddNo records a NO buy and recomputes the derived cache.
func (p *PairPosition) AddNo(price, qty float64) {
	p.QtyNo += qty
	p.CostNo += price * qty
	p.TradeCountNo++
	p.touch()
	p.recompute()
}

func (p *PairPosition) touch() {
	now := time.Now()
	if p.FirstTradeAt.IsZero() {
		p.FirstTradeAt = now
	}
	p.LastTradeAt = now
}

// TotalCost is the USD committed to this position so far.
func (p *PairPosition) TotalCost() float64 {
	return p.CostYes + p.CostNo
}

// recompute derives AvgYes/AvgNo/PairCost/IsLocked from the raw fields.
//
// PairCost is avg_yes + avg_no when both sides are held, and 1.0 otherwise
// (spec §3). A single-sided position is never locked, since its smaller
// quantity is zero.
func (p *PairPosition) recompute() {
	if p.QtyYes > 0 {
		p.AvgYes = p.CostYes / p.QtyYes
	} else {
		p.AvgYes = 0
	}
	if p.QtyNo > 0 {
		p.AvgNo = p.CostNo / p.QtyNo
	} else {
		p.AvgNo = 0
	}

	switch {
	case p.QtyYes > 0 && p.QtyNo > 0:
		p.PairCost = p.AvgYes + p.AvgNo
	default:
		p.PairCost = 1.0
	}

	minQty := p.QtyYes
	if p.QtyNo < minQty {
		minQty = p.QtyNo
	}
	p.IsLocked = minQty > p.TotalCost()
}

// simulateAvg returns the prospective average cost of a side after buying
// qty more shares at price, without mutating the position.
func (p *PairPosition) simulateAvg(side types.Side, price, qty float64) float64 {
	switch side {
	case types.SideYes:
		return (p.CostYes + price*qty) / (p.QtyYes + qty)
	case types.SideNo:
		return (p.CostNo + price*qty) / (p.QtyNo + qty)
	default:
		return 0
	}
}

// simulatePairCost returns the prospective pair cost after a hypothetical
// buy of qty shares of side at price, with the untouched side's average
// held fixed (or treated as 1.0 if not yet held and not the side trading).
func (p *PairPosition) simulatePairCost(side types.Side, price, qty float64) float64 {
	newAvg := p.simulateAvg(side, price, qty)

	switch side {
	case types.SideYes:
		if p.QtyNo > 0 {
			return newAvg + p.AvgNo
		}
		return newAvg + 1.0
	case types.SideNo:
		if p.QtyYes > 0 {
			return newAvg + p.AvgYes
		}
		return newAvg + 1.0
	default:
		return 1.0
	}
}
