package analyzer

import (
	"time"

	"github.com/google/uuid"
)

// Action is the analyzer's recommendation for one opportunity.
type Action string

const (
	ActionTrade Action = "TRADE"
	ActionWatch Action = "WATCH"
	ActionSkip  Action = "SKIP"
)

// ScoreBreakdown is the four-axis score (0-25 each) behind a final 1-5
// Score, kept on the Opportunity so callers can explain a ranking.
type ScoreBreakdown struct {
	Spread    int
	Volume    int
	Liquidity int
	Balance   int
}

func (b ScoreBreakdown) total() int {
	return b.Spread + b.Volume + b.Liquidity + b.Balance
}

// Opportunity is the analyzer's ephemeral output: never persisted, created
// fresh on each scan from a MarketData + TradingParams pair.
type Opportunity struct {
	ID         string
	MarketID   string
	Question   string
	DetectedAt time.Time

	BestBidYes float64
	BestAskYes float64
	BestBidNo  float64
	BestAskNo  float64

	SpreadYes       float64
	SpreadNo        float64
	EffectiveSpread float64

	RecommendedYesPrice float64
	RecommendedNoPrice  float64

	Breakdown ScoreBreakdown
	Score     int // 1-5
	Action    Action
}

// newOpportunityID generates a fresh identity for an opportunity, grounded
// on the teacher's `uuid.New().String()` convention in
// internal/arbitrage/opportunity.go.
func newOpportunityID() string {
	return uuid.New().String()
}
