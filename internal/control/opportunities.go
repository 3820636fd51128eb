package control

import (
	"github.com/polyhft/clob-engine/internal/analyzer"
)

// defaultTopN is analyzer_top_N from spec §4.8's snapshot contract.
const defaultTopN = 10

// ListOpportunities is the list_opportunities command from spec §6: the
// analyzer scores every valid market against the live trading params and
// the highest-scoring n are returned, best first. AnalyzeAll already
// returns opportunities ordered (score desc, effective_spread desc); that
// ordering must not be disturbed here.
func (c *Controller) ListOpportunities(n int) []*analyzer.Opportunity {
	if n <= 0 {
		n = defaultTopN
	}
	opps := c.analyzer.AnalyzeAll(c.cache.Valid(), c.TradingParams())
	if len(opps) > n {
		opps = opps[:n]
	}
	return opps
}
