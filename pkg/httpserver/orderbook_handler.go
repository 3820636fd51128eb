package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/polyhft/clob-engine/internal/marketcache"
	"go.uber.org/zap"
)

// MarketHandler handles HTTP requests for Market Cache inspection.
type MarketHandler struct {
	cache  *marketcache.Cache
	logger *zap.Logger
}

// NewMarketHandler creates a new orderbook/market inspection handler.
func NewMarketHandler(cache *marketcache.Cache, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{
		cache:  cache,
		logger: logger,
	}
}

// OutcomeBook represents top-of-book data for a single outcome.
type OutcomeBook struct {
	Outcome  string   `json:"outcome"`
	TokenID  string   `json:"token_id"`
	BestBid  *float64 `json:"best_bid"`
	BestAsk  *float64 `json:"best_ask"`
	Spread   *float64 `json:"spread"`
}

// OrderbookResponse is the HTTP response for a single market's orderbook.
type OrderbookResponse struct {
	MarketID  string        `json:"market_id"`
	Question  string        `json:"question"`
	IsValid   bool          `json:"is_valid"`
	Outcomes  []OutcomeBook `json:"outcomes"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOrderbook handles GET /api/orderbook?market_id=<id> requests.
func (h *MarketHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketID := r.URL.Query().Get("market_id")
	if marketID == "" {
		h.writeError(w, "missing required query parameter: market_id", http.StatusBadRequest)
		return
	}

	h.logger.Debug("orderbook-request-received", zap.String("market-id", marketID))

	data, exists := h.cache.Get(marketID)
	if !exists || data.Market == nil {
		h.writeError(w, "market not found", http.StatusNotFound)
		return
	}

	outcomes := make([]OutcomeBook, 0, len(data.Market.Tokens))
	for _, token := range data.Market.Tokens {
		ob := OutcomeBook{Outcome: token.Outcome, TokenID: token.TokenID}
		if strings.EqualFold(token.Outcome, "Yes") {
			ob.BestBid, ob.BestAsk, ob.Spread = data.BestBidYes, data.BestAskYes, data.SpreadYes
		} else {
			ob.BestBid, ob.BestAsk, ob.Spread = data.BestBidNo, data.BestAskNo, data.SpreadNo
		}
		outcomes = append(outcomes, ob)
	}

	response := OrderbookResponse{
		MarketID: data.Market.ID,
		Question: data.Market.Question,
		IsValid:  data.IsValid,
		Outcomes: outcomes,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *MarketHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
