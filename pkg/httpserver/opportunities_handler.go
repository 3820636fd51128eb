package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/polyhft/clob-engine/internal/control"
	"go.uber.org/zap"
)

// OpportunitiesHandler serves the analyzer's top-scoring opportunities.
type OpportunitiesHandler struct {
	controller *control.Controller
	logger     *zap.Logger
}

// NewOpportunitiesHandler creates an opportunities inspection handler.
func NewOpportunitiesHandler(controller *control.Controller, logger *zap.Logger) *OpportunitiesHandler {
	return &OpportunitiesHandler{controller: controller, logger: logger}
}

// HandleOpportunities handles GET /api/opportunities?n=<count>.
func (h *OpportunitiesHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			n = parsed
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.controller.ListOpportunities(n)); err != nil {
		h.logger.Error("failed-to-encode-opportunities", zap.Error(err))
	}
}
