package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/polyhft/clob-engine/internal/control"
	"go.uber.org/zap"
)

// PositionsHandler serves the trade manager's open positions.
type PositionsHandler struct {
	controller *control.Controller
	logger     *zap.Logger
}

// NewPositionsHandler creates a positions inspection handler.
func NewPositionsHandler(controller *control.Controller, logger *zap.Logger) *PositionsHandler {
	return &PositionsHandler{controller: controller, logger: logger}
}

// HandlePositions handles GET /api/positions.
func (h *PositionsHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.controller.ListPositions()); err != nil {
		h.logger.Error("failed-to-encode-positions", zap.Error(err))
	}
}
