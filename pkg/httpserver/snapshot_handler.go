package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/polyhft/clob-engine/internal/control"
	"go.uber.org/zap"
)

// snapshotPushInterval is the ~2Hz push rate spec §4.8 requires for the
// control-plane status stream.
const snapshotPushInterval = 500 * time.Millisecond

// SnapshotHandler serves the C8 control plane's aggregated status, both as
// a plain JSON GET and as an SSE stream.
type SnapshotHandler struct {
	controller *control.Controller
	logger     *zap.Logger
}

// NewSnapshotHandler creates a snapshot handler bound to a Controller.
func NewSnapshotHandler(controller *control.Controller, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{controller: controller, logger: logger}
}

// HandleSnapshot handles GET /api/snapshot: one JSON snapshot.
func (h *SnapshotHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.controller.Snapshot()); err != nil {
		h.logger.Error("failed-to-encode-snapshot", zap.Error(err))
	}
}

// HandleSnapshotStream handles GET /api/snapshot/stream: a Server-Sent
// Events stream pushing one snapshot every ~500ms until the client
// disconnects or the request context is cancelled.
func (h *SnapshotHandler) HandleSnapshotStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(snapshotPushInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(h.controller.Snapshot())
			if err != nil {
				h.logger.Error("failed-to-marshal-snapshot", zap.Error(err))
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
