package handlers

import (
	"log/slog"
	"net/http"
)

// RefreshHandler handles requests to re-fetch the roster on every live board.
type RefreshHandler struct {
	logger    *slog.Logger
	refresher Refresher
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(logger *slog.Logger, refresher Refresher) *RefreshHandler {
	return &RefreshHandler{
		logger:    logger,
		refresher: refresher,
	}
}

// ServeHTTP implements http.Handler.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("refreshing boards")

	if err := h.refresher.RefreshAll(r.Context()); err != nil {
		h.logger.Error("failed to refresh boards", "error", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error: "failed to refresh boards: " + err.Error(),
		})
		return
	}

	h.logger.Info("boards refreshed successfully")
	w.WriteHeader(http.StatusNoContent)
}
