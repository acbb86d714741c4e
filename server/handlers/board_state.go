package handlers

import "net/http"

// BoardStateHandler returns the session's current document as JSON without
// fetching the roster.
type BoardStateHandler struct {
	boards BoardProvider
}

// NewBoardStateHandler creates a new BoardStateHandler.
func NewBoardStateHandler(boards BoardProvider) *BoardStateHandler {
	return &BoardStateHandler{boards: boards}
}

// ServeHTTP implements http.Handler.
func (h *BoardStateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.boards.Board(w, r).Snapshot())
}
