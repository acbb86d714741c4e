package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/clubboard/board"
)

// UnregisterHandler handles the unregister control of a participant row.
// The row's activity and email arrive as form fields.
type UnregisterHandler struct {
	logger *slog.Logger
	boards BoardProvider
}

// NewUnregisterHandler creates a new UnregisterHandler.
func NewUnregisterHandler(logger *slog.Logger, boards BoardProvider) *UnregisterHandler {
	return &UnregisterHandler{
		logger: logger,
		boards: boards,
	}
}

// ServeHTTP implements http.Handler.
func (h *UnregisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}
	activity := r.PostForm.Get("activity")
	email := r.PostForm.Get("email")
	if activity == "" || email == "" {
		WriteError(w, http.StatusBadRequest, "activity and email are required")
		return
	}

	b := h.boards.Board(w, r)
	err := b.HandleUnregister(r.Context(), activity, email)
	if errors.Is(err, board.ErrControlBusy) {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Debug("unregister not completed", "activity", activity, "error", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
