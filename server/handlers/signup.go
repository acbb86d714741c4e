package handlers

import (
	"log/slog"
	"net/http"
	"strings"
)

// SignupHandler handles submissions of the signup form.
type SignupHandler struct {
	logger *slog.Logger
	boards BoardProvider
}

// NewSignupHandler creates a new SignupHandler.
func NewSignupHandler(logger *slog.Logger, boards BoardProvider) *SignupHandler {
	return &SignupHandler{
		logger: logger,
		boards: boards,
	}
}

// ServeHTTP implements http.Handler. The outcome is shown as the board's
// status message, so the browser is always sent back to the page.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	activity := r.PostForm.Get("activity")
	if email == "" || activity == "" {
		WriteError(w, http.StatusBadRequest, "email and activity are required")
		return
	}

	b := h.boards.Board(w, r)
	if err := b.HandleSignup(r.Context(), email, activity); err != nil {
		h.logger.Debug("signup not completed", "activity", activity, "error", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
