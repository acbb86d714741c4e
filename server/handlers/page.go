package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/nomis52/clubboard/board"
)

// PageHandler serves the board page. Every page load fetches the roster
// before rendering.
type PageHandler struct {
	logger *slog.Logger
	boards BoardProvider
	title  string
}

// NewPageHandler creates a new PageHandler. An empty title uses
// board.DefaultTitle.
func NewPageHandler(logger *slog.Logger, boards BoardProvider, title string) *PageHandler {
	return &PageHandler{
		logger: logger,
		boards: boards,
		title:  title,
	}
}

// ServeHTTP implements http.Handler.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b := h.boards.Board(w, r)

	// A failed fetch is rendered into the page, so the page is still served.
	if _, err := b.FetchAndRender(r.Context()); err != nil {
		h.logger.Debug("page rendered without roster", "error", err)
	}

	var buf bytes.Buffer
	if err := board.RenderHTML(&buf, b.Snapshot(), h.title); err != nil {
		h.logger.Error("failed to render page", "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
