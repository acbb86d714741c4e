// Package handlers provides HTTP handlers for the activity board server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"context"
	"net/http"

	"github.com/nomis52/clubboard/board"
	"github.com/nomis52/clubboard/config"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// BoardProvider returns the Board of the request's session, creating the
// session when needed.
type BoardProvider interface {
	Board(w http.ResponseWriter, r *http.Request) *board.Board
}

// Refresher re-fetches the roster on every live board.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}
