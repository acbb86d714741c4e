package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nomis52/clubboard/board"
	"github.com/nomis52/clubboard/metrics"
)

// SessionCookie names the cookie that carries the session ID.
const SessionCookie = "board_session"

// refreshConcurrency bounds the boards refreshed at once by RefreshAll.
const refreshConcurrency = 4

type session struct {
	board    *board.Board
	lastSeen time.Time
}

// SessionStore gives every browser session its own Board, so status
// messages and busy controls are never shared between users.
type SessionStore struct {
	idleTTL  time.Duration
	newBoard func() *board.Board
	logger   *slog.Logger
	active   metrics.Gauge
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionStore creates a store whose sessions expire after idleTTL
// without requests. active, if not nil, tracks the number of live sessions.
func NewSessionStore(idleTTL time.Duration, newBoard func() *board.Board, logger *slog.Logger, active metrics.Gauge) *SessionStore {
	return &SessionStore{
		idleTTL:  idleTTL,
		newBoard: newBoard,
		logger:   logger,
		active:   active,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Board returns the Board of the request's session. A request without a
// known session gets a new one and the session cookie is set on w.
func (s *SessionStore) Board(w http.ResponseWriter, r *http.Request) *board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id := sessionID(r); id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.lastSeen = now
			return sess.board
		}
	}

	id := uuid.NewString()
	sess := &session{board: s.newBoard(), lastSeen: now}
	s.sessions[id] = sess
	s.setActiveLocked()
	s.logger.Debug("session created", "session", id)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess.board
}

// Has reports whether id is a live session. It does not count as activity.
func (s *SessionStore) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the idle TTL and stops their
// boards. It returns the number removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idleTTL {
			sess.board.Close()
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.setActiveLocked()
		s.logger.Debug("expired idle sessions", "removed", removed, "remaining", len(s.sessions))
	}
	return removed
}

// RefreshAll fetches and renders the roster on every live board.
func (s *SessionStore) RefreshAll(ctx context.Context) error {
	boards := s.boards()

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, b := range boards {
		g.Go(func() error {
			if _, err := b.FetchAndRender(gctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	s.logger.Debug("refreshed boards", "boards", len(boards), "failed", len(errs))
	return errors.Join(errs...)
}

// Close stops every board and forgets all sessions.
func (s *SessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		sess.board.Close()
		delete(s.sessions, id)
	}
	s.setActiveLocked()
}

func (s *SessionStore) boards() []*board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*board.Board, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.board)
	}
	return out
}

func (s *SessionStore) setActiveLocked() {
	if s.active != nil {
		s.active.Set(float64(len(s.sessions)))
	}
}

// sessionID returns the session ID carried by r, or "" if it has none or
// the value is not a UUID.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}
