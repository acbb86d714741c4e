package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nomis52/clubboard/clients/activityclient"
	"github.com/nomis52/clubboard/metrics"
)

const (
	// DefaultSignupMessageTTL is how long a signup status message stays visible.
	DefaultSignupMessageTTL = 5 * time.Second
	// DefaultUnregisterMessageTTL is how long a removal status message stays visible.
	DefaultUnregisterMessageTTL = 4 * time.Second
)

// ErrControlBusy is returned by HandleUnregister when the same participant's
// control already has a request in flight.
var ErrControlBusy = errors.New("unregister already in progress")

// API is the subset of the activities API used by a Board.
type API interface {
	Activities(ctx context.Context) (activityclient.Roster, error)
	Signup(ctx context.Context, activity, email string) (activityclient.Result, error)
	Unregister(ctx context.Context, activity, email string) (activityclient.Result, error)
}

// controlKey identifies the unregister control of one participant row.
type controlKey struct {
	activity string
	email    string
}

// Board is the client context of one activity board.
type Board struct {
	api           API
	logger        *slog.Logger
	metrics       *metrics.BoardMetrics
	signupTTL     time.Duration
	unregisterTTL time.Duration
	discardStale  bool
	cancelHide    bool

	// seq numbers renders in the order their requests were issued.
	seq atomic.Uint64

	mu          sync.Mutex
	doc         Document
	busy        map[controlKey]struct{}
	lastApplied uint64
	msgGen      uint64
	hideTimer   *time.Timer
	closed      bool
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		b.logger = logger
	}
}

// WithMetrics records board activity in m.
func WithMetrics(m *metrics.BoardMetrics) Option {
	return func(b *Board) {
		b.metrics = m
	}
}

// WithMessageTTLs sets how long signup and removal messages stay visible.
// Non-positive values keep the defaults.
func WithMessageTTLs(signup, unregister time.Duration) Option {
	return func(b *Board) {
		if signup > 0 {
			b.signupTTL = signup
		}
		if unregister > 0 {
			b.unregisterTTL = unregister
		}
	}
}

// WithStaleRenderGuard controls whether a fetch that completes after a
// newer render has been applied is discarded. Enabled by default; disabling
// it makes the last response to arrive win.
func WithStaleRenderGuard(enabled bool) Option {
	return func(b *Board) {
		b.discardStale = enabled
	}
}

// WithHideCancellation controls whether showing a message stops the hide
// timer of the previous one. Enabled by default; when disabled every
// message keeps its own timer and an older timer may hide a newer message.
func WithHideCancellation(enabled bool) Option {
	return func(b *Board) {
		b.cancelHide = enabled
	}
}

// New creates a Board backed by api.
func New(api API, opts ...Option) *Board {
	b := &Board{
		api:           api,
		logger:        slog.Default(),
		signupTTL:     DefaultSignupMessageTTL,
		unregisterTTL: DefaultUnregisterMessageTTL,
		discardStale:  true,
		cancelHide:    true,
		doc:           NewDocument(),
		busy:          make(map[controlKey]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns a copy of the current document.
func (b *Board) Snapshot() Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.Clone()
}

// Close stops the pending hide timer. The board must not be used afterwards.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.hideTimer != nil {
		b.hideTimer.Stop()
		b.hideTimer = nil
	}
}

// FetchAndRender fetches the roster and rebuilds the activity list and the
// selector from it. The form and the status message are left alone.
//
// On failure the activity list is replaced by LoadFailedText, the selector
// keeps its previous options and the error is returned.
func (b *Board) FetchAndRender(ctx context.Context) (activityclient.Roster, error) {
	seq := b.seq.Add(1)
	roster, err := b.api.Activities(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.discardStale && seq < b.lastApplied {
		b.logger.Debug("discarding stale roster", "seq", seq, "last_applied", b.lastApplied)
		b.metrics.ObserveStaleRender()
		if err != nil {
			return nil, fmt.Errorf("fetching activities: %w", err)
		}
		return roster, nil
	}
	b.lastApplied = seq

	if err != nil {
		b.logger.Error("error fetching activities", "error", err)
		b.metrics.ObserveFetch(outcomeOf(err))
		b.doc.List = ActivityList{Notice: LoadFailedText}
		return nil, fmt.Errorf("fetching activities: %w", err)
	}

	b.metrics.ObserveFetch(metrics.OutcomeSuccess)
	b.renderLocked(roster)
	return roster, nil
}

func (b *Board) renderLocked(roster activityclient.Roster) {
	b.doc.List = ActivityList{
		Cards: buildCards(roster, func(k controlKey) bool {
			_, ok := b.busy[k]
			return ok
		}),
	}
	b.doc.Select = buildSelect(roster)
	if _, ok := roster[b.doc.Form.Activity]; !ok {
		b.doc.Form.Activity = ""
	}

	counts := make(map[string]int, len(roster))
	for name, a := range roster {
		counts[name] = len(a.Participants)
	}
	b.metrics.ObserveRoster(counts)
}

// HandleSignup submits the signup form for email and activity.
//
// On success the server's message is shown, the form is reset and the
// roster is fetched again. A rejection shows the server's detail, or
// SignupFallbackText when there is none; a request that does not complete
// shows SignupFailedText. The returned error reports the signup outcome
// only: a failed re-fetch is rendered into the document, not returned.
func (b *Board) HandleSignup(ctx context.Context, email, activity string) error {
	b.mu.Lock()
	b.doc.Form = Form{Email: email, Activity: activity}
	b.mu.Unlock()

	result, err := b.api.Signup(ctx, activity, email)

	var apiErr *activityclient.APIError
	switch {
	case err == nil:
		b.logger.Info("signed up", "activity", activity, "email", email)
		b.metrics.ObserveSignup(metrics.OutcomeSuccess)
		b.mu.Lock()
		b.showLocked(result.Message, SeveritySuccess, b.signupTTL)
		b.doc.Form = Form{}
		b.mu.Unlock()

		if _, err := b.FetchAndRender(ctx); err != nil {
			b.logger.Warn("refresh after signup failed", "error", err)
		}
		return nil

	case errors.As(err, &apiErr):
		b.logger.Info("signup rejected", "activity", activity, "email", email, "status", apiErr.StatusCode, "detail", apiErr.Detail)
		b.metrics.ObserveSignup(metrics.OutcomeRejected)
		text := apiErr.Detail
		if text == "" {
			text = SignupFallbackText
		}
		b.show(text, SeverityError, b.signupTTL)
		return err

	default:
		b.logger.Error("error signing up", "activity", activity, "email", email, "error", err)
		b.metrics.ObserveSignup(metrics.OutcomeFailed)
		b.show(SignupFailedText, SeverityError, b.signupTTL)
		return err
	}
}

// HandleUnregister is invoked by the unregister control of the row for
// email in activity. The control is disabled until the call completes; a
// second use while it is disabled returns ErrControlBusy without a request.
//
// On success the server's message (or UnregisterSuccessText) is shown and
// the roster is fetched again. Failures show the server's detail, or
// UnregisterFailedText.
func (b *Board) HandleUnregister(ctx context.Context, activity, email string) error {
	key := controlKey{activity: activity, email: email}
	if !b.acquire(key) {
		return ErrControlBusy
	}
	defer b.release(key)

	result, err := b.api.Unregister(ctx, activity, email)

	var apiErr *activityclient.APIError
	switch {
	case err == nil:
		b.logger.Info("participant removed", "activity", activity, "email", email)
		b.metrics.ObserveUnregister(metrics.OutcomeSuccess)
		text := result.Message
		if text == "" {
			text = UnregisterSuccessText
		}
		b.show(text, SeveritySuccess, b.unregisterTTL)

		if _, err := b.FetchAndRender(ctx); err != nil {
			b.logger.Warn("refresh after removal failed", "error", err)
		}
		return nil

	case errors.As(err, &apiErr):
		b.logger.Info("removal rejected", "activity", activity, "email", email, "status", apiErr.StatusCode, "detail", apiErr.Detail)
		b.metrics.ObserveUnregister(metrics.OutcomeRejected)
		text := apiErr.Detail
		if text == "" {
			text = UnregisterFailedText
		}
		b.show(text, SeverityError, b.unregisterTTL)
		return err

	default:
		b.logger.Error("error removing participant", "activity", activity, "email", email, "error", err)
		b.metrics.ObserveUnregister(metrics.OutcomeFailed)
		b.show(UnregisterFailedText, SeverityError, b.unregisterTTL)
		return err
	}
}

// acquire disables the control identified by key.
func (b *Board) acquire(key controlKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.busy[key]; ok {
		return false
	}
	b.busy[key] = struct{}{}
	b.setDisabledLocked(key, true)
	return true
}

// release enables the control identified by key again.
func (b *Board) release(key controlKey) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.busy, key)
	b.setDisabledLocked(key, false)
}

func (b *Board) setDisabledLocked(key controlKey, disabled bool) {
	for i := range b.doc.List.Cards {
		card := &b.doc.List.Cards[i]
		if card.Name != key.activity {
			continue
		}
		for j := range card.Rows {
			if !card.Rows[j].Placeholder && card.Rows[j].Email == key.email {
				card.Rows[j].Disabled = disabled
			}
		}
	}
}

func outcomeOf(err error) string {
	var apiErr *activityclient.APIError
	if errors.As(err, &apiErr) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}
