package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nomis52/clubboard/board"
	"github.com/nomis52/clubboard/clients/activityclient"
	"github.com/nomis52/clubboard/clients/activityclient/activitytest"
	"github.com/nomis52/clubboard/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedBoards hands out the same board to every request.
type fixedBoards struct {
	board *board.Board
	calls atomic.Int32
}

func (f *fixedBoards) Board(http.ResponseWriter, *http.Request) *board.Board {
	f.calls.Add(1)
	return f.board
}

func newFakeBoards(t *testing.T) (*fixedBoards, *activitytest.Server) {
	t.Helper()
	srv := activitytest.NewServer(activitytest.DefaultRoster())
	t.Cleanup(srv.Close)

	client, err := activityclient.New(srv.URL)
	require.NoError(t, err)

	b := board.New(client, board.WithLogger(logging.Discard()))
	t.Cleanup(b.Close)
	return &fixedBoards{board: b}, srv
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPageHandler(t *testing.T) {
	boards, srv := newFakeBoards(t)
	handler := NewPageHandler(logging.Discard(), boards, "")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	body := w.Body.String()
	assert.Contains(t, body, "Chess Club")
	assert.Contains(t, body, "michael@mergington.edu")
	assert.Contains(t, body, board.DefaultTitle)
	assert.Equal(t, 1, srv.Store.ListCalls())
}

func TestPageHandler_APIDown(t *testing.T) {
	srv := activitytest.NewServer(activitytest.DefaultRoster())
	client, err := activityclient.New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	b := board.New(client, board.WithLogger(logging.Discard()))
	defer b.Close()
	handler := NewPageHandler(logging.Discard(), &fixedBoards{board: b}, "Springfield High")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), board.LoadFailedText)
	assert.Contains(t, w.Body.String(), "Springfield High")
}

func TestSignupHandler(t *testing.T) {
	boards, srv := newFakeBoards(t)
	handler := NewSignupHandler(logging.Discard(), boards)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, postForm("/signup", url.Values{
		"email":    {" new@mergington.edu "},
		"activity": {"Gym Class"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	doc := boards.board.Snapshot()
	assert.Equal(t, "Signed up new@mergington.edu for Gym Class", doc.Message.Text)
	assert.Contains(t, srv.Store.Roster()["Gym Class"].Participants, "new@mergington.edu")
}

func TestSignupHandler_Rejected(t *testing.T) {
	boards, _ := newFakeBoards(t)
	handler := NewSignupHandler(logging.Discard(), boards)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, postForm("/signup", url.Values{
		"email":    {"michael@mergington.edu"},
		"activity": {"Chess Club"},
	}))

	// Rejections are shown on the page, not as an HTTP error.
	assert.Equal(t, http.StatusSeeOther, w.Code)
	doc := boards.board.Snapshot()
	assert.Equal(t, "Student is already signed up", doc.Message.Text)
	assert.Equal(t, board.SeverityError, doc.Message.Severity)
}

func TestSignupHandler_MissingFields(t *testing.T) {
	boards, srv := newFakeBoards(t)
	handler := NewSignupHandler(logging.Discard(), boards)

	for _, values := range []url.Values{
		{"email": {"a@b.c"}},
		{"activity": {"Chess Club"}},
		{"email": {"   "}, "activity": {"Chess Club"}},
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, postForm("/signup", values))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Error)
	}
	assert.Equal(t, 0, srv.Store.SignupCalls())
	assert.Equal(t, int32(0), boards.calls.Load(), "no session is needed for a rejected form")
}

func TestUnregisterHandler(t *testing.T) {
	boards, srv := newFakeBoards(t)
	handler := NewUnregisterHandler(logging.Discard(), boards)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, postForm("/unregister", url.Values{
		"activity": {"Chess Club"},
		"email":    {"daniel@mergington.edu"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "Removed daniel@mergington.edu from Chess Club", boards.board.Snapshot().Message.Text)
	assert.NotContains(t, srv.Store.Roster()["Chess Club"].Participants, "daniel@mergington.edu")
}

func TestUnregisterHandler_MissingFields(t *testing.T) {
	boards, srv := newFakeBoards(t)
	handler := NewUnregisterHandler(logging.Discard(), boards)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, postForm("/unregister", url.Values{"activity": {"Chess Club"}}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, srv.Store.UnregisterCalls())
}

// blockingAPI holds every unregister call until release is closed.
type blockingAPI struct {
	entered chan struct{}
	release chan struct{}
}

func (a *blockingAPI) Activities(context.Context) (activityclient.Roster, error) {
	return activitytest.DefaultRoster(), nil
}

func (a *blockingAPI) Signup(context.Context, string, string) (activityclient.Result, error) {
	return activityclient.Result{}, errors.New("not used")
}

func (a *blockingAPI) Unregister(context.Context, string, string) (activityclient.Result, error) {
	a.entered <- struct{}{}
	<-a.release
	return activityclient.Result{Message: "done"}, nil
}

func TestUnregisterHandler_BusyControl(t *testing.T) {
	api := &blockingAPI{entered: make(chan struct{}, 1), release: make(chan struct{})}
	b := board.New(api, board.WithLogger(logging.Discard()))
	defer b.Close()
	handler := NewUnregisterHandler(logging.Discard(), &fixedBoards{board: b})

	form := url.Values{"activity": {"Chess Club"}, "email": {"michael@mergington.edu"}}

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(first, postForm("/unregister", form))
	}()
	<-api.entered

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postForm("/unregister", form))
	assert.Equal(t, http.StatusConflict, second.Code)

	close(api.release)
	<-done
	assert.Equal(t, http.StatusSeeOther, first.Code)
}

func TestBoardStateHandler(t *testing.T) {
	boards, srv := newFakeBoards(t)
	_, err := boards.board.FetchAndRender(context.Background())
	require.NoError(t, err)

	handler := NewBoardStateHandler(boards)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/board", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc board.Document
	require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
	assert.Len(t, doc.List.Cards, 3)
	assert.Len(t, doc.Select, 4)
	assert.Equal(t, 1, srv.Store.ListCalls(), "state must not trigger a fetch")
}

type mockRefresher struct {
	err   error
	calls int
}

func (m *mockRefresher) RefreshAll(context.Context) error {
	m.calls++
	return m.err
}

func TestRefreshHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "success", wantStatus: http.StatusNoContent},
		{name: "failure", err: errors.New("connection refused"), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &mockRefresher{err: tt.err}
			handler := NewRefreshHandler(logging.Discard(), refresher)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, 1, refresher.calls)
			if tt.err != nil {
				var resp ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Contains(t, resp.Error, "connection refused")
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusTooManyRequests, "slow down")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"slow down"}`, w.Body.String())
}
