package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(LimiterConfig{RPS: 0.001, Burst: 2, IdleTTL: time.Minute})
	handler := rl.Middleware(func(r *http.Request) string { return r.Header.Get("X-Key") })(okHandler())

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/signup", nil)
		req.Header.Set("X-Key", key)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("a").Code)
	assert.Equal(t, http.StatusOK, do("a").Code)

	limited := do("a")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests, please try again later"}`, limited.Body.String())

	// Buckets are per key.
	assert.Equal(t, http.StatusOK, do("b").Code)
}

func TestRateLimiter_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(LimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	rl.now = clock.Now

	rl.getLimiter("old")
	clock.Advance(45 * time.Second)
	rl.getLimiter("new")
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.buckets, 1)
	assert.Contains(t, rl.buckets, "new")
}

func TestSessionOrAddr(t *testing.T) {
	const live = "6f1c2a5e-7d0b-4c39-9a51-0c2d7e8f9a10"
	selectKey := sessionOrAddr(func(id string) bool { return id == live })

	tests := []struct {
		name   string
		cookie string
		want   string
	}{
		{name: "no cookie", want: "addr:192.0.2.7"},
		{name: "live session", cookie: live, want: "session:" + live},
		{name: "unknown session", cookie: "0b7e4c1d-2f3a-4e5b-8c6d-7e8f9a0b1c2d", want: "addr:192.0.2.7"},
		{name: "not a uuid", cookie: "letmein", want: "addr:192.0.2.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/signup", nil)
			req.RemoteAddr = "192.0.2.7:51234"
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			assert.Equal(t, tt.want, selectKey(req))
		})
	}
}
