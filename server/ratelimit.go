package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nomis52/clubboard/server/handlers"
)

// LimiterConfig configures a RateLimiter.
type LimiterConfig struct {
	// RPS is the steady rate at which tokens are refilled.
	RPS float64
	// Burst is the bucket size.
	Burst int
	// IdleTTL is how long an unused bucket is kept.
	IdleTTL time.Duration
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	conf LimiterConfig
	now  func() time.Time

	mu      sync.Mutex
	buckets map[string]*keyLimiter
}

// KeySelector picks the key a request is limited by.
type KeySelector func(r *http.Request) string

// NewRateLimiter creates a RateLimiter. Idle buckets are dropped by Sweep.
func NewRateLimiter(conf LimiterConfig) *RateLimiter {
	return &RateLimiter{
		conf:    conf,
		now:     time.Now,
		buckets: make(map[string]*keyLimiter),
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}

	lim := rate.NewLimiter(rate.Limit(rl.conf.RPS), rl.conf.Burst)
	rl.buckets[key] = &keyLimiter{limiter: lim, lastSeen: now}
	return lim
}

// Sweep drops buckets unused for longer than IdleTTL and returns how many
// were dropped.
func (rl *RateLimiter) Sweep() int {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for k, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.conf.IdleTTL {
			delete(rl.buckets, k)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests with 429 once their key's bucket is empty.
func (rl *RateLimiter) Middleware(selectKey KeySelector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.getLimiter(selectKey(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				handlers.WriteError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionOrAddr limits by session when the cookie names a live session and
// by client address otherwise, so made-up session IDs share one bucket.
func sessionOrAddr(live func(id string) bool) KeySelector {
	return func(r *http.Request) string {
		if id := sessionID(r); id != "" && live(id) {
			return "session:" + id
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "addr:" + host
	}
}
