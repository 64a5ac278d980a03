package mockserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type staticLimiter struct {
	allow bool
	wait  time.Duration
	seen  []string
}

func (s *staticLimiter) Allow(client string) (bool, time.Duration) {
	s.seen = append(s.seen, client)
	return s.allow, s.wait
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	limiter := &staticLimiter{allow: false, wait: 1500 * time.Millisecond}
	middleware := rateLimitMiddleware(limiter, zaptest.NewLogger(t), http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	if len(limiter.seen) != 1 || limiter.seen[0] != "10.0.0.7" {
		t.Fatalf("expected client key 10.0.0.7, got %v", limiter.seen)
	}
}

func TestRateLimitMiddlewarePassesWhenLimiterAllows(t *testing.T) {
	var called bool
	middleware := rateLimitMiddleware(&staticLimiter{allow: true}, zaptest.NewLogger(t), http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
}

func TestClientLimiterUsesDefaults(t *testing.T) {
	limiter := newClientLimiter(0, 0)
	if ok, _ := limiter.Allow("a"); !ok {
		t.Fatalf("expected first request to be allowed")
	}
	ok, wait := limiter.Allow("a")
	if ok || wait <= 0 {
		t.Fatalf("expected second request to wait, got ok=%v wait=%v", ok, wait)
	}
}

func TestClientLimiterSeparatesClients(t *testing.T) {
	limiter := newClientLimiter(1, 1)
	if ok, _ := limiter.Allow("a"); !ok {
		t.Fatal("first request of a should pass")
	}
	if ok, _ := limiter.Allow("a"); ok {
		t.Fatal("second request of a should be limited")
	}
	if ok, _ := limiter.Allow("b"); !ok {
		t.Fatal("client b has its own bucket")
	}
}

func TestClientLimiterResetsWhenFull(t *testing.T) {
	limiter := newClientLimiter(1, 1)
	for i := 0; i < maxTrackedClients; i++ {
		limiter.Allow(string(rune('a' + i%26)) + string(rune(i)))
	}
	limiter.Allow("overflow")
	if len(limiter.clients) != 1 {
		t.Fatalf("expected map reset, got %d clients", len(limiter.clients))
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := map[time.Duration]int{
		0:                      1,
		200 * time.Millisecond: 1,
		time.Second:            1,
		2100 * time.Millisecond: 3,
	}
	for wait, want := range tests {
		if got := retryAfterSeconds(wait); got != want {
			t.Fatalf("retryAfterSeconds(%v) = %d, want %d", wait, got, want)
		}
	}
}

func TestWithRateLimitZeroDisablesLimiter(t *testing.T) {
	cfg := routerConfig{rateLimiter: &staticLimiter{}}
	WithRateLimit(0, 0)(&cfg)
	if cfg.rateLimiter != nil {
		t.Fatalf("expected limiter to be disabled")
	}
	WithRateLimit(5, 1)(&cfg)
	if cfg.rateLimiter == nil {
		t.Fatalf("expected limiter to be installed")
	}
}
