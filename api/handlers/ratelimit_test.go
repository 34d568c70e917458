package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/salesdash/api/handlers"
)

func newLimiter(t *testing.T, clock clockwork.Clock, perMinute, burst int) *handlers.RateLimiter {
	t.Helper()
	rl, err := handlers.NewRateLimiter(handlers.RateLimiterConfig{Clock: clock, PerMinute: perMinute, Burst: burst, Idle: time.Minute})
	require.NoError(t, err)
	t.Cleanup(rl.Close)
	return rl
}

func TestRateLimiter_BurstPerClient(t *testing.T) {
	t.Parallel()

	rl := newLimiter(t, clockwork.NewFakeClock(), 60, 3)
	for i := range 3 {
		require.True(t, rl.Allow("192.0.2.1"), "request %d", i+1)
	}
	require.False(t, rl.Allow("192.0.2.1"))
	require.True(t, rl.Allow("192.0.2.2"))
	require.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_Refill(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rl := newLimiter(t, clock, 60, 1)

	require.True(t, rl.Allow("192.0.2.1"))
	wait, ok := rl.Reserve("192.0.2.1")
	require.False(t, ok)
	require.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.01)

	// A denied request does not consume the next token.
	clock.Advance(time.Second)
	require.True(t, rl.Allow("192.0.2.1"))
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rl := newLimiter(t, clock, 60, 1)
	require.True(t, rl.Allow("192.0.2.1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool { return rl.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.True(t, rl.Allow("192.0.2.1"), "a swept client starts with a full bucket")
}

func TestRateLimiter_Config(t *testing.T) {
	t.Parallel()

	_, err := handlers.NewRateLimiter(handlers.RateLimiterConfig{PerMinute: 0, Burst: 1})
	require.Error(t, err)
	_, err = handlers.NewRateLimiter(handlers.RateLimiterConfig{PerMinute: 1, Burst: 0})
	require.Error(t, err)

	rl, err := handlers.NewRateLimiter(handlers.RateLimiterConfig{PerMinute: 1, Burst: 1})
	require.NoError(t, err)
	rl.Close()
	rl.Close()
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	rl := newLimiter(t, clockwork.NewFakeClock(), 30, 1)
	handler := handlers.RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/charts", nil)
	req.RemoteAddr = "192.0.2.50:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "2", rec.Header().Get("Retry-After"))

	var body handlers.RateLimitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, handlers.RateLimitResponse{Error: "rate limit exceeded", RetryAfter: 2}, body)

	other := httptest.NewRequest(http.MethodGet, "/api/charts", nil)
	other.RemoteAddr = "198.51.100.9:4000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", handlers.ClientIP(req))

	req.RemoteAddr = "203.0.113.7"
	require.Equal(t, "203.0.113.7", handlers.ClientIP(req))
}
