package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func TestRetry_DefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, cfg.BaseBackoff)
	require.Equal(t, 5*time.Second, cfg.MaxBackoff)
	require.Nil(t, cfg.Retryable)
}

func TestRetry_Do(t *testing.T) {
	t.Parallel()

	t.Run("success on first attempt", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := Do(context.Background(), fastConfig(), func() error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, attempts)
	})

	t.Run("success after transient failures", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		var retried []int
		cfg := fastConfig()
		cfg.OnRetry = func(attempt int, _ time.Duration, err error) {
			require.Error(t, err)
			retried = append(retried, attempt)
		}
		err := Do(context.Background(), cfg, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("connection reset by peer")
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
		require.Equal(t, []int{2, 3}, retried)
	})

	t.Run("exhausts attempts and wraps last error", func(t *testing.T) {
		t.Parallel()
		original := errors.New("SlowDown: please reduce your request rate")
		attempts := 0
		err := Do(context.Background(), fastConfig(), func() error {
			attempts++
			return original
		})
		require.ErrorIs(t, err, original)
		require.ErrorContains(t, err, "failed after 3 attempts")
		require.Equal(t, 3, attempts)
	})

	t.Run("non-retryable error returns immediately", func(t *testing.T) {
		t.Parallel()
		original := errors.New("NoSuchKey: the specified key does not exist")
		attempts := 0
		err := Do(context.Background(), fastConfig(), func() error {
			attempts++
			return original
		})
		require.Equal(t, original, err)
		require.Equal(t, 1, attempts)
	})

	t.Run("custom retryable predicate", func(t *testing.T) {
		t.Parallel()
		cfg := fastConfig()
		cfg.Retryable = func(error) bool { return true }
		attempts := 0
		err := Do(context.Background(), cfg, func() error {
			attempts++
			return errors.New("invalid input")
		})
		require.Error(t, err)
		require.Equal(t, 3, attempts)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := Do(context.Background(), Config{}, func() error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, attempts)
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cfg := Config{MaxAttempts: 5, BaseBackoff: time.Second, MaxBackoff: time.Second}
		attempts := 0
		err := Do(ctx, cfg, func() error {
			attempts++
			cancel()
			return errors.New("timeout")
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, attempts)
	})
}

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

type plainStatusErr struct{ code int }

func (e *plainStatusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *plainStatusErr) StatusCode() int { return e.code }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestRetry_IsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("get object: %w", context.DeadlineExceeded), false},
		{"net timeout", timeoutErr{}, true},
		{"aws 503", &statusErr{http.StatusServiceUnavailable}, true},
		{"aws 500 wrapped", fmt.Errorf("get: %w", &statusErr{http.StatusInternalServerError}), true},
		{"aws 404", &statusErr{http.StatusNotFound}, false},
		{"aws 403", &statusErr{http.StatusForbidden}, false},
		{"plain 429", &plainStatusErr{http.StatusTooManyRequests}, true},
		{"plain 400", &plainStatusErr{http.StatusBadRequest}, false},
		{"eof", errors.New("unexpected EOF"), true},
		{"slowdown", errors.New("api error SlowDown"), true},
		{"bad input", errors.New("invalid header row"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRetry_CalculateBackoff(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond
	limit := time.Second
	for attempt := 1; attempt <= 6; attempt++ {
		want := base * time.Duration(1<<uint(attempt))
		if want > limit {
			want = limit
		}
		for range 20 {
			got := calculateBackoff(base, limit, attempt)
			require.GreaterOrEqual(t, got, want/2, "attempt %d", attempt)
			require.Less(t, got, want+1, "attempt %d", attempt)
		}
	}
}
