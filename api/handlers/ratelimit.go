package handlers

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	Clock     clockwork.Clock
	PerMinute int
	Burst     int
	// Idle is how long a client may go without requests before its bucket
	// is dropped. Defaults to five minutes.
	Idle time.Duration
}

func (cfg *RateLimiterConfig) Validate() error {
	if cfg.PerMinute <= 0 || cfg.Burst <= 0 {
		return errors.New("rate limit must be positive")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Idle == 0 {
		cfg.Idle = 5 * time.Minute
	}
	return nil
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	cfg RateLimiterConfig

	mu      sync.Mutex
	clients map[string]*client

	stop     chan struct{}
	stopOnce sync.Once
}

type client struct {
	bucket *rate.Limiter
	seen   time.Time
}

// NewRateLimiter starts a limiter whose idle buckets are swept in the
// background until Close.
func NewRateLimiter(cfg RateLimiterConfig) (*RateLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rl := &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*client),
		stop:    make(chan struct{}),
	}
	ticker := cfg.Clock.NewTicker(cfg.Idle)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case now := <-ticker.Chan():
				rl.sweep(now)
			}
		}
	}()
	return rl, nil
}

// Reserve takes a token for ip. When none is left it reports how long until
// the next one.
func (rl *RateLimiter) Reserve(ip string) (time.Duration, bool) {
	now := rl.cfg.Clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.clients[ip]
	if !ok {
		limit := rate.Every(time.Minute / time.Duration(rl.cfg.PerMinute))
		c = &client{bucket: rate.NewLimiter(limit, rl.cfg.Burst)}
		rl.clients[ip] = c
	}
	c.seen = now

	if c.bucket.AllowN(now, 1) {
		return 0, true
	}
	r := c.bucket.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return wait, false
}

func (rl *RateLimiter) Allow(ip string) bool {
	_, ok := rl.Reserve(ip)
	return ok
}

// Clients is the number of tracked client IPs.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if now.Sub(c.seen) >= rl.cfg.Idle {
			delete(rl.clients, ip)
		}
	}
}

// RateLimitResponse is the 429 body.
type RateLimitResponse struct {
	Error string `json:"error"`
	// RetryAfter mirrors the Retry-After header, in whole seconds.
	RetryAfter int `json:"retry_after"`
}

// RateLimitMiddleware answers 429 once a client IP runs out of tokens.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wait, ok := rl.Reserve(ClientIP(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := max(int((wait + time.Second - 1) / time.Second), 1)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSONStatus(w, http.StatusTooManyRequests, RateLimitResponse{Error: "rate limit exceeded", RetryAfter: secs})
		})
	}
}

// ClientIP returns the host part of the request's remote address. Behind a
// proxy, chi's RealIP middleware has already replaced it with the client's.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
