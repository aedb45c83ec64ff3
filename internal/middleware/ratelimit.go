package middleware

import (
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fittrack/apigw/internal/config"
	"github.com/fittrack/apigw/internal/observability"
)

// idleClientTTL is how long a per-client bucket survives without traffic.
const idleClientTTL = 10 * time.Minute

// RateLimiter is a token bucket shared by all clients, or one bucket per
// client IP. Idle client buckets are swept lazily on Allow.
type RateLimiter struct {
	limit     rate.Limit
	burst     int
	perClient bool
	shared    *rate.Limiter

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	*rate.Limiter
	seen time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst.
func NewRateLimiter(rps, burst int, perClient bool) *RateLimiter {
	return &RateLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		perClient: perClient,
		shared:    rate.NewLimiter(rate.Limit(rps), burst),
		buckets:   make(map[string]*bucket),
		now:       time.Now,
	}
}

// Allow reports whether a request from client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	if !rl.perClient {
		return rl.shared.Allow()
	}

	rl.mu.Lock()
	now := rl.now()
	if now.Sub(rl.lastSweep) > idleClientTTL {
		for key, b := range rl.buckets {
			if now.Sub(b.seen) > idleClientTTL {
				delete(rl.buckets, key)
			}
		}
		rl.lastSweep = now
	}
	b, ok := rl.buckets[client]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[client] = b
	}
	b.seen = now
	rl.mu.Unlock()

	return b.AllowN(now, 1)
}

// Clients returns the number of tracked client buckets.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// RateLimit rejects requests over the limit with 429 and a Retry-After.
func RateLimit(rl *RateLimiter, logger observability.Logger) func(http.Handler) http.Handler {
	metrics := GetMiddlewareMetrics()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ClientIP(r)
			if rl.Allow(clientIP) {
				metrics.rateLimitAllowed.Inc()
				next.ServeHTTP(w, r)
				return
			}

			metrics.rateLimitRejected.Inc()
			logger.Warn("rate limit exceeded",
				observability.String("client_ip", clientIP),
				observability.String("path", r.URL.Path),
			)

			w.Header().Set(HeaderContentType, ContentTypeJSON)
			w.Header().Set(HeaderRetryAfter, "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, ErrRateLimitExceeded)
		})
	}
}

// RateLimitFromConfig returns the rate limit middleware, or a pass-through
// when rate limiting is disabled.
func RateLimitFromConfig(cfg config.RateLimitConfig, logger observability.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return RateLimit(NewRateLimiter(cfg.RPS, cfg.Burst, cfg.PerClient), logger)
}
