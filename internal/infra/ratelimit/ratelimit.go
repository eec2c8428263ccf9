// Package ratelimit provides a per-client token-bucket HTTP rate limiter,
// adapted from the teacher's infrastructure/middleware.RateLimiter for a
// daemon with no authenticated-user concept to key on: every bucket is
// keyed by remote IP rather than falling back to it only when a user ID
// is absent.
package ratelimit

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wrt-go/wrt/internal/infra/logging"
)

// Limiter rate-limits HTTP requests per client IP using a lazily created
// golang.org/x/time/rate.Limiter per key, same as the teacher's
// RateLimiter.getLimiter.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	logger   *logging.Logger
}

// New constructs a Limiter allowing requestsPerSecond sustained requests
// per client IP, with bursts of up to burst requests at once (the token
// bucket's size). logger may be nil.
func New(requestsPerSecond float64, burst int, logger *logging.Logger) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

// LimiterCount reports how many per-client buckets are currently tracked.
func (l *Limiter) LimiterCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Handler wraps next with per-client-IP rate limiting.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !l.getLimiter(key).Allow() {
			if l.logger != nil {
				l.logger.WithContext(r.Context()).Warnf("rate limit exceeded for %s on %s", key, r.URL.Path)
			}
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
