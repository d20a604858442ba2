package web

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"operator-dashboard/src/logger"
)

// RateLimiter hands out one token bucket per client address.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	rateLimit rate.Limit
	burstSize int
}

// NewRateLimiter creates a limiter allowing rateLimit requests per second
// with the given burst.
func NewRateLimiter(rateLimit rate.Limit, burstSize int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		rateLimit: rateLimit,
		burstSize: burstSize,
	}
}

// GetLimiter returns the limiter of addr, creating it on first use.
func (rl *RateLimiter) GetLimiter(addr string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[addr]
	if !ok {
		limiter = rate.NewLimiter(rl.rateLimit, rl.burstSize)
		rl.limiters[addr] = limiter
	}
	return limiter
}

// NewRateLimitMiddleware rejects clients exceeding perMinute requests with
// 429 Too Many Requests.
func NewRateLimitMiddleware(perMinute int, log logger.Logger) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := r.RemoteAddr
			if !limiter.GetLimiter(addr).Allow() {
				log.Warn("[Web] Rate limit exceeded for %s on %s", addr, r.URL.Path)
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
