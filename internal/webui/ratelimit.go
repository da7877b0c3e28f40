package webui

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter tracks one token bucket per client IP, pruning idle entries so
// the map doesn't grow without bound across a long-running dashboard.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newIPLimiter(requestsPerWindow int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Every(window / time.Duration(requestsPerWindow)),
		burst:    requestsPerWindow,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.r, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter.Allow()
}

// perIPRateLimit throttles each client IP to requestsPerWindow requests per
// window, protecting the dashboard's run/detect endpoints from being hammered
// into repeatedly dispatching real adapters.
func perIPRateLimit(requestsPerWindow int, window time.Duration) gin.HandlerFunc {
	limiter := newIPLimiter(requestsPerWindow, window)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
