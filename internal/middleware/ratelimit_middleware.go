package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/subculture-collective/recaster/config"
)

// IngestRateLimiter holds one token-bucket limiter per client IP,
// applied to the interaction-ingestion endpoints to bound the rate an
// individual client can push watch/like/comment/share/subscribe events.
type IngestRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewIngestRateLimiter builds a limiter keyed by client IP from the
// rate limit config.
func NewIngestRateLimiter(cfg config.RateLimitConfig) *IngestRateLimiter {
	return &IngestRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(cfg.IngestRequestsPerSecond),
		burst:    cfg.IngestBurst,
	}
}

func (rl *IngestRateLimiter) limiterFor(clientID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.limiters[clientID]
	if !ok {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[clientID] = limiter
	}
	return limiter
}

// Middleware returns a gin handler that rejects requests over the
// configured rate with 429, keyed by client IP.
func (rl *IngestRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiterFor(c.ClientIP())
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
