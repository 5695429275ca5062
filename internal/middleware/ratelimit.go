package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// IdleTTL drops the limiter of a caller that has been quiet this long
	IdleTTL time.Duration
}

// RateLimiter keeps one token bucket per caller: the authenticated user when known,
// the client IP otherwise.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *cache.Cache
	mu       sync.Mutex
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		config:   config,
		limiters: cache.New(config.IdleTTL, 2*config.IdleTTL),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.limiters.Get(key); ok {
		l := v.(*rate.Limiter)
		rl.limiters.SetDefault(key, l)
		return l
	}
	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.limiters.SetDefault(key, l)
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if userID, ok := UserID(c); ok {
			key = "user:" + userID.String()
		}

		l := rl.limiter(key)
		if !l.Allow() {
			retry := time.Second
			if rl.config.Rate > 0 {
				retry = time.Duration(float64(time.Second) / float64(rl.config.Rate))
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			httputil.RespondWithError(c, errors.TooManyRequests("rate limit exceeded"))
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(l.Tokens())))
		c.Next()
	}
}

