package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"golang.org/x/time/rate"
)

// keyedRateLimiter hands out a token bucket per key (IP or contact number)
// with periodic cleanup to prevent unbounded growth.
type keyedRateLimiter struct {
	buckets map[string]*rate.Limiter
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

func newKeyedRateLimiter(r rate.Limit, b int) *keyedRateLimiter {
	l := &keyedRateLimiter{
		buckets: make(map[string]*rate.Limiter),
		r:       r,
		b:       b,
	}

	go func() {
		for {
			time.Sleep(10 * time.Minute)
			l.mu.Lock()
			l.buckets = make(map[string]*rate.Limiter)
			l.mu.Unlock()
		}
	}()

	return l
}

func (l *keyedRateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.buckets[key]
	if !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.buckets[key] = limiter
	}
	return limiter
}

// One OTP every 30s per contact, small burst for retries after typos.
var otpLimiter = newKeyedRateLimiter(rate.Every(30*time.Second), 3)

// OTPRateLimit throttles OTP issue/resend per caller IP. The per-contact cap
// is enforced in the handler, where the body has been parsed.
func OTPRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !otpLimiter.get(c.ClientIP()).Allow() {
			utils.RespondError(c, 429, "Too many OTP requests. Please wait before retrying.", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimit enforces general per-IP rate limiting on public endpoints.
var ipLimiter = newKeyedRateLimiter(5, 10) // 5 req/sec, burst of 10

func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ipLimiter.get(c.ClientIP()).Allow() {
			utils.RespondError(c, 429, "Too many requests. Please slow down.", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
