package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL evicts limiters of clients not seen for this long
	IdleTTL time.Duration
	// Exempt paths are never limited (metrics scrapes, the stream upgrade)
	Exempt []string
}

// DefaultRateLimitConfig returns the standard limits.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		Burst:             100,
		IdleTTL:           5 * time.Minute,
		Exempt:            []string{"/metrics", "/health", "/stream"},
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	cfg      RateLimitConfig
	mu       sync.Mutex
	visitors map[string]*visitor
}

func (s *limiterSet) get(ip string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.Burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *limiterSet) evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ip, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.cfg.IdleTTL {
			delete(s.visitors, ip)
		}
	}
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit creates a per-IP rate limiting middleware. Idle limiters are
// evicted until ctx is cancelled.
func RateLimit(ctx context.Context, cfg RateLimitConfig) gin.HandlerFunc {
	set := &limiterSet{cfg: cfg, visitors: make(map[string]*visitor)}
	if cfg.IdleTTL > 0 {
		go func() {
			ticker := time.NewTicker(cfg.IdleTTL)
			defer ticker.Stop()
			for {
				select {
				case now := <-ticker.C:
					set.evict(now)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return rateLimit(set)
}

func rateLimit(set *limiterSet) gin.HandlerFunc {
	exempt := make(map[string]struct{}, len(set.cfg.Exempt))
	for _, p := range set.cfg.Exempt {
		exempt[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		limiter := set.get(c.ClientIP(), time.Now())
		r := limiter.Reserve()
		if !r.OK() || r.Delay() > 0 {
			delay := r.Delay()
			r.Cancel()
			retry := int(math.Ceil(delay.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
