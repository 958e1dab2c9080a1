package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/utils"
)

// RateLimitConfig drives the per-IP token bucket in front of the peer API.
type RateLimitConfig struct {
	Burst             int // bucket size, at least 1
	RefillPerIPPerMin int // tokens added per minute, at least 1
	MaxEntries        int // forces a sweep when this many IPs are tracked (0 = no cap)
	SweepInterval     time.Duration
	IdleTTL           time.Duration
	TrustProxy        bool // resolve IP from proxy headers when true

	Logger logger.Logger    // optional, logs throttled peers at debug level
	Now    func() time.Time // optional clock, defaults to time.Now
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 15 * time.Minute
	}
	c.Burst = max(c.Burst, 1)
	c.RefillPerIPPerMin = max(c.RefillPerIPPerMin, 1)
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}
	return c
}

type bucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	seen     time.Time
}

// take refills the bucket for the elapsed time and consumes one token.
// It returns the tokens left, or the seconds until one is available.
func (b *bucket) take(now time.Time, capacity, perSec float64) (bool, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dt := now.Sub(b.refilled).Seconds(); dt > 0 {
		b.tokens = math.Min(capacity, b.tokens+dt*perSec)
		b.refilled = now
	}
	b.seen = now

	if b.tokens < 1 {
		wait := int(math.Ceil((1 - b.tokens) / perSec))
		return false, 0, max(wait, 1)
	}
	b.tokens--
	return true, int(b.tokens), 0
}

type limiter struct {
	cfg      RateLimitConfig
	perSec   float64
	capacity float64

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	cfg = cfg.withDefaults()
	return &limiter{
		cfg:       cfg,
		perSec:    float64(cfg.RefillPerIPPerMin) / 60,
		capacity:  float64(cfg.Burst),
		buckets:   make(map[string]*bucket, 256),
		lastSweep: cfg.Now(),
	}
}

// bucketFor returns the bucket of key, evicting idle buckets when the
// sweep interval elapsed or the table is full.
func (l *limiter) bucketFor(key string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	full := l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries
	if full || now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		for k, b := range l.buckets {
			b.mu.Lock()
			idle := now.Sub(b.seen) > l.cfg.IdleTTL
			b.mu.Unlock()
			if idle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, refilled: now, seen: now}
		l.buckets[key] = b
	}
	return b
}

// RateLimit throttles requests per client IP with a token bucket.
// Throttled requests get 429 with Retry-After; every answer carries the
// X-RateLimit-Limit and X-RateLimit-Remaining headers.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := l.cfg.Now()
			ip := utils.ClientIP(r, l.cfg.TrustProxy)
			allowed, remaining, retry := l.bucketFor(ip, now).take(now, l.capacity, l.perSec)

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				l.cfg.Logger.Debug("rate limited",
					logger.String("ip", ip),
					logger.String("path", r.URL.Path),
					logger.Int("retry_after", retry))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				deny(w, http.StatusTooManyRequests, "rate limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
