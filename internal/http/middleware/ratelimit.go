package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to its rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByClient buckets by ClientKey so the limiter and the idempotency store
// agree on who a client is.
func KeyByClient() keyFunc {
	return ClientKey
}

const (
	bucketIdleTTL  = 10 * time.Minute
	sweepEvery     = time.Minute
	maxRetryAfterS = 3600
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client key in process memory.
// Buckets idle for longer than ten minutes are dropped by a sweep that runs
// at most once a minute, piggybacking on incoming requests.
type RateLimiter struct {
	limit rate.Limit
	burst int
	keyFn keyFunc
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter allows rps requests per second per key with the given burst.
// rps <= 0 turns limiting off. burst < 1 is raised to 1.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if keyFn == nil {
		keyFn = ClientKey
	}
	return &RateLimiter{
		limit:   limit,
		burst:   max(burst, 1),
		keyFn:   keyFn,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= bucketIdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// size is the number of live buckets.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether the request skips rate limiting, which is the
// case for idempotent replays.
func IsRateBypass(c *gin.Context) bool {
	return IsReplay(c)
}

// Handler enforces the limit. A rejected request gets 429 with a Retry-After
// header holding the whole seconds until a token is available.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		res := rl.limiterFor(rl.keyFn(c), now).ReserveN(now, 1)
		delay := res.DelayFrom(now)
		if res.OK() && delay == 0 {
			c.Next()
			return
		}
		// Give the token back: the request is not going to be served.
		res.CancelAt(now)

		c.Header("Retry-After", retryAfter(delay, res.OK()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success":    false,
			"error":      "Too many requests",
			"code":       "too_many_requests",
			"request_id": RequestIDFrom(c),
		})
	}
}

func retryAfter(delay time.Duration, ok bool) string {
	if !ok {
		return strconv.Itoa(maxRetryAfterS)
	}
	secs := int(math.Ceil(delay.Seconds()))
	return strconv.Itoa(min(max(secs, 1), maxRetryAfterS))
}
