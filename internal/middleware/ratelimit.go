package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fad-monitoring-backend/internal/metrics"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	refund     func()
}

// Refund gives the consumed request back to the budget
func (d Decision) Refund() {
	if d.refund != nil {
		d.refund()
	}
}

// Limiter grants requests against a per-key budget
type Limiter interface {
	Take(ctx context.Context, key string) (Decision, error)
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	limit   int
	every   rate.Limit
	window  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter allows limit requests per window with the bucket refilling evenly
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		limit:   limit,
		every:   rate.Every(window / time.Duration(limit)),
		window:  window,
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Take(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{limiter: rate.NewLimiter(m.every, m.limit)}
		m.entries[key] = entry
	}
	entry.lastSeen = now
	m.mu.Unlock()

	d := Decision{Limit: m.limit}
	res := entry.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
		res.CancelAt(now)
		d.RetryAfter = delay
		return d, nil
	}
	d.Allowed = true
	d.Remaining = int(math.Max(0, math.Floor(entry.limiter.TokensAt(now))))
	// cancelling at the reservation instant returns the token
	d.refund = func() { res.CancelAt(now) }
	return d, nil
}

// Sweep drops buckets idle for a full window
func (m *MemoryLimiter) Sweep() {
	cutoff := m.now().Add(-m.window)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(m.entries, key)
		}
	}
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {current, ttl}
`)

// RedisLimiter counts requests in a fixed window shared by every instance
type RedisLimiter struct {
	rdb    redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (r *RedisLimiter) Take(ctx context.Context, key string) (Decision, error) {
	redisKey := r.prefix + ":" + key
	vals, err := fixedWindowScript.Run(ctx, r.rdb, []string{redisKey}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result %v", vals)
	}

	count, ttl := vals[0], time.Duration(vals[1])*time.Millisecond
	d := Decision{Limit: r.limit}
	if count > int64(r.limit) {
		d.RetryAfter = ttl
		return d, nil
	}
	d.Allowed = true
	d.Remaining = r.limit - int(count)
	d.RetryAfter = ttl
	d.refund = func() {
		_ = r.rdb.Decr(context.Background(), redisKey).Err()
	}
	return d, nil
}

// RateLimitOptions configures one named limiter middleware
type RateLimitOptions struct {
	Name           string
	Message        string
	SkipSuccessful bool
}

// RateLimit enforces limiter per client IP. Limiter errors let the request through.
func RateLimit(limiter Limiter, opts RateLimitOptions, log logrus.FieldLogger) gin.HandlerFunc {
	if opts.Message == "" {
		opts.Message = "Too many requests from this IP, please try again later."
	}
	return func(c *gin.Context) {
		key := opts.Name + ":" + c.ClientIP()
		d, err := limiter.Take(c.Request.Context(), key)
		if err != nil {
			log.WithError(err).WithField("limiter", opts.Name).Warn("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			metrics.RecordRateLimited(opts.Name)
			log.WithFields(logrus.Fields{
				"limiter": opts.Name,
				"ip":      c.ClientIP(),
				"path":    c.FullPath(),
				"method":  c.Request.Method,
			}).Warn("rate limit exceeded")
			utils.ErrorResponse(c, http.StatusTooManyRequests, opts.Message)
			c.Abort()
			return
		}
		if d.RetryAfter > 0 {
			c.Header("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
		}

		c.Next()

		if opts.SkipSuccessful && c.Writer.Status() < http.StatusBadRequest {
			d.Refund()
		}
	}
}

// Passthrough disables rate limiting
func Passthrough() gin.HandlerFunc {
	return func(c *gin.Context) { c.Next() }
}
