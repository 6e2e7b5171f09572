package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"consultancy-backend/pkg/apperror"
	"consultancy-backend/pkg/logger"
	"consultancy-backend/pkg/redis"
	"consultancy-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Custom key extractor (default: IP-based)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis (default: "rl:contact:")
	KeyPrefix string
	// Whether to fail closed (reject) when Redis is unavailable
	FailClosed bool
	// Redis overrides the process-wide client; nil uses redis.Client()
	Redis *goredis.Client
	// Audit receives rate_limit_triggered events; nil uses the default logger
	Audit *security.SecurityLogger
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

// ContactRateLimitConfig limits form submissions per client IP.
func ContactRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	return RateLimitConfig{
		Limit:      limit,
		Window:     window,
		KeyPrefix:  "rl:contact:",
		FailClosed: false, // availability of the form wins over strict limiting
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// RateLimitMiddleware creates a rate limiting middleware with the given config.
// Uses Redis when available, falls back to an in-process token bucket when not.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	audit := config.Audit
	if audit == nil {
		audit = security.DefaultLogger()
	}
	fallback := newLimiterStore(config.Limit, config.Window)

	return func(c *gin.Context) {
		fullKey := config.KeyPrefix + config.KeyFunc(c)

		client := config.Redis
		if client == nil {
			client = redis.Client()
		}

		var (
			allowed    bool
			remaining  int
			retryAfter time.Duration
		)
		if client != nil {
			count, resetIn, err := checkRateLimitRedis(c.Request.Context(), client, fullKey, config)
			if err == nil {
				allowed = count <= config.Limit
				remaining = config.Limit - count
				retryAfter = resetIn
			} else if config.FailClosed {
				logger.Log.Error("Rate limit store unavailable", "error", err)
				_ = c.Error(apperror.New(http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", err))
				c.Abort()
				return
			} else {
				logger.Log.Warn("Rate limit store unavailable, using in-memory limiter", "error", err)
				allowed, remaining, retryAfter = fallback.take(fullKey, time.Now())
			}
		} else {
			allowed, remaining, retryAfter = fallback.take(fullKey, time.Now())
		}

		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))

			audit.LogRateLimitTriggered(
				c.Request.Context(),
				c.ClientIP(),
				c.GetHeader("User-Agent"),
				security.RequestIDFromContext(c.Request.Context()),
				c.FullPath(),
			)
			_ = c.Error(apperror.TooManyRequests("Too many submissions. Please try again later."))
			c.Abort()
			return
		}

		c.Next()
	}
}

// checkRateLimitRedis checks rate limit using Redis with atomic Lua script
func checkRateLimitRedis(ctx context.Context, client *goredis.Client, key string, config RateLimitConfig) (int, time.Duration, error) {
	ttlSeconds := int(config.Window.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := client.Eval(ctx, rateLimitLuaScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, 0, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)
	return int(count), time.Duration(ttl) * time.Second, nil
}

// limiterStore keeps one token bucket per key. Idle buckets are pruned on access.
type limiterStore struct {
	mu          sync.Mutex
	entries     map[string]*limiterEntry
	every       rate.Limit
	burst       int
	idleTTL     time.Duration
	lastCleanup time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(limit int, window time.Duration) *limiterStore {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &limiterStore{
		entries: make(map[string]*limiterEntry),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		idleTTL: 2 * window,
	}
}

func (s *limiterStore) take(key string, now time.Time) (allowed bool, remaining int, retryAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastCleanup) > s.idleTTL {
		for k, ent := range s.entries {
			if now.Sub(ent.lastSeen) > s.idleTTL {
				delete(s.entries, k)
			}
		}
		s.lastCleanup = now
	}

	ent, ok := s.entries[key]
	if !ok {
		ent = &limiterEntry{lim: rate.NewLimiter(s.every, s.burst)}
		s.entries[key] = ent
	}
	ent.lastSeen = now

	r := ent.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}
	return true, int(ent.lim.TokensAt(now)), 0
}
