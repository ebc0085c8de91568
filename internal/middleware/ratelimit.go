// ratelimit.go provides Gin middleware that enforces per-client rate limits,
// returning 429 responses when the configured requests-per-minute threshold is exceeded.
// Limits are kept in process memory, or in Redis when several replicas must
// share them.
package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/safego"
)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	// Limit is the configured requests per minute, reported in X-RateLimit-Limit
	Limit() int
	Close() error
}

// RateLimitConfig holds configuration for the in-memory limiter
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate
	RequestsPerMinute int
	// BurstSize is the bucket capacity
	BurstSize int
	// CleanupInterval is how often idle clients are forgotten
	CleanupInterval time.Duration
}

// NewLimiter builds the limiter selected by cfg: Redis-backed when a Redis
// address is configured, in-memory otherwise
func NewLimiter(cfg *config.RateLimitingConfig) Limiter {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisLimiter(client, cfg.RequestsPerMinute, cfg.Burst)
	}
	return NewMemoryLimiter(RateLimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		BurstSize:         cfg.Burst,
		CleanupInterval:   5 * time.Minute,
	})
}

// rateLimitEntry tracks the bucket of a single client
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
}

// MemoryLimiter implements a token bucket per client in process memory
type MemoryLimiter struct {
	config   RateLimitConfig
	entries  map[string]*rateLimitEntry
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter creates an in-memory limiter and starts its cleanup loop
func NewMemoryLimiter(cfg RateLimitConfig) *MemoryLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	rl := &MemoryLimiter{
		config:  cfg,
		entries: make(map[string]*rateLimitEntry),
		stopCh:  make(chan struct{}),
	}
	safego.Go("ratelimit-cleanup", rl.cleanup)
	return rl
}

// cleanup periodically removes clients idle for more than 10 minutes
func (rl *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, entry := range rl.entries {
				if now.Sub(entry.lastUpdate) > 10*time.Minute {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryLimiter) Close() error {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	return nil
}

// Limit implements Limiter
func (rl *MemoryLimiter) Limit() int { return rl.config.RequestsPerMinute }

func (rl *MemoryLimiter) perSecond() float64 {
	return float64(rl.config.RequestsPerMinute) / 60.0
}

// Allow implements Limiter
func (rl *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	burst := float64(rl.config.BurstSize)
	entry, exists := rl.entries[key]
	if !exists {
		entry = &rateLimitEntry{tokens: burst, lastUpdate: now}
		rl.entries[key] = entry
	}

	elapsed := now.Sub(entry.lastUpdate)
	entry.tokens = math.Min(burst, entry.tokens+elapsed.Seconds()*rl.perSecond())
	entry.lastUpdate = now

	if entry.tokens >= 1 {
		entry.tokens--
		return Decision{Allowed: true, Remaining: int(entry.tokens)}, nil
	}

	var retry time.Duration
	if rate := rl.perSecond(); rate > 0 {
		retry = time.Duration((1 - entry.tokens) / rate * float64(time.Second))
	}
	return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
}

// RedisLimiter shares limits between replicas using the GCRA implementation
// of redis_rate
type RedisLimiter struct {
	client  *redis.Client
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(client *redis.Client, requestsPerMinute, burst int) *RedisLimiter {
	return &RedisLimiter{
		client:  client,
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   requestsPerMinute,
			Burst:  burst,
			Period: time.Minute,
		},
	}
}

// Allow implements Limiter
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := rl.limiter.Allow(ctx, "ratelimit:"+key, rl.limit)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Allowed: res.Allowed > 0, Remaining: res.Remaining}
	if !d.Allowed {
		d.RetryAfter = res.RetryAfter
	}
	return d, nil
}

// Limit implements Limiter
func (rl *RedisLimiter) Limit() int { return rl.limit.Rate }

// Close closes the Redis client
func (rl *RedisLimiter) Close() error { return rl.client.Close() }

// RateLimitMiddleware creates a Gin middleware that rate limits requests by
// client IP. Limiter errors let the request through.
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)

		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retry,
			})
			return
		}

		c.Next()
	}
}

// getRateLimitKey keys on the client IP. The wizard has no authenticated users.
func getRateLimitKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
