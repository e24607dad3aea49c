// Package ratelimit throttles failed login attempts per client with a Redis
// sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/telhawk-systems/fwlens/api/internal/metrics"
)

const keyPrefix = "fwlens:login-failures:"

// RateLimiter tracks failures per key over a sliding window.
type RateLimiter interface {
	// Allow reports whether key is still under its failure budget.
	Allow(ctx context.Context, key string) (bool, error)
	// Hit records one failure for key.
	Hit(ctx context.Context, key string) error
	Close() error
}

// allowScript trims expired entries and compares the remaining count to the limit.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)
	local current = redis.call('ZCARD', key)

	if current < limit then
		return 1
	end
	return 0
`)

// hitScript records an entry and refreshes the key TTL to one window.
var hitScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local ttl_ms = tonumber(ARGV[2])

	redis.call('ZADD', key, now, ARGV[3])
	redis.call('PEXPIRE', key, ttl_ms)
	return 1
`)

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
	seq    atomic.Uint64
}

// Connect parses redisURL and pings the server.
func Connect(ctx context.Context, redisURL string, maxRetries, poolSize int) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if maxRetries > 0 {
		opt.MaxRetries = maxRetries
	}
	if poolSize > 0 {
		opt.PoolSize = poolSize
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// NewRedisRateLimiter allows at most limit failures per key within window.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

// Allow implements sliding window rate limiting using Redis
func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := r.now().Add(-r.window).UnixNano()

	result, err := allowScript.Run(ctx, r.client, []string{keyPrefix + key}, windowStart, r.limit).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed := result == 1
	if !allowed {
		metrics.RateLimitHits.Inc()
	}
	return allowed, nil
}

// Hit records a failure scored at the current time.
func (r *redisRateLimiter) Hit(ctx context.Context, key string) error {
	now := r.now().UnixNano()
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10)

	if err := hitScript.Run(ctx, r.client, []string{keyPrefix + key}, now, r.window.Milliseconds(), member).Err(); err != nil {
		return fmt.Errorf("rate limit record failed: %w", err)
	}
	return nil
}

func (r *redisRateLimiter) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// NoOpRateLimiter always allows requests (for testing or disabled rate limiting)
type NoOpRateLimiter struct{}

func (n *NoOpRateLimiter) Allow(context.Context, string) (bool, error) {
	return true, nil
}

func (n *NoOpRateLimiter) Hit(context.Context, string) error {
	return nil
}

func (n *NoOpRateLimiter) Close() error {
	return nil
}
