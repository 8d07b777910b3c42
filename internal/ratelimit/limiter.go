// Package ratelimit bounds public intake traffic per client IP with a fixed
// one-minute window. Redis backs the counters when configured so the limit
// holds across replicas; a process-local fallback covers single-node runs.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result reports one admission decision.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits or rejects one request from the given IP.
type Limiter interface {
	Allow(ctx context.Context, ip string) (Result, error)
}

const window = time.Minute

// RedisLimiter counts requests per IP in Redis. The first hit in a window
// creates the key with a TTL; the TTL doubles as the Retry-After hint.
type RedisLimiter struct {
	client *redis.Client
	limit  int
}

func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: perMinute}
}

func (l *RedisLimiter) Allow(ctx context.Context, ip string) (Result, error) {
	key := "arcop:ratelimit:" + ip

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return Result{}, fmt.Errorf("set rate limit window: %w", err)
		}
	}

	if count > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - int(count)}, nil
}

// MemoryLimiter is the in-process fallback when no Redis URL is configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	counts  map[string]int
	resetAt map[string]time.Time
	now     func() time.Time
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   perMinute,
		counts:  make(map[string]int),
		resetAt: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, ip string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if reset, ok := l.resetAt[ip]; !ok || now.After(reset) {
		l.counts[ip] = 0
		l.resetAt[ip] = now.Add(window)
	}

	l.counts[ip]++
	if l.counts[ip] > l.limit {
		return Result{Allowed: false, RetryAfter: l.resetAt[ip].Sub(now)}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - l.counts[ip]}, nil
}
