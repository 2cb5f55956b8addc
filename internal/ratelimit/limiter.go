package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/resilience"
	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int           // per-IP limit across the API
	UploadsPerMinute  int           // per-IP limit for pipeline uploads
	BurstMultiplier   int           // burst capacity as a multiple of the per-minute limit
	CleanupInterval   time.Duration // how often idle fallback limiters are dropped
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		UploadsPerMinute:  10,
		BurstMultiplier:   2,
		CleanupInterval:   time.Hour,
	}
}

// Rate is a limit of Limit events per Period with an optional burst.
type Rate struct {
	Limit  int
	Burst  int
	Period time.Duration
}

// PerMinute builds a Rate of limit per minute with burst = limit*multiplier.
func PerMinute(limit, multiplier int) Rate {
	if multiplier < 1 {
		multiplier = 1
	}
	return Rate{Limit: limit, Burst: limit * multiplier, Period: time.Minute}
}

func (r Rate) burst() int {
	if r.Burst < 1 {
		return r.Limit
	}
	return r.Burst
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides distributed rate limiting with Redis and in-memory fallback
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.Mutex

	done chan struct{}
	once sync.Once
}

// NewRateLimiter creates a new rate limiter with Redis and in-memory fallback
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
		done:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	go rl.cleanupLoop()

	return rl
}

// Config returns the limiter configuration
func (rl *RateLimiter) Config() Config {
	return rl.config
}

// Allow checks one event for key against r, in Redis when available and
// in-process otherwise. Redis failures degrade to the in-process limiter, and
// repeated failures open the client's breaker until its recovery timeout.
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if r.Limit < 1 || r.Period <= 0 {
		return nil, fmt.Errorf("invalid rate %d per %s", r.Limit, r.Period)
	}

	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		var result *Result
		err := rl.redisClient.Call(func() error {
			var err error
			result, err = rl.allowRedis(ctx, key, r)
			return err
		})
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowFallback(key, r, time.Now()), nil
}

// allowRedis performs rate limiting using the redis_rate GCRA
func (rl *RateLimiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   r.Limit,
		Burst:  r.burst(),
		Period: r.Period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	result := &Result{
		Allowed:   res.Allowed > 0,
		Limit:     res.Limit.Rate,
		Remaining: res.Remaining,
		ResetAt:   time.Now().Add(res.ResetAfter),
	}
	if !result.Allowed {
		result.RetryAfter = res.RetryAfter
	}

	return result, nil
}

// allowFallback performs rate limiting using an in-memory token bucket
func (rl *RateLimiter) allowFallback(key string, r Rate, now time.Time) *Result {
	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists {
		every := rate.Every(r.Period / time.Duration(r.Limit))
		entry = &fallbackEntry{limiter: rate.NewLimiter(every, r.burst())}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMutex.Unlock()

	limiter := entry.limiter
	result := &Result{
		Allowed: limiter.AllowN(now, 1),
		Limit:   r.Limit,
	}

	tokens := limiter.TokensAt(now)
	if tokens > 0 {
		result.Remaining = int(tokens)
	}

	// Time until the bucket is full again.
	missing := float64(r.burst()) - tokens
	result.ResetAt = now.Add(time.Duration(missing / float64(limiter.Limit()) * float64(time.Second)))

	if !result.Allowed {
		res := limiter.ReserveN(now, 1)
		result.RetryAfter = res.DelayFrom(now)
		res.CancelAt(now)
	}

	return result
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.cleanup(now)
		}
	}
}

// cleanup drops fallback limiters idle for longer than the cleanup interval
func (rl *RateLimiter) cleanup(now time.Time) int {
	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	removed := 0
	for key, entry := range rl.fallbackLimiters {
		if now.Sub(entry.lastSeen) > rl.config.CleanupInterval {
			delete(rl.fallbackLimiters, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Cleaned up fallback rate limiters", "removed", removed, "remaining", len(rl.fallbackLimiters))
	}
	return removed
}

// Close stops the cleanup loop
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	stats := map[string]interface{}{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
		"config": map[string]interface{}{
			"requests_per_minute": rl.config.RequestsPerMinute,
			"uploads_per_minute":  rl.config.UploadsPerMinute,
			"burst_multiplier":    rl.config.BurstMultiplier,
		},
	}

	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.GetPoolStats()
	}

	return stats
}
