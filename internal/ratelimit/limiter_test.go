package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/config"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/resilience"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFallbackLimiter(t *testing.T, config Config) *RateLimiter {
	t.Helper()
	limiter := NewRateLimiter(newRedisClient(nil, testRedisConfig("")), config, monitoring.NewMetrics())
	t.Cleanup(limiter.Close)
	return limiter
}

func testRedisConfig(addr string) config.RedisConfig {
	cfg := config.Default().Redis
	cfg.Addr = addr
	cfg.DialTimeout = 100 * time.Millisecond
	return cfg
}

// unreachableRedis is an enabled client whose every command fails fast.
func unreachableRedis(t *testing.T, failures int) *RedisClient {
	t.Helper()
	cfg := testRedisConfig("127.0.0.1:1")
	cfg.BreakerFailures = failures
	client := newRedisClient(redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		MaxRetries:  -1,
		DialTimeout: cfg.DialTimeout,
	}), cfg)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewRedisClient_Disabled(t *testing.T) {
	client, err := NewRedisClient(testRedisConfig(""))
	require.NoError(t, err)
	assert.False(t, client.IsEnabled())
	assert.ErrorIs(t, client.HealthCheck(context.Background()), ErrRedisDisabled)
	assert.ErrorIs(t, client.Call(func() error { return nil }), ErrRedisDisabled)
	assert.Equal(t, false, client.GetPoolStats()["enabled"])
	assert.NoError(t, client.Close())
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	client, err := NewRedisClient(testRedisConfig("127.0.0.1:1"))
	require.Error(t, err)
	require.NotNil(t, client)
	assert.False(t, client.IsEnabled(), "a failed ping leaves a usable disabled client")
}

func TestRedisClient_HealthCheckReportsOpenBreaker(t *testing.T) {
	client := unreachableRedis(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := client.HealthCheck(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)
	}

	err := client.HealthCheck(ctx)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Contains(t, err.Error(), "2 consecutive failures")
	assert.Equal(t, resilience.StateOpen, client.BreakerState())

	stats := client.GetPoolStats()
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, "open", stats["breaker"].(map[string]interface{})["state"])
}

func TestRateLimiterFallbackMode(t *testing.T) {
	limiter := newFallbackLimiter(t, DefaultConfig())
	ctx := context.Background()
	rateLimit := Rate{Limit: 5, Period: time.Minute}

	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, "test:ip:1", rateLimit)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 4-i, result.Remaining)
	}

	result, err := limiter.Allow(ctx, "test:ip:1", rateLimit)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, result.RetryAfter, 12*time.Second)
}

func TestRateLimiterBurstCapacity(t *testing.T) {
	limiter := newFallbackLimiter(t, DefaultConfig())
	ctx := context.Background()
	rateLimit := PerMinute(5, 2)

	allowed := 0
	for i := 0; i < 15; i++ {
		result, err := limiter.Allow(ctx, "test:burst", rateLimit)
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		}
	}

	assert.Equal(t, 10, allowed)
}

func TestRateLimiterMultipleKeys(t *testing.T) {
	limiter := newFallbackLimiter(t, DefaultConfig())
	ctx := context.Background()
	rateLimit := Rate{Limit: 3, Period: time.Minute}

	for _, key := range []string{"ip:1", "ip:2", "ip:3"} {
		for i := 0; i < 3; i++ {
			result, err := limiter.Allow(ctx, key, rateLimit)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "key %s request %d should be allowed", key, i+1)
		}

		result, err := limiter.Allow(ctx, key, rateLimit)
		require.NoError(t, err)
		assert.False(t, result.Allowed, "key %s 4th request should be blocked", key)
	}
}

func TestRateLimiterInvalidRate(t *testing.T) {
	limiter := newFallbackLimiter(t, DefaultConfig())

	tests := []struct {
		name string
		rate Rate
	}{
		{name: "zero limit", rate: Rate{Limit: 0, Period: time.Minute}},
		{name: "zero period", rate: Rate{Limit: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := limiter.Allow(context.Background(), "k", tt.rate)
			assert.Error(t, err)
		})
	}
}

func TestRateLimiterStats(t *testing.T) {
	limiter := newFallbackLimiter(t, DefaultConfig())

	for i := 0; i < 3; i++ {
		_, _ = limiter.Allow(context.Background(), fmt.Sprintf("test:stats:%d", i), Rate{Limit: 5, Period: time.Minute})
	}

	stats := limiter.GetStats()
	assert.False(t, stats["redis_enabled"].(bool))
	assert.Equal(t, 3, stats["fallback_limiters"])

	statsConfig := stats["config"].(map[string]interface{})
	assert.Equal(t, 120, statsConfig["requests_per_minute"])
	assert.Equal(t, 10, statsConfig["uploads_per_minute"])
}

func TestRateLimiterCleanup(t *testing.T) {
	config := DefaultConfig()
	config.CleanupInterval = time.Minute
	limiter := newFallbackLimiter(t, config)

	start := time.Now()
	rateLimit := Rate{Limit: 5, Period: time.Minute}
	limiter.allowFallback("idle", rateLimit, start)
	limiter.allowFallback("active", rateLimit, start.Add(50*time.Second))

	assert.Equal(t, 1, limiter.cleanup(start.Add(90*time.Second)))
	assert.Equal(t, 1, limiter.GetStats()["fallback_limiters"])
}

func TestRateLimiterConcurrency(t *testing.T) {
	limiter := newFallbackLimiter(t, DefaultConfig())
	rateLimit := Rate{Limit: 100, Period: time.Hour}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				result, err := limiter.Allow(context.Background(), "test:concurrent", rateLimit)
				assert.NoError(t, err)
				if result != nil && result.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := newFallbackLimiter(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := limiter.Allow(ctx, "test:cancelled", Rate{Limit: 5, Period: time.Minute})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestUploadRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config := DefaultConfig()
	config.UploadsPerMinute = 2
	config.BurstMultiplier = 1
	limiter := newFallbackLimiter(t, config)

	router := gin.New()
	router.POST("/api/datasets", limiter.UploadRateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	tests := []struct {
		name      string
		ip        string
		status    int
		remaining string
	}{
		{name: "first upload", ip: "10.0.0.1", status: http.StatusAccepted, remaining: "1"},
		{name: "second upload", ip: "10.0.0.1", status: http.StatusAccepted, remaining: "0"},
		{name: "third upload is blocked", ip: "10.0.0.1", status: http.StatusTooManyRequests, remaining: "0"},
		{name: "other client unaffected", ip: "10.0.0.2", status: http.StatusAccepted, remaining: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/datasets", nil)
			req.RemoteAddr = tt.ip + ":1234"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, tt.remaining, w.Header().Get("X-RateLimit-Remaining"))

			if tt.status == http.StatusTooManyRequests {
				assert.NotEmpty(t, w.Header().Get("Retry-After"))

				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
				assert.Equal(t, "rate_limit", body["category"])
			}
		})
	}
}

func TestRateLimiter_RedisFailureTripsBreaker(t *testing.T) {
	client := unreachableRedis(t, 5)

	limiter := NewRateLimiter(client, DefaultConfig(), nil)
	defer limiter.Close()

	r := PerMinute(100, 1)
	for i := 0; i < 6; i++ {
		result, err := limiter.Allow(context.Background(), "ip:203.0.113.9", r)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "fallback must keep serving while Redis is down")
	}

	assert.Equal(t, resilience.StateOpen, client.BreakerState())
	pool := limiter.GetStats()["redis_pool"].(map[string]interface{})
	assert.Equal(t, "open", pool["breaker"].(map[string]interface{})["state"])

	err := client.HealthCheck(context.Background())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen, "health sees the breaker the limiter opened")
}
