package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/config"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/resilience"
	"github.com/redis/go-redis/v9"
)

// ErrRedisDisabled is returned by calls on a client with no Redis behind it.
var ErrRedisDisabled = errors.New("redis is disabled")

// RedisClient is the shared connection behind the distributed limiter. Every
// call passes through a circuit breaker; while it is open, calls fail fast
// with resilience.ErrCircuitOpen and health reports the outage.
type RedisClient struct {
	client  *redis.Client
	addr    string
	breaker *resilience.CircuitBreaker
}

// NewRedisClient connects to cfg.Addr. An empty address yields a disabled
// client. A failed ping also yields a disabled client, alongside the error.
func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Addr == "" {
		slog.Warn("Redis address not configured, rate limits are kept per process")
		return newRedisClient(nil, cfg), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.PoolSize / 5,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return newRedisClient(nil, cfg), fmt.Errorf("redis ping %s failed: %w", cfg.Addr, err)
	}

	slog.Info("Redis connected", "addr", cfg.Addr, "db", cfg.DB, "pool_size", cfg.PoolSize)
	return newRedisClient(client, cfg), nil
}

func newRedisClient(client *redis.Client, cfg config.RedisConfig) *RedisClient {
	return &RedisClient{
		client: client,
		addr:   cfg.Addr,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerFailures,
			RecoveryTimeout:  cfg.BreakerRecovery,
		}),
	}
}

// GetClient returns the underlying Redis client, nil when disabled.
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// IsEnabled reports whether a Redis connection was established.
func (r *RedisClient) IsEnabled() bool {
	return r.client != nil
}

// Call runs fn through the breaker.
func (r *RedisClient) Call(fn func() error) error {
	if !r.IsEnabled() {
		return ErrRedisDisabled
	}
	return r.breaker.Call(fn)
}

// BreakerState is the current state of the Redis circuit breaker.
func (r *RedisClient) BreakerState() resilience.CircuitBreakerState {
	return r.breaker.State()
}

// HealthCheck pings Redis through the breaker. An open breaker is reported
// without touching the network.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	err := r.Call(func() error {
		return r.client.Ping(ctx).Err()
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w after %d consecutive failures", err, r.breaker.Failures())
	}
	return err
}

// Close closes the connection.
func (r *RedisClient) Close() error {
	if r.client == nil {
		return nil
	}
	slog.Info("Closing Redis client connection", "addr", r.addr)
	return r.client.Close()
}

// GetPoolStats returns connection pool and breaker statistics.
func (r *RedisClient) GetPoolStats() map[string]interface{} {
	if !r.IsEnabled() {
		return map[string]interface{}{"enabled": false}
	}

	pool := r.client.PoolStats()
	return map[string]interface{}{
		"enabled":     true,
		"addr":        r.addr,
		"hits":        pool.Hits,
		"misses":      pool.Misses,
		"timeouts":    pool.Timeouts,
		"total_conns": pool.TotalConns,
		"idle_conns":  pool.IdleConns,
		"breaker":     r.breaker.GetStats(),
	}
}
