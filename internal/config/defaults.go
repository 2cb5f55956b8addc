package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultServerPort      = 8080
	DefaultServerMode      = "release"
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDataDir     = "./data"
	DefaultMaxUploadMB = 20

	DefaultClusterK         = 3
	DefaultClusterSeed      = 42
	DefaultClusterNInit     = 10
	DefaultClusterMaxIter   = 300
	DefaultClusterTolerance = 1e-4
	DefaultElbowMaxK        = 10

	DefaultUploadsPerMinute  = 10
	DefaultRequestsPerMinute = 120
	DefaultBurstMultiplier   = 2

	DefaultRedisPoolSize        = 10
	DefaultRedisDialTimeout     = 5 * time.Second
	DefaultRedisBreakerFailures = 5
	DefaultRedisBreakerRecovery = 30 * time.Second

	DefaultCacheTTL = 15 * time.Minute

	DefaultLogLevel = "info"
)

// registerDefaults makes every key known to v so AutomaticEnv resolves it
// during Unmarshal even when no config file mentions it.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("storage.data_dir", DefaultDataDir)
	v.SetDefault("storage.model_dir", "")
	v.SetDefault("storage.output_dir", "")
	v.SetDefault("storage.max_upload_mb", DefaultMaxUploadMB)

	v.SetDefault("catalog.path", "")

	v.SetDefault("clustering.k", DefaultClusterK)
	v.SetDefault("clustering.seed", DefaultClusterSeed)
	v.SetDefault("clustering.n_init", DefaultClusterNInit)
	v.SetDefault("clustering.max_iter", DefaultClusterMaxIter)
	v.SetDefault("clustering.tolerance", DefaultClusterTolerance)
	v.SetDefault("clustering.elbow_max_k", DefaultElbowMaxK)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	v.SetDefault("redis.dial_timeout", DefaultRedisDialTimeout)
	v.SetDefault("redis.breaker_failures", DefaultRedisBreakerFailures)
	v.SetDefault("redis.breaker_recovery", DefaultRedisBreakerRecovery)

	v.SetDefault("ratelimit.uploads_per_minute", DefaultUploadsPerMinute)
	v.SetDefault("ratelimit.requests_per_minute", DefaultRequestsPerMinute)
	v.SetDefault("ratelimit.burst_multiplier", DefaultBurstMultiplier)

	v.SetDefault("cache.ttl", DefaultCacheTTL)

	v.SetDefault("log.level", DefaultLogLevel)
}

// ApplyDefaults fills zero-value fields in cfg. Explicitly set fields win.
// Model and output directories default to subdirectories of the data dir.
// The clustering seed is left alone: zero is a valid seed.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir
	}
	if cfg.Storage.ModelDir == "" {
		cfg.Storage.ModelDir = filepath.Join(cfg.Storage.DataDir, "models")
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = filepath.Join(cfg.Storage.DataDir, "output")
	}
	if cfg.Storage.MaxUploadMB == 0 {
		cfg.Storage.MaxUploadMB = DefaultMaxUploadMB
	}

	if cfg.Clustering.K == 0 {
		cfg.Clustering.K = DefaultClusterK
	}
	if cfg.Clustering.NInit == 0 {
		cfg.Clustering.NInit = DefaultClusterNInit
	}
	if cfg.Clustering.MaxIter == 0 {
		cfg.Clustering.MaxIter = DefaultClusterMaxIter
	}
	if cfg.Clustering.Tolerance == 0 {
		cfg.Clustering.Tolerance = DefaultClusterTolerance
	}
	if cfg.Clustering.ElbowMaxK == 0 {
		cfg.Clustering.ElbowMaxK = DefaultElbowMaxK
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.BreakerFailures == 0 {
		cfg.Redis.BreakerFailures = DefaultRedisBreakerFailures
	}
	if cfg.Redis.BreakerRecovery == 0 {
		cfg.Redis.BreakerRecovery = DefaultRedisBreakerRecovery
	}

	if cfg.RateLimit.UploadsPerMinute == 0 {
		cfg.RateLimit.UploadsPerMinute = DefaultUploadsPerMinute
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RateLimit.BurstMultiplier == 0 {
		cfg.RateLimit.BurstMultiplier = DefaultBurstMultiplier
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{Clustering: ClusteringConfig{Seed: DefaultClusterSeed}}
	ApplyDefaults(cfg)
	return cfg
}
