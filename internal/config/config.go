// Package config defines the service configuration. Loading lives in
// loader.go and defaults in defaults.go; this file holds only data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/analysis"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig locates every directory the service writes to.
type StorageConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	ModelDir    string `mapstructure:"model_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// CatalogConfig points at an alternative survey catalog. Empty means the
// catalog embedded in the binary.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// ClusteringConfig controls k-means fitting.
type ClusteringConfig struct {
	K         int     `mapstructure:"k"`
	Seed      int64   `mapstructure:"seed"`
	NInit     int     `mapstructure:"n_init"`
	MaxIter   int     `mapstructure:"max_iter"`
	Tolerance float64 `mapstructure:"tolerance"`
	ElbowMaxK int     `mapstructure:"elbow_max_k"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables Redis
// and rate limiting falls back to in-process limiters.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// Consecutive failed calls before Redis is bypassed, and how long it
	// stays bypassed.
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerRecovery time.Duration `mapstructure:"breaker_recovery"`
}

// RateLimitConfig sets per-client request limits.
type RateLimitConfig struct {
	UploadsPerMinute  int `mapstructure:"uploads_per_minute"`
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	BurstMultiplier   int `mapstructure:"burst_multiplier"`
}

// CacheConfig controls the read-endpoint response cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `mapstructure:"level"` // "debug" | "info" | "warn" | "error"
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Clustering ClusteringConfig `mapstructure:"clustering"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
}

// KMeans converts the clustering section into the analysis configuration.
func (c *Config) KMeans() analysis.KMeansConfig {
	return analysis.KMeansConfig{
		K:         c.Clustering.K,
		Seed:      c.Clustering.Seed,
		NInit:     c.Clustering.NInit,
		MaxIter:   c.Clustering.MaxIter,
		Tolerance: c.Clustering.Tolerance,
	}
}

// MaxUploadBytes is the upload body limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Storage.MaxUploadMB << 20
}

// Validate returns the first semantic problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.Storage.DataDir == "" || c.Storage.ModelDir == "" || c.Storage.OutputDir == "" {
		return fmt.Errorf("config: storage.data_dir, storage.model_dir and storage.output_dir are required")
	}
	if c.Storage.MaxUploadMB < 1 {
		return fmt.Errorf("config: storage.max_upload_mb must be >= 1, got %d", c.Storage.MaxUploadMB)
	}

	// Cluster labels are defined for exactly three clusters.
	if c.Clustering.K != 3 {
		return fmt.Errorf("config: clustering.k must be 3, got %d", c.Clustering.K)
	}
	if c.Clustering.NInit < 1 || c.Clustering.MaxIter < 1 {
		return fmt.Errorf("config: clustering.n_init and clustering.max_iter must be >= 1")
	}
	if c.Clustering.Tolerance <= 0 {
		return fmt.Errorf("config: clustering.tolerance must be positive, got %g", c.Clustering.Tolerance)
	}
	if c.Clustering.ElbowMaxK < 1 {
		return fmt.Errorf("config: clustering.elbow_max_k must be >= 1, got %d", c.Clustering.ElbowMaxK)
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}
	if c.Redis.PoolSize < 1 || c.Redis.BreakerFailures < 1 {
		return fmt.Errorf("config: redis.pool_size and redis.breaker_failures must be >= 1")
	}

	if c.RateLimit.UploadsPerMinute < 1 || c.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("config: ratelimit limits must be >= 1")
	}
	if c.RateLimit.BurstMultiplier < 1 {
		return fmt.Errorf("config: ratelimit.burst_multiplier must be >= 1, got %d", c.RateLimit.BurstMultiplier)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive, got %s", c.Cache.TTL)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	return nil
}
