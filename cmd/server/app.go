package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/artifacts"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/config"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/database"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/frontend"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/middleware"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/security"
	"github.com/gin-gonic/gin"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds every long-lived service the HTTP handlers share.
type app struct {
	cfg         *config.Config
	logger      *monitoring.Logger
	metrics     *monitoring.Metrics
	catalog     *catalog.Catalog
	analyzer    *analysis.Analyzer
	predictor   *analysis.Predictor
	store       *artifacts.Store
	db          *database.DB
	runs        *database.RunService
	cache       *cache.Cache
	redis       *ratelimit.RedisClient
	limiter     *ratelimit.RateLimiter
	security    *security.SecurityMiddleware
	compression *middleware.CompressionMiddleware
	ui          gin.HandlerFunc
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

// newApp wires the services described by cfg. Redis is optional: an
// unreachable server only downgrades rate limiting to in-process.
func newApp(cfg *config.Config, logger *monitoring.Logger) (*app, error) {
	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to load question catalog", err)
	}

	dist, err := frontend.GetDistFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded UI: %w", err)
	}
	ui, err := frontend.NewHandler(dist)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	store, err := artifacts.NewStore(cfg.Storage.ModelDir)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}

	redisClient, err := ratelimit.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}

	metrics := monitoring.NewMetrics()
	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		UploadsPerMinute:  cfg.RateLimit.UploadsPerMinute,
		BurstMultiplier:   cfg.RateLimit.BurstMultiplier,
	}, metrics)

	secConfig := security.DefaultSecurityConfig()
	secConfig.MaxUploadBytes = cfg.MaxUploadBytes()

	logger.SystemLogger("startup", fmt.Sprintf("catalog with %d questions, models in %s", cat.Len(), store.Dir()))

	return &app{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		catalog:     cat,
		analyzer:    analysis.NewAnalyzer(cat, cfg.KMeans(), store, logger.Logger),
		predictor:   analysis.NewPredictor(cat),
		store:       store,
		db:          db,
		runs:        database.NewRunService(database.NewRepository(db)),
		cache:       cache.NewCache(cfg.Cache.TTL),
		redis:       redisClient,
		limiter:     limiter,
		security:    security.NewSecurityMiddleware(secConfig),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		ui:          ui,
	}, nil
}

// Close releases background goroutines and connections.
func (a *app) Close() {
	a.cache.Close()
	a.limiter.Close()
	errors.SafeClose(a.redis, "redis")
	errors.SafeClose(a.db, "database")
	slog.Info("Application resources released")
}
