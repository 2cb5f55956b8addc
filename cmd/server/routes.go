package main

import (
	"github.com/ZanzyTHEbar/survey-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/monitoring"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// setupRouter builds the engine with the full middleware stack and every route.
func setupRouter(a *app) *gin.Engine {
	r := gin.New()
	sec := a.security

	// Monitoring first so it observes the final status of every request.
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(a.metrics, a.logger))

	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(sec.CORSConfig())
	r.Use(sec.SecurityHeaders)
	r.Use(sec.ValidateContentType)
	r.Use(a.compression.Handler())

	r.GET("/health", a.handleHealth)
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api", a.limiter.IPRateLimitMiddleware())

	cached := api.Group("", a.cache.Middleware(a.metrics, a.logger))
	cached.GET("/questions", a.handleQuestions)
	cached.GET("/categories", a.handleCategories)
	cached.GET("/models/:name", a.handleModelInfo)

	uploads := api.Group("/datasets", a.limiter.UploadRateLimitMiddleware(), sec.LimitUploadSize)
	uploads.POST("", a.handleRunPipeline)
	uploads.POST("/elbow", a.handleElbow)

	api.GET("/files/:name", a.handleDownload)
	api.GET("/models", a.handleListModels)
	api.POST("/models/:name/predict", sec.LimitUploadSize, a.handlePredict)
	api.GET("/runs", a.handleListRuns)
	api.GET("/runs/:id", a.handleGetRun)

	r.NoRoute(a.ui)

	return r
}
