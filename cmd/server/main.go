package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/config"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/monitoring"
	"github.com/gin-gonic/gin"
)

// @title           Survey-o-Meter API
// @version         1.0
// @description     Scores personality survey exports, clusters respondents and serves the fitted models.
// @BasePath        /
func main() {
	cfg, err := config.LoadDefault("")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger.Logger)
	gin.SetMode(cfg.Server.Mode)

	a, err := newApp(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: setupRouter(a),
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "version", version, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
