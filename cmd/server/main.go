package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/rlqty/internal/api"
	"github.com/andresuchdata/rlqty/internal/api/middleware"
	"github.com/andresuchdata/rlqty/internal/cache"
	"github.com/andresuchdata/rlqty/internal/config"
	"github.com/andresuchdata/rlqty/internal/metrics"
	"github.com/andresuchdata/rlqty/internal/pipeline"
	"github.com/andresuchdata/rlqty/internal/service"
	"github.com/andresuchdata/rlqty/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Report cache, shared redis client for the rate limiter
	reportCache, redisClient, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without it")
		reportCache, redisClient = cache.NewNoopReportCache(), nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	orchestrator := pipeline.NewOrchestrator(m)
	replenishmentService := service.NewReplenishmentService(orchestrator, reportCache, m)

	router, err := setupRouter(cfg, replenishmentService, m, redisClient)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to build router")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

func setupRouter(cfg *config.Config, svc *service.ReplenishmentService, m *metrics.Metrics, redisClient *redis.Client) (*gin.Engine, error) {
	var rateLimit gin.HandlerFunc
	if cfg.Server.RateLimit != "" {
		var err error
		rateLimit, err = middleware.RateLimit(cfg.Server.RateLimit, redisClient)
		if err != nil {
			return nil, err
		}
	}

	return api.NewRouter(&api.Services{Replenishment: svc}, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Planner:        cfg.Planner,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		RateLimit:      rateLimit,
		Metrics:        m,
	}), nil
}
