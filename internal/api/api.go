// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/rlqty/internal/api/handlers"
	"github.com/andresuchdata/rlqty/internal/api/middleware"
	"github.com/andresuchdata/rlqty/internal/config"
	"github.com/andresuchdata/rlqty/internal/metrics"
	"github.com/andresuchdata/rlqty/internal/service"
)

type Services struct {
	Replenishment *service.ReplenishmentService
}

// RouterOptions carries the optional pieces of the HTTP stack.
type RouterOptions struct {
	AllowedOrigins []string
	Planner        config.PlannerConfig
	RequestTimeout time.Duration
	MaxUploadBytes int64
	RateLimit      gin.HandlerFunc
	Metrics        *metrics.Metrics
}

func NewRouter(services *Services, opts RouterOptions) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}
	if opts.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = opts.MaxUploadBytes
	}

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader, "X-Run-ID", "X-Skipped-Products"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(opts.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	apiGroup := router.Group("/api/v1")
	if opts.RateLimit != nil {
		apiGroup.Use(opts.RateLimit)
	}
	apiGroup.Use(middleware.Timeout(opts.RequestTimeout))

	if services != nil && services.Replenishment != nil {
		h := handlers.NewReplenishmentHandler(services.Replenishment, opts.Planner)
		group := apiGroup.Group("/replenishment")
		{
			group.POST("/calculate", h.Calculate)
			group.GET("/calendar", h.Calendar)
			group.POST("/calendar", h.CalendarBatch)
			group.DELETE("/cache", h.InvalidateCache)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
