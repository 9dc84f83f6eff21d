// Package api serves the operational endpoints: health probes and Prometheus metrics.
package api

import (
	"net/http"

	"tasktrack/api/health"
	"tasktrack/api/middleware"
	"tasktrack/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router Route configuration
type Router struct {
	engine           *gin.Engine
	config           *config.Config
	healthController *health.Controller
	gatherer         prometheus.Gatherer
}

// NewRouter Create route configuration
func NewRouter(cfg *config.Config, healthController *health.Controller, gatherer prometheus.Gatherer) *Router {
	// Set Gin mode based on environment
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Request id first so recovery and access logs carry it.
	engine.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(),
		middleware.LoggingMiddleware("/health/live", "/health/ready", "/metrics"),
	)

	r := &Router{
		engine:           engine,
		config:           cfg,
		healthController: healthController,
		gatherer:         gatherer,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.healthController.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/health",
			"metrics": "/metrics",
		})
	})
}

// Handler returns the HTTP handler serving every route.
func (r *Router) Handler() http.Handler {
	return r.engine
}
