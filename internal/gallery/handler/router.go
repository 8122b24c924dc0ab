package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/narwhalmedia/gallery/pkg/auth"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/logger"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// NewRouter builds the gin engine: health and metrics are public, the
// album and photo routes require authentication.
func NewRouter(
	h *HTTPHandler,
	resolver auth.Resolver,
	log interfaces.Logger,
	gatherer prometheus.Gatherer,
	health HealthCheck,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log), ErrorMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				log.WithContext(c.Request.Context()).Warn("Health check failed", interfaces.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("")
	api.Use(auth.GinMiddleware(resolver, log))
	h.RegisterRoutes(api)

	return r
}
