// Package server exposes the guard over HTTP for proxies and operators.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/SamuelRCrider/piiguard-go/core"
)

// Server is the HTTP surface of a Guard
type Server struct {
	guard      *core.Guard
	policyPath string
	router     *gin.Engine
}

// Option configures a Server
type Option func(*options)

type options struct {
	limiter *rate.Limiter
}

// WithRateLimit limits the /v1 endpoints to rps requests per second with
// the given burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New builds the router. policyPath is the only file POST /v1/policy/reload
// reads; an empty path disables the endpoint.
func New(guard *core.Guard, policyPath string, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		guard:      guard,
		policyPath: policyPath,
		router:     router,
	}
	SetupRoutes(router, guard, policyPath, o.limiter)
	return s
}

// SetupRoutes registers every endpoint on router. A nil limiter leaves the
// API unlimited.
func SetupRoutes(router *gin.Engine, guard *core.Guard, policyPath string, limiter *rate.Limiter) {
	router.GET("/healthz", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	if limiter != nil {
		v1.Use(rateLimit(limiter))
	}
	{
		v1.POST("/scan", HandleScan(guard))
		v1.POST("/enforce", HandleEnforce(guard))
		v1.POST("/inspect/:direction", HandleInspect(guard))
		v1.GET("/stats", HandleStats(guard))
		v1.POST("/policy/reload", HandleReload(guard, policyPath))
		v1.GET("/audit/recent", HandleRecentAudit(guard))
	}
}

// Handler returns the router as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("PII guard API listening", "addr", addr, "policy", s.policyPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Shutting down PII guard API")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
