// Package api wires together all HTTP routes for the registration service.
//
// Route grouping:
//   - /health, /ready and /version are probe endpoints. They are excluded from
//     the HTTP metrics and from rate limiting.
//   - /api/v1/ carries the registration wizard. It is unauthenticated; each
//     wizard step is unlocked by the signed step token returned by the previous
//     one. The group is rate limited per client IP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annotation-study/registration/internal/api/registrations"
	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/languages"
	"github.com/annotation-study/registration/internal/middleware"
	"github.com/annotation-study/registration/internal/wizard"
)

// Version is the service version reported by /version. It is overridden at
// build time with -ldflags "-X .../internal/api.Version=...".
var Version = "0.1.0"

// Pinger reports platform reachability for the readiness probe
type Pinger interface {
	Ping(ctx context.Context) bool
}

// Dependencies are the services the router hands to its handlers.
// Notifier may be nil.
type Dependencies struct {
	Languages   *languages.Table
	Content     registrations.ContentSource
	Tokens      *wizard.Tokens
	Provisioner registrations.Provisioner
	Notifier    registrations.Notifier
	Platform    Pinger
}

// BackgroundServices holds references to background resources that must be
// released during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	rateLimiter middleware.Limiter
}

// Shutdown releases background resources. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.rateLimiter != nil {
		if err := bg.rateLimiter.Close(); err != nil {
			slog.Warn("failed to close rate limiter", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware("/health", "/ready"))
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))

	// Probes
	router.GET("/health", healthCheckHandler())
	router.GET("/ready", readinessHandler(deps.Platform))
	router.GET("/version", versionHandler())

	apiV1 := router.Group("/api/v1")
	if cfg.Security.RateLimiting.Enabled {
		bg.rateLimiter = middleware.NewLimiter(&cfg.Security.RateLimiting)
		apiV1.Use(middleware.RateLimitMiddleware(bg.rateLimiter))
	}

	handlers := registrations.NewHandlers(cfg, deps.Languages, deps.Content, deps.Tokens, deps.Provisioner, deps.Notifier)
	handlers.RegisterRoutes(apiV1)

	return router, bg
}

// @Summary      Health check
// @Description  Liveness probe. Returns 200 while the process is serving requests.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the annotation platform answers. An unreachable platform does not stop registrations, but every account would need manual setup.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: platform not reachable"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
func readinessHandler(platform Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if platform == nil || !platform.Ping(c.Request.Context()) {
			checks["platform"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "platform not reachable",
			})
			return
		}
		checks["platform"] = "reachable"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the service and API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := redactQuery(c.Request.URL.Query())

		c.Next()

		latency := time.Since(start)
		logRequest(c, latency, path, query)
	}
}

// logRequest logs a request as a structured slog record. The output format
// follows the global handler configured in telemetry.SetupLogger.
func logRequest(c *gin.Context, latency time.Duration, path, query string) {
	level := slog.LevelInfo
	if c.Writer.Status() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.LogAttrs(
		c.Request.Context(),
		level,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", middleware.RequestID(c)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// redactQuery hides step tokens passed as query parameters
func redactQuery(values url.Values) string {
	if values.Has("token") {
		values.Set("token", "REDACTED")
	}
	return values.Encode()
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	methods := strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
	if methods == "" {
		methods = "GET, POST, OPTIONS"
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
