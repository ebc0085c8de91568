// Package middleware provides the Gin middleware of the registration API.
// All of it is registered in internal/api/router.go before any route handler.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annotation-study/registration/internal/telemetry"
)

// MetricsMiddleware records http_requests_total and
// http_request_duration_seconds for every request.
//
// The path label is the matched route template from c.FullPath(). Unmatched
// requests use "<no-route>" so scanners cannot inflate label cardinality.
// Paths listed in skip (e.g. probe endpoints) are not recorded.
//
// Register it after gin.Recovery() and RequestIDMiddleware so the final
// response status is captured.
func MetricsMiddleware(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}
		if skipped[path] {
			return
		}

		method := c.Request.Method
		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
